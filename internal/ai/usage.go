package ai

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time rollup of tracked usage, consumed by the
// cost optimizer and exposed to the API surface (spec §6 usage endpoints).
type Snapshot struct {
	TokensUsedToday int64
	CostUSDToday    float64
	CostUSDMonth    float64
	CallCount       int
	ErrorCount      int
	ByProvider      map[string]ProviderSnapshot
}

// ProviderSnapshot breaks the rollup down per provider/model pair.
type ProviderSnapshot struct {
	Tokens    int64
	CostUSD   float64
	CallCount int
}

// UsageTracker accumulates UsageRecords and enforces the daily token
// budget (spec §4.4 "Daily token budget enforcement"), grounded on the
// teacher's memory_store.go mutex-guarded map pattern.
type UsageTracker struct {
	mu        sync.Mutex
	dayStart  time.Time
	monthMark int // Unix month index (year*12+month) costs accumulated under
	records   []UsageRecord
	today     Snapshot
	month     float64
	budget    int64
	errors    int
}

// NewUsageTracker creates a tracker enforcing dailyTokenBudget tokens per
// day. A budget of 0 disables enforcement.
func NewUsageTracker(dailyTokenBudget int64) *UsageTracker {
	now := time.Now()
	return &UsageTracker{
		dayStart:  startOfDay(now),
		monthMark: now.Year()*12 + int(now.Month()),
		budget:    dailyTokenBudget,
		today:     Snapshot{ByProvider: map[string]ProviderSnapshot{}},
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Record appends a usage event, rolling over the daily/monthly windows as
// wall-clock time crosses them.
func (u *UsageTracker) Record(rec UsageRecord) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.rolloverLocked(rec.Timestamp)

	u.records = append(u.records, rec)
	tokens := int64(rec.Usage.InputTokens + rec.Usage.OutputTokens)
	u.today.TokensUsedToday += tokens
	u.today.CostUSDToday += rec.CostUSD
	u.today.CallCount++
	u.month += rec.CostUSD

	ps := u.today.ByProvider[rec.Provider]
	ps.Tokens += tokens
	ps.CostUSD += rec.CostUSD
	ps.CallCount++
	u.today.ByProvider[rec.Provider] = ps
}

// RecordError increments the error counter for the current day, reported
// as Snapshot.ErrorCount.
func (u *UsageTracker) RecordError() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.errors++
	u.today.ErrorCount++
}

func (u *UsageTracker) rolloverLocked(at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	if at.Before(startOfDay(at)) {
		return
	}
	if startOfDay(at).After(u.dayStart) {
		u.dayStart = startOfDay(at)
		u.today = Snapshot{ByProvider: map[string]ProviderSnapshot{}}
		u.records = nil
	}
	mark := at.Year()*12 + int(at.Month())
	if mark != u.monthMark {
		u.monthMark = mark
		u.month = 0
	}
}

// CheckLimit reports whether another call is within the daily token
// budget. A false result carries a human-readable reason.
func (u *UsageTracker) CheckLimit() (bool, string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.budget <= 0 {
		return true, ""
	}
	if u.today.TokensUsedToday >= u.budget {
		return false, "tokens used today already at or above configured budget"
	}
	return true, ""
}

// Snapshot returns a copy of today's rollup plus the running monthly cost.
func (u *UsageTracker) Snapshot() Snapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := u.today
	out.CostUSDMonth = u.month
	byProvider := make(map[string]ProviderSnapshot, len(u.today.ByProvider))
	for k, v := range u.today.ByProvider {
		byProvider[k] = v
	}
	out.ByProvider = byProvider
	return out
}

// Records returns every usage event recorded today, most recent last.
func (u *UsageTracker) Records() []UsageRecord {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]UsageRecord, len(u.records))
	copy(out, u.records)
	return out
}
