package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/apperrors"
	"github.com/secureyeoman/secureyeoman/internal/obs"
)

// CandidateGroup is a flagged memory together with its current
// near-duplicate neighbours, the unit of work an Advisor reasons about.
type CandidateGroup struct {
	Record     *Record
	Neighbours []*Record
}

// Advisor proposes consolidation actions for a batch of candidate
// groups. AIAdvisor implements this over the internal/ai Gateway; a nil
// Advisor falls back to the threshold-only rule (spec §4.3 step 4).
type Advisor interface {
	Propose(ctx context.Context, groups []CandidateGroup) ([]ConsolidationAction, error)
}

// ConsolidationConfig carries the scheduling and threshold inputs.
type ConsolidationConfig struct {
	Cron             string
	BatchSize        int
	Timeout          time.Duration
	FlagThreshold    float64
	ReplaceThreshold float64
}

// ConsolidationManager runs the scheduled deep-consolidation pass (spec
// §4.3 "Deep consolidation"). The once-a-minute schedule check is
// grounded on the teacher's `orchestration` package's ticker-driven
// scheduling idiom.
type ConsolidationManager struct {
	store   Store
	index   Index
	flags   *FlaggedSet
	advisor Advisor
	cfg     ConsolidationConfig
	logger  obs.Logger

	stop chan struct{}
}

func NewConsolidationManager(store Store, index Index, flags *FlaggedSet, advisor Advisor, cfg ConsolidationConfig, logger obs.Logger) *ConsolidationManager {
	if logger == nil {
		logger = obs.NoOpLogger{}
	}
	return &ConsolidationManager{
		store: store, index: index, flags: flags, advisor: advisor,
		cfg: cfg, logger: logger.WithComponent("memory.consolidation"),
		stop: make(chan struct{}),
	}
}

// StartScheduler checks the cron expression once a minute and triggers a
// run whenever it matches, until Stop is called.
func (m *ConsolidationManager) StartScheduler(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stop:
				return
			case now := <-ticker.C:
				if matchesCron(m.cfg.Cron, now) {
					if _, err := m.Run(ctx, false); err != nil {
						m.logger.Error("scheduled consolidation failed", obs.Fields{"error": err.Error()})
					}
				}
			}
		}
	}()
}

func (m *ConsolidationManager) Stop() { close(m.stop) }

// Run executes one deep-consolidation pass. With dryRun=true, candidate
// actions are computed but never applied to the stores (spec §8
// "underlying stores are unchanged").
func (m *ConsolidationManager) Run(ctx context.Context, dryRun bool) (*ConsolidationSummary, error) {
	timeout := m.cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snapshot := m.flags.Snapshot()

	type outcome struct {
		summary *ConsolidationSummary
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		candidateIDs, err := m.sampleCandidates(runCtx, snapshot)
		if err != nil {
			done <- outcome{err: err}
			return
		}

		groups, err := m.buildGroups(runCtx, candidateIDs)
		if err != nil {
			done <- outcome{err: err}
			return
		}

		var actions []ConsolidationAction
		if m.advisor != nil && len(groups) > 0 {
			actions, err = m.advisor.Propose(runCtx, groups)
			if err != nil {
				done <- outcome{err: apperrors.New("memory.RunDeepConsolidation", apperrors.KindInternal, err)}
				return
			}
		} else {
			actions = thresholdActions(groups, m.cfg.ReplaceThreshold)
		}

		// The deadline may have elapsed while building groups or waiting on
		// the advisor. Never mutate the store or clear flags for a run that
		// is already timing out (spec §4.3 "on timeout... clears no state").
		if runCtx.Err() != nil {
			done <- outcome{}
			return
		}

		summary := &ConsolidationSummary{CandidatesConsidered: len(groups), ActionsProposed: len(actions), DryRun: dryRun}
		if !dryRun {
			m.applyActions(runCtx, actions, summary)
			m.flags.ClearSubset(snapshot)
		} else {
			tallyDryRun(actions, summary)
		}
		done <- outcome{summary: summary}
	}()

	select {
	case <-runCtx.Done():
		return nil, apperrors.Newf(apperrors.KindTimeout, "consolidation run exceeded %s", timeout)
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		if o.summary == nil {
			return nil, apperrors.Newf(apperrors.KindTimeout, "consolidation run exceeded %s", timeout)
		}
		return o.summary, nil
	}
}

func (m *ConsolidationManager) sampleCandidates(ctx context.Context, flagged []string) ([]string, error) {
	seen := make(map[string]bool, len(flagged))
	ids := append([]string(nil), flagged...)
	for _, id := range flagged {
		seen[id] = true
	}

	batchSize := m.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	if len(ids) >= batchSize {
		return ids, nil
	}

	recent, err := m.store.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	sort.Slice(recent, func(a, b int) bool { return recent[a].CreatedAt.After(recent[b].CreatedAt) })
	for _, r := range recent {
		if len(ids) >= batchSize {
			break
		}
		if !seen[r.ID] {
			ids = append(ids, r.ID)
			seen[r.ID] = true
		}
	}
	return ids, nil
}

func (m *ConsolidationManager) buildGroups(ctx context.Context, ids []string) ([]CandidateGroup, error) {
	groups := make([]CandidateGroup, 0, len(ids))
	for _, id := range ids {
		rec, err := m.store.Get(ctx, id)
		if err != nil || rec == nil || rec.Embedding == nil {
			continue
		}
		matches, err := m.index.Search(rec.Embedding, 10, m.cfg.FlagThreshold)
		if err != nil {
			return nil, err
		}
		var neighbours []*Record
		for _, match := range matches {
			if match.ID == id {
				continue
			}
			n, err := m.store.Get(ctx, match.ID)
			if err == nil && n != nil {
				neighbours = append(neighbours, n)
			}
		}
		if len(neighbours) == 0 {
			continue
		}
		groups = append(groups, CandidateGroup{Record: rec, Neighbours: neighbours})
	}
	return groups, nil
}

// thresholdActions implements spec §4.3 step 4: with no AI provider
// configured, any candidate with a neighbour at or above replaceThreshold
// is REPLACEd by the higher-importance record. A record is dropped at most
// once per pass, even when it appears in several groups.
func thresholdActions(groups []CandidateGroup, replaceThreshold float64) []ConsolidationAction {
	var actions []ConsolidationAction
	dropped := make(map[string]bool)
	for _, g := range groups {
		for _, n := range g.Neighbours {
			sim := similarity(g.Record, n)
			if sim < replaceThreshold {
				continue
			}
			keep, drop := g.Record, n
			if n.Importance > g.Record.Importance {
				keep, drop = n, g.Record
			}
			if dropped[drop.ID] {
				continue
			}
			dropped[drop.ID] = true
			actions = append(actions, ConsolidationAction{
				Type:      ActionReplace,
				SourceIDs: []string{drop.ID},
				Reason:    fmt.Sprintf("superseded by higher-importance memory %s", keep.ID),
			})
		}
	}
	return actions
}

// similarity recomputes the cosine-equivalent similarity between two
// embeddings, normalizing both first, via the same L2 conversion Search uses.
func similarity(a, b *Record) float64 {
	if a.Embedding == nil || b.Embedding == nil {
		return 0
	}
	dist := squaredL2Distance(normalize(a.Embedding), normalize(b.Embedding))
	return 1 - dist/2
}

func (m *ConsolidationManager) applyActions(ctx context.Context, actions []ConsolidationAction, summary *ConsolidationSummary) {
	for _, action := range actions {
		switch action.Type {
		case ActionMerge:
			m.applyMerge(ctx, action)
			summary.Merged++
		case ActionReplace:
			m.applyReplace(ctx, action)
			summary.Replaced++
		case ActionUpdate:
			m.applyUpdate(ctx, action)
			summary.Updated++
		case ActionKeepSeparate:
			summary.KeptSeparate++
		case ActionSkip:
			summary.Skipped++
		}
	}
}

func tallyDryRun(actions []ConsolidationAction, summary *ConsolidationSummary) {
	for _, action := range actions {
		switch action.Type {
		case ActionMerge:
			summary.Merged++
		case ActionReplace:
			summary.Replaced++
		case ActionUpdate:
			summary.Updated++
		case ActionKeepSeparate:
			summary.KeptSeparate++
		case ActionSkip:
			summary.Skipped++
		}
	}
}

func (m *ConsolidationManager) applyMerge(ctx context.Context, action ConsolidationAction) {
	if len(action.SourceIDs) == 0 {
		return
	}
	primary := action.SourceIDs[0]
	rec, err := m.store.Get(ctx, primary)
	if err != nil || rec == nil {
		return
	}
	if action.MergedContent != "" {
		rec.Content = action.MergedContent
		rec.UpdatedAt = time.Now()
		if err := m.store.Update(ctx, rec); err != nil {
			m.logger.Warn("merge update failed", obs.Fields{"id": primary, "error": err.Error()})
		}
	}
	for _, id := range action.SourceIDs[1:] {
		m.removeRecord(ctx, id)
	}
}

func (m *ConsolidationManager) applyReplace(ctx context.Context, action ConsolidationAction) {
	for _, id := range action.SourceIDs {
		m.removeRecord(ctx, id)
	}
}

func (m *ConsolidationManager) applyUpdate(ctx context.Context, action ConsolidationAction) {
	if len(action.SourceIDs) == 0 {
		return
	}
	id := action.SourceIDs[0]
	rec, err := m.store.Get(ctx, id)
	if err != nil || rec == nil {
		return
	}
	if content, ok := action.UpdateData["content"]; ok {
		rec.Content = content
	}
	rec.UpdatedAt = time.Now()
	if err := m.store.Update(ctx, rec); err != nil {
		m.logger.Warn("update action failed", obs.Fields{"id": id, "error": err.Error()})
	}
}

func (m *ConsolidationManager) removeRecord(ctx context.Context, id string) {
	if err := m.index.Delete(id); err != nil {
		m.logger.Warn("index delete failed during consolidation", obs.Fields{"id": id, "error": err.Error()})
	}
	if err := m.store.Delete(ctx, id); err != nil {
		m.logger.Warn("store delete failed during consolidation", obs.Fields{"id": id, "error": err.Error()})
	}
}
