package memory

import (
	"context"
	"time"

	"github.com/secureyeoman/secureyeoman/internal/obs"
)

// Embedder produces an embedding vector for a piece of text. The AI
// Gateway supplies the real implementation; tests use a deterministic
// stub.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Thresholds configures the on-save quick check (spec §4.3 defaults).
type Thresholds struct {
	FlagThreshold      float64
	AutoDedupThreshold float64
}

// QuickChecker wraps a Store+Index pair with the on-save dedup pass.
type QuickChecker struct {
	store      Store
	index      Index
	embedder   Embedder
	thresholds Thresholds
	flags      *FlaggedSet
	logger     obs.Logger
}

func NewQuickChecker(store Store, index Index, embedder Embedder, thresholds Thresholds, flags *FlaggedSet, logger obs.Logger) *QuickChecker {
	if logger == nil {
		logger = obs.NoOpLogger{}
	}
	return &QuickChecker{
		store: store, index: index, embedder: embedder,
		thresholds: thresholds, flags: flags,
		logger: logger.WithComponent("memory.quickcheck"),
	}
}

// Save creates a new memory, embeds it, and runs the quick-check dedup
// pass against the index (spec §4.3 "On-save quick check").
func (q *QuickChecker) Save(ctx context.Context, r *Record) (*QuickCheckResult, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.UpdatedAt = r.CreatedAt

	if q.embedder != nil {
		vec, err := q.embedder.Embed(ctx, r.Content)
		if err != nil {
			return nil, err
		}
		r.Embedding = vec
	}

	if err := q.store.Create(ctx, r); err != nil {
		return nil, err
	}

	if r.Embedding == nil {
		return &QuickCheckResult{Outcome: OutcomeClean, Record: r}, nil
	}

	if err := q.index.Insert(r.ID, r.Embedding); err != nil {
		return nil, err
	}

	matches, err := q.index.Search(r.Embedding, 6, q.thresholds.FlagThreshold)
	if err != nil {
		return nil, err
	}

	var best *Match
	for idx := range matches {
		if matches[idx].ID == r.ID {
			continue
		}
		m := matches[idx]
		best = &m
		break
	}

	if best == nil {
		return &QuickCheckResult{Outcome: OutcomeClean, Record: r}, nil
	}

	if best.Similarity >= q.thresholds.AutoDedupThreshold {
		if err := q.index.Delete(r.ID); err != nil {
			return nil, err
		}
		if err := q.store.Delete(ctx, r.ID); err != nil {
			return nil, err
		}
		q.logger.Info("memory deduped on save", obs.Fields{"id": r.ID, "neighbour": best.ID, "similarity": best.Similarity})
		return &QuickCheckResult{Outcome: OutcomeDeduped, Record: r, Neighbour: best}, nil
	}

	q.flags.Add(r.ID)
	q.logger.Info("memory flagged on save", obs.Fields{"id": r.ID, "neighbour": best.ID, "similarity": best.Similarity})
	return &QuickCheckResult{Outcome: OutcomeFlagged, Record: r, Neighbour: best}, nil
}
