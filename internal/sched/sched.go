package sched

import (
    "context"
    "time"

    "towngraph/internal/model"
    "towngraph/internal/pulse"
    "towngraph/internal/store"
)

// Staleness thresholds per artifact. Suggestions are cheap narrative text
// and refresh eagerly; routes need a full re-rank and wait longer.
const (
    SuggestionStaleness = 22 * time.Hour
    RouteStaleness      = 28 * time.Hour
)

// CandidateSource enumerates towns that might be due. How candidates are
// discovered differs by backend (directory scan locally, indexed query
// hosted), so the scheduler is parameterized over it.
type CandidateSource interface {
    Candidates(ctx context.Context, limit int) ([]model.Target, error)
}

// Scheduler decides which towns are due for one artifact's recomputation
// without a global index: over-sample candidates, dedup, check staleness
// in discovery order, stop at the limit.
type Scheduler struct {
    Primary   CandidateSource
    Secondary CandidateSource // optional widening source
    Artifact  model.Artifact
    Threshold time.Duration
    Store     store.Store
    Now       func() time.Time
}

func New(primary, secondary CandidateSource, artifact model.Artifact, threshold time.Duration, st store.Store) *Scheduler {
    return &Scheduler{Primary: primary, Secondary: secondary, Artifact: artifact, Threshold: threshold, Store: st, Now: time.Now}
}

// ListDueTargets returns up to limit targets whose artifact was never
// computed or is older than the threshold.
func (s *Scheduler) ListDueTargets(ctx context.Context, limit int) ([]model.Target, error) {
    if limit <= 0 {
        limit = 10
    }
    // Over-sample before filtering; staleness discards many candidates.
    pool, err := s.Primary.Candidates(ctx, 3*limit)
    if err != nil {
        return nil, err
    }
    seen := map[string]bool{}
    candidates := []model.Target{}
    appendNew := func(targets []model.Target) {
        for _, t := range targets {
            if seen[t.Key()] {
                continue
            }
            seen[t.Key()] = true
            candidates = append(candidates, t)
        }
    }
    appendNew(pool)
    if len(candidates) < limit && s.Secondary != nil {
        widened, err := s.Secondary.Candidates(ctx, 3*limit)
        if err != nil {
            return nil, err
        }
        appendNew(widened)
    }

    now := s.Now()
    due := []model.Target{}
    for _, t := range candidates {
        last, err := s.Store.LastComputed(ctx, t.TownID, s.Artifact)
        if err != nil {
            return nil, err
        }
        if last == nil || now.Sub(*last) > s.Threshold {
            due = append(due, t)
            if len(due) >= limit {
                break
            }
        }
    }
    return due, nil
}

// PulseSource adapts the active-signal feed into a candidate source.
func PulseSource(feed pulse.ActiveFeed) CandidateSource {
    return sourceFunc(func(ctx context.Context, limit int) ([]model.Target, error) {
        return feed.ListActiveTargets(ctx, limit)
    })
}

// StoreActivitySource discovers towns from recent edge activity; the
// scheduler's widening source when the active feed runs thin.
func StoreActivitySource(st store.Store, lookback time.Duration) CandidateSource {
    return sourceFunc(func(ctx context.Context, limit int) ([]model.Target, error) {
        return st.ActiveTowns(ctx, time.Now().Add(-lookback), limit)
    })
}

type sourceFunc func(ctx context.Context, limit int) ([]model.Target, error)

func (f sourceFunc) Candidates(ctx context.Context, limit int) ([]model.Target, error) {
    return f(ctx, limit)
}
