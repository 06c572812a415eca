package sched

import (
    "context"
    "time"

    "golang.org/x/sync/errgroup"
    "golang.org/x/time/rate"

    "towngraph/internal/logger"
    "towngraph/internal/metrics"
    "towngraph/internal/model"
)

// Runner fans a scheduler's due targets out to a process function with
// bounded parallelism. Each recomputation issues several store round
// trips, so the pool stays small and writes are paced.
type Runner struct {
    Sched   *Scheduler
    Process func(ctx context.Context, t model.Target) error
    Log     *logger.Logger

    Workers  int
    Batch    int
    Interval time.Duration
    Limiter  *rate.Limiter

    Stop chan struct{}
}

func NewRunner(s *Scheduler, process func(context.Context, model.Target) error, log *logger.Logger, workers int) *Runner {
    if workers <= 0 {
        workers = 5
    }
    return &Runner{
        Sched:    s,
        Process:  process,
        Log:      log,
        Workers:  workers,
        Batch:    20,
        Interval: 5 * time.Minute,
        Limiter:  rate.NewLimiter(rate.Limit(10), workers),
        Stop:     make(chan struct{}),
    }
}

// Start runs the scan loop until Stop is closed.
func (r *Runner) Start() {
    go func() {
        ticker := time.NewTicker(r.Interval)
        defer ticker.Stop()
        for {
            select {
            case <-r.Stop:
                return
            case <-ticker.C:
                r.RunOnce(context.Background())
            }
        }
    }()
}

// RunOnce performs a single scan-and-process pass and returns how many
// targets were attempted. Scheduler-triggered recomputations are
// best-effort: per-target failures are logged, never propagated.
func (r *Runner) RunOnce(ctx context.Context) int {
    targets, err := r.Sched.ListDueTargets(ctx, r.Batch)
    if err != nil {
        r.Log.Warn("scheduler scan failed", "artifact", r.Sched.Artifact, "err", err)
        return 0
    }
    metrics.DueTargets.WithLabelValues(string(r.Sched.Artifact)).Observe(float64(len(targets)))
    if len(targets) == 0 {
        return 0
    }
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(r.Workers)
    for _, t := range targets {
        t := t
        g.Go(func() error {
            if err := r.Limiter.Wait(gctx); err != nil {
                return nil
            }
            if err := r.Process(gctx, t); err != nil {
                r.Log.Warn("recompute failed", "artifact", r.Sched.Artifact, "town", t.TownID, "err", err)
            }
            return nil
        })
    }
    _ = g.Wait()
    return len(targets)
}
