package service

import (
    "context"
    "errors"
    "testing"
    "time"

    "towngraph/internal/logger"
    "towngraph/internal/model"
    "towngraph/internal/rank"
    "towngraph/internal/store"
    "towngraph/internal/throttle"
)

func newTestService(t *testing.T) (*Service, *store.File) {
    t.Helper()
    f, err := store.NewFile(t.TempDir())
    if err != nil {
        t.Fatalf("NewFile: %v", err)
    }
    engine := rank.NewEngine(f, nil, logger.Nop())
    return New(engine, f, throttle.NewMemory(), logger.Nop()), f
}

func TestMicroRoutesDegradesWhenMissing(t *testing.T) {
    s, _ := newTestService(t)
    set, err := s.MicroRoutes(context.Background(), "nowhere", model.WindowMorning)
    if err != nil {
        t.Fatalf("missing set should degrade, got %v", err)
    }
    if len(set.Routes) != 0 || set.TownID != "nowhere" {
        t.Fatalf("want empty degraded set, got %+v", set)
    }
}

func TestSuggestionsDegradesWhenMissing(t *testing.T) {
    s, _ := newTestService(t)
    set, err := s.Suggestions(context.Background(), "nowhere")
    if err != nil {
        t.Fatalf("missing suggestions should degrade, got %v", err)
    }
    if len(set.Suggestions) != 0 {
        t.Fatalf("want empty degraded set, got %+v", set)
    }
}

func TestRecomputeNowThrottled(t *testing.T) {
    s, f := newTestService(t)
    ctx := context.Background()
    if _, err := f.UpsertEdge(ctx, "t1", model.CategoryCafe, model.CategoryFitness, 5, model.UpsertIncrement); err != nil {
        t.Fatalf("seed: %v", err)
    }
    if err := s.RecomputeNow(ctx, "t1", rank.Options{}); err != nil {
        t.Fatalf("first RecomputeNow: %v", err)
    }
    if err := s.RecomputeNow(ctx, "t1", rank.Options{}); !errors.Is(err, ErrThrottled) {
        t.Fatalf("second RecomputeNow: want ErrThrottled, got %v", err)
    }
    // The first run produced all artifacts.
    set, err := s.MicroRoutes(ctx, "t1", model.WindowMorning)
    if err != nil || len(set.Routes) == 0 {
        t.Fatalf("routes not computed: %+v (%v)", set, err)
    }
    sugg, err := s.Suggestions(ctx, "t1")
    if err != nil || len(sugg.Suggestions) == 0 {
        t.Fatalf("suggestions not computed: %+v (%v)", sugg, err)
    }
    if time.Since(sugg.ComputedAt) > time.Minute {
        t.Fatalf("stale computedAt: %v", sugg.ComputedAt)
    }
}

func TestRecordLinkageIsIdempotent(t *testing.T) {
    s, _ := newTestService(t)
    ctx := context.Background()
    e, err := s.RecordLinkage(ctx, "t1", model.CategoryCafe, model.CategoryRetail, 2)
    if err != nil || e == nil || e.Weight != 2 {
        t.Fatalf("first linkage: %+v (%v)", e, err)
    }
    e, err = s.RecordLinkage(ctx, "t1", model.CategoryCafe, model.CategoryRetail, 9)
    if err != nil || e.Weight != 2 {
        t.Fatalf("repeated linkage amplified: %+v (%v)", e, err)
    }
    // Same-category linkage is a defined no-op.
    e, err = s.RecordLinkage(ctx, "t1", model.CategoryCafe, model.CategoryCafe, 2)
    if err != nil || e != nil {
        t.Fatalf("self linkage: want nil,nil got %+v,%v", e, err)
    }
}

func TestReinforceCompounds(t *testing.T) {
    s, _ := newTestService(t)
    ctx := context.Background()
    if _, err := s.Reinforce(ctx, "t1", model.CategoryCafe, model.CategoryRetail, 3); err != nil {
        t.Fatalf("first: %v", err)
    }
    e, err := s.Reinforce(ctx, "t1", model.CategoryCafe, model.CategoryRetail, 4)
    if err != nil || e.Weight != 7 {
        t.Fatalf("want compounded 7, got %+v (%v)", e, err)
    }
}

func TestReinforceFromCopyBestEffort(t *testing.T) {
    s, f := newTestService(t)
    ctx := context.Background()
    s.ReinforceFromCopy(ctx, "t1", model.CategoryCafe, "then browse the gift shop on the corner")
    edges, err := f.ListEdges(ctx, "t1")
    if err != nil {
        t.Fatalf("ListEdges: %v", err)
    }
    if len(edges) != 1 || edges[0].To != model.CategoryRetail {
        t.Fatalf("expected cafe->retail reinforcement, got %+v", edges)
    }
}
