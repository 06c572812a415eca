package rank

import (
    "context"
    "reflect"
    "testing"
    "time"

    "towngraph/internal/logger"
    "towngraph/internal/model"
    "towngraph/internal/pulse"
    "towngraph/internal/store"
    "towngraph/internal/taxonomy"
)

func newTestEngine(t *testing.T, p pulse.Provider) (*Engine, *store.File) {
    t.Helper()
    f, err := store.NewFile(t.TempDir())
    if err != nil {
        t.Fatalf("NewFile: %v", err)
    }
    e := NewEngine(f, p, logger.Nop())
    return e, f
}

func seedScenario(t *testing.T, f *store.File) {
    t.Helper()
    ctx := context.Background()
    for _, e := range []struct {
        from, to model.Category
        w        float64
    }{
        {model.CategoryCafe, model.CategoryFitness, 5},
        {model.CategoryFitness, model.CategoryRetail, 3},
        {model.CategoryCafe, model.CategoryRetail, 1},
    } {
        if _, err := f.UpsertEdge(ctx, "t1", e.from, e.to, e.w, model.UpsertIncrement); err != nil {
            t.Fatalf("seed %v->%v: %v", e.from, e.to, err)
        }
    }
}

func TestRecomputeRoutesEndToEnd(t *testing.T) {
    e, f := newTestEngine(t, nil)
    seedScenario(t, f)
    set, err := e.RecomputeRoutes(context.Background(), "t1", model.WindowMorning, Options{})
    if err != nil {
        t.Fatalf("RecomputeRoutes: %v", err)
    }
    if len(set.Routes) != 3 {
        t.Fatalf("want 3 candidates, got %d: %+v", len(set.Routes), set.Routes)
    }
    top := set.Routes[0]
    want := []model.Category{model.CategoryCafe, model.CategoryFitness, model.CategoryRetail}
    if !reflect.DeepEqual(top.Stops, want) {
        t.Fatalf("top route = %v, want %v", top.Stops, want)
    }
    if top.Weight != 8 {
        t.Fatalf("top weight = %v, want 8", top.Weight)
    }
    // Dead-end fallback: cafe->retail has no onward edge, second hop
    // synthesized as max(0.2, 1*0.5).
    last := set.Routes[2]
    wantFallback := []model.Category{model.CategoryCafe, model.CategoryRetail, model.CategoryRetail}
    if !reflect.DeepEqual(last.Stops, wantFallback) {
        t.Fatalf("fallback route = %v, want %v", last.Stops, wantFallback)
    }
    if last.Weight != 1.5 {
        t.Fatalf("fallback weight = %v, want 1.5", last.Weight)
    }
    // Persisted wholesale.
    stored, err := f.GetRouteSet(context.Background(), "t1", model.WindowMorning)
    if err != nil {
        t.Fatalf("GetRouteSet: %v", err)
    }
    if !reflect.DeepEqual(stored.Routes, set.Routes) {
        t.Fatalf("stored set differs from returned set")
    }
}

func TestRoutesAlwaysThreeStopsAndPositive(t *testing.T) {
    e, f := newTestEngine(t, nil)
    ctx := context.Background()
    cats := taxonomy.Categories()
    w := 0.3
    for _, from := range cats {
        for _, to := range cats {
            if from == to {
                continue
            }
            _, _ = f.UpsertEdge(ctx, "t1", from, to, w, model.UpsertIncrement)
            w += 0.17
        }
    }
    for _, win := range taxonomy.Windows() {
        set, err := e.RecomputeRoutes(ctx, "t1", win, Options{})
        if err != nil {
            t.Fatalf("window %s: %v", win, err)
        }
        if len(set.Routes) != 8 {
            t.Fatalf("window %s: want top 8, got %d", win, len(set.Routes))
        }
        for _, r := range set.Routes {
            if len(r.Stops) != 3 {
                t.Fatalf("route with %d stops: %+v", len(r.Stops), r)
            }
            if r.Weight < 0.01 {
                t.Fatalf("route weight below floor: %+v", r)
            }
            if r.Why == "" {
                t.Fatalf("route missing why: %+v", r)
            }
        }
    }
}

func TestRecomputeDeterministic(t *testing.T) {
    dm := &model.DemandModel{
        TownID: "t1",
        BusySlots: []model.DemandSlot{
            {DayOfWeek: time.Monday, Hour: 8},
            {DayOfWeek: time.Tuesday, Hour: 9},
        },
        SlowSlots: []model.DemandSlot{{DayOfWeek: time.Wednesday, Hour: 7}},
        CategoryTrends: map[model.Category]model.TrendDirection{
            model.CategoryCafe:    model.TrendUp,
            model.CategoryRetail:  model.TrendDown,
            model.CategoryFitness: model.TrendSteady,
        },
    }
    e, f := newTestEngine(t, &pulse.Static{Models: map[string]*model.DemandModel{"t1": dm}})
    seedScenario(t, f)
    ctx := context.Background()
    first, err := e.RecomputeRoutes(ctx, "t1", model.WindowMorning, Options{})
    if err != nil {
        t.Fatalf("first run: %v", err)
    }
    for i := 0; i < 5; i++ {
        again, err := e.RecomputeRoutes(ctx, "t1", model.WindowMorning, Options{})
        if err != nil {
            t.Fatalf("run %d: %v", i, err)
        }
        if !reflect.DeepEqual(first.Routes, again.Routes) {
            t.Fatalf("ranking not deterministic:\nfirst: %+v\nagain: %+v", first.Routes, again.Routes)
        }
    }
}

func TestBusySlowAdjustments(t *testing.T) {
    // Two busy morning slots and one slow one: multiplier is
    // (1+2*0.07) then (1-1*0.05) on top of base+trend.
    dm := &model.DemandModel{
        TownID: "t1",
        BusySlots: []model.DemandSlot{
            {DayOfWeek: time.Monday, Hour: 8},
            {DayOfWeek: time.Thursday, Hour: 9},
            {DayOfWeek: time.Saturday, Hour: 12}, // weekend, outside morning
        },
        SlowSlots: []model.DemandSlot{{DayOfWeek: time.Friday, Hour: 6}},
        CategoryTrends: map[model.Category]model.TrendDirection{
            model.CategoryCafe:    model.TrendUp,
            model.CategoryFitness: model.TrendSteady,
            model.CategoryRetail:  model.TrendDown,
        },
    }
    e, f := newTestEngine(t, &pulse.Static{Models: map[string]*model.DemandModel{"t1": dm}})
    seedScenario(t, f)
    set, err := e.RecomputeRoutes(context.Background(), "t1", model.WindowMorning, Options{})
    if err != nil {
        t.Fatalf("RecomputeRoutes: %v", err)
    }
    // Top route [cafe fitness retail]: base 8 + trend (0.45+0.10-0.20) = 8.35,
    // *1.14 = 9.519, *0.95 = 9.04305 -> 9.04.
    top := set.Routes[0]
    if top.Weight != 9.04 {
        t.Fatalf("adjusted top weight = %v, want 9.04", top.Weight)
    }
}

func TestSeasonOverlayLiftsMatchingRoutes(t *testing.T) {
    e, f := newTestEngine(t, nil)
    seedScenario(t, f)
    ctx := context.Background()
    err := f.AddSeasonDelta(ctx, model.SeasonWeightDelta{
        TownID: "t1", Season: "holiday", Window: model.WindowEvening,
        From: model.CategoryCafe, To: model.CategoryFitness, Delta: 2,
    })
    if err != nil {
        t.Fatalf("AddSeasonDelta: %v", err)
    }
    inactive, err := e.RecomputeRoutes(ctx, "t1", model.WindowEvening, Options{})
    if err != nil {
        t.Fatalf("inactive season: %v", err)
    }
    active, err := e.RecomputeRoutes(ctx, "t1", model.WindowEvening, Options{ActiveSeasons: []string{"holiday"}})
    if err != nil {
        t.Fatalf("active season: %v", err)
    }
    lifted := false
    for _, a := range active.Routes {
        if a.Stops[0] != model.CategoryCafe || a.Stops[1] != model.CategoryFitness {
            continue
        }
        for _, b := range inactive.Routes {
            if reflect.DeepEqual(a.Stops, b.Stops) {
                if a.Weight <= b.Weight {
                    t.Fatalf("season delta did not lift %v: %v <= %v", a.Stops, a.Weight, b.Weight)
                }
                lifted = true
            }
        }
    }
    if !lifted {
        t.Fatalf("no cafe->fitness route found to compare: %+v", active.Routes)
    }
    // Delta scoped to evening; morning unchanged.
    morning, err := e.RecomputeRoutes(ctx, "t1", model.WindowMorning, Options{ActiveSeasons: []string{"holiday"}})
    if err != nil {
        t.Fatalf("morning: %v", err)
    }
    if morning.Routes[0].Weight != 8 {
        t.Fatalf("delta leaked into morning window: %+v", morning.Routes[0])
    }
}

func TestSeasonDeltasAccumulate(t *testing.T) {
    edges := []model.Edge{{TownID: "t1", From: model.CategoryCafe, To: model.CategoryFitness, Weight: 5}}
    deltas := []model.SeasonWeightDelta{
        {TownID: "t1", Season: "holiday", Window: model.WindowEvening, From: model.CategoryCafe, To: model.CategoryFitness, Delta: 2},
        {TownID: "t1", Season: "holiday", Window: model.WindowEvening, From: model.CategoryCafe, To: model.CategoryFitness, Delta: 1.5},
        {TownID: "t1", Season: "summer", Window: model.WindowEvening, From: model.CategoryCafe, To: model.CategoryFitness, Delta: 100},
        {TownID: "t1", Season: "holiday", Window: model.WindowLunch, From: model.CategoryCafe, To: model.CategoryFitness, Delta: 100},
    }
    out := ApplySeasonDeltas(edges, deltas, []string{"holiday"}, model.WindowEvening)
    if out[0].Weight != 8.5 {
        t.Fatalf("want 5+2+1.5=8.5, got %v", out[0].Weight)
    }
    // Heavy negative deltas floor at the minimum.
    out = ApplySeasonDeltas(edges, []model.SeasonWeightDelta{
        {TownID: "t1", Season: "holiday", Window: model.WindowEvening, From: model.CategoryCafe, To: model.CategoryFitness, Delta: -50},
    }, []string{"holiday"}, model.WindowEvening)
    if out[0].Weight != 0.01 {
        t.Fatalf("want floor 0.01, got %v", out[0].Weight)
    }
}

func TestSlowPeriodBoostChangesRanking(t *testing.T) {
    dm := &model.DemandModel{
        TownID: "t1",
        SlowSlots: []model.DemandSlot{
            {DayOfWeek: time.Monday, Hour: 8},
            {DayOfWeek: time.Tuesday, Hour: 9},
        },
        CategoryTrends: map[model.Category]model.TrendDirection{
            model.CategoryRetail: model.TrendDown,
        },
    }
    e, f := newTestEngine(t, &pulse.Static{Models: map[string]*model.DemandModel{"t1": dm}})
    seedScenario(t, f)
    ctx := context.Background()
    plain, err := e.RecomputeRoutes(ctx, "t1", model.WindowMorning, Options{})
    if err != nil {
        t.Fatalf("plain: %v", err)
    }
    boosted, err := e.RecomputeRoutes(ctx, "t1", model.WindowMorning, Options{BoostSlowPeriods: true})
    if err != nil {
        t.Fatalf("boosted: %v", err)
    }
    // Every route here contains retail (trending down): lift is
    // 2*0.45 + 0.25 on top of the plain weight.
    for _, b := range boosted.Routes {
        for _, p := range plain.Routes {
            if !reflect.DeepEqual(b.Stops, p.Stops) {
                continue
            }
            want := round2(p.Weight + 2*0.45 + 0.25)
            if b.Weight != want {
                t.Fatalf("route %v: boosted %v, want %v (plain %v)", b.Stops, b.Weight, want, p.Weight)
            }
        }
    }
}

func TestWhyTemplates(t *testing.T) {
    if got := whyFor(model.WindowWeekend, 5, 9); got != "a relaxed weekend browsing loop" {
        t.Fatalf("weekend why = %q", got)
    }
    if got := whyFor(model.WindowMorning, 3, 1); got != "rides the busy morning stretch" {
        t.Fatalf("busy why = %q", got)
    }
    if got := whyFor(model.WindowLunch, 0, 2); got != "fills a slower lunch stretch" {
        t.Fatalf("slow why = %q", got)
    }
    if got := whyFor(model.WindowEvening, 1, 1); got != "a natural evening sequence" {
        t.Fatalf("neutral why = %q", got)
    }
}

func TestRecomputeInvalidWindow(t *testing.T) {
    e, _ := newTestEngine(t, nil)
    if _, err := e.RecomputeRoutes(context.Background(), "t1", "midnight", Options{}); err == nil {
        t.Fatalf("want error for unknown window")
    }
}

func TestEmptyGraphProducesEmptySet(t *testing.T) {
    e, f := newTestEngine(t, nil)
    set, err := e.RecomputeRoutes(context.Background(), "empty", model.WindowMorning, Options{})
    if err != nil {
        t.Fatalf("RecomputeRoutes: %v", err)
    }
    if len(set.Routes) != 0 {
        t.Fatalf("want empty route list, got %+v", set.Routes)
    }
    // Still persisted so staleness checks see a fresh computation.
    if _, err := f.GetRouteSet(context.Background(), "empty", model.WindowMorning); err != nil {
        t.Fatalf("empty set not persisted: %v", err)
    }
}
