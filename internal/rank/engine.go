package rank

import (
    "context"
    "fmt"
    "math"
    "sort"
    "time"

    "towngraph/internal/logger"
    "towngraph/internal/metrics"
    "towngraph/internal/model"
    "towngraph/internal/pulse"
    "towngraph/internal/store"
    "towngraph/internal/taxonomy"
)

// Tunable ranking constants. The fallback formula and the busy/slow
// multiplier factors are empirically chosen and kept for behavioral
// parity with the production signals they were fitted against; treat them
// as tunables, not invariants.
const (
    maxOutEdges    = 6   // adjacency truncation per category
    maxSecondHops  = 4   // second-hop fan-out per middle stop
    maxRoutes      = 8   // persisted candidates per (town, window)
    fallbackFloor  = 0.2 // minimum synthesized second-hop weight
    fallbackFactor = 0.5 // fraction of the first hop used for dead-ends

    busyHitFactor = 0.07
    busyHitCap    = 0.40
    slowHitFactor = 0.05
    slowHitCap    = 0.35
    minRouteFloor = 0.60

    slowBoostPerHit   = 0.45
    slowBoostDownward = 0.25
    slowBoostSteady   = 0.08
)

// Engine computes ranked micro-routes and visit-next suggestions on top of
// a town's graph. It holds no mutable state beyond the snapshot it reads
// at the start of a computation; the store is the sync boundary.
type Engine struct {
    Store store.Store
    Pulse pulse.Provider
    Log   *logger.Logger
    Now   func() time.Time
}

func NewEngine(st store.Store, p pulse.Provider, log *logger.Logger) *Engine {
    return &Engine{Store: st, Pulse: p, Log: log, Now: time.Now}
}

// Options carries caller context for a recomputation. Ranking is a
// property of graph × context × intent: the same graph ranks differently
// when the caller's purpose is lifting slow periods.
type Options struct {
    // ActiveSeasons lists season tags currently in effect; deltas for any
    // of them are applied to base edge weights before scoring.
    ActiveSeasons []string
    // BoostSlowPeriods re-ranks in favor of routes that fill demand gaps.
    BoostSlowPeriods bool
}

// RecomputeRoutes regenerates the ranked route set for one (town, window)
// and replaces the stored set wholesale. Store failures propagate; a
// missing demand model degrades to unadjusted ranking.
func (e *Engine) RecomputeRoutes(ctx context.Context, townID string, window model.Window, opts Options) (model.RouteSet, error) {
    if !taxonomy.ValidWindow(window) {
        return model.RouteSet{}, store.ErrInvalidInput
    }
    start := e.Now()
    edges, err := e.Store.ListEdges(ctx, townID)
    if err != nil {
        metrics.Recomputes.WithLabelValues(string(model.ArtifactRoutes), "error").Inc()
        return model.RouteSet{}, err
    }
    deltas, err := e.Store.ListSeasonDeltas(ctx, townID)
    if err != nil {
        metrics.Recomputes.WithLabelValues(string(model.ArtifactRoutes), "error").Inc()
        return model.RouteSet{}, err
    }
    dm := e.demandModel(ctx, townID)

    edges = ApplySeasonDeltas(edges, deltas, opts.ActiveSeasons, window)
    routes := rankRoutes(edges, dm, window, opts)

    set := model.RouteSet{TownID: townID, Window: window, Routes: routes, ComputedAt: e.Now().UTC()}
    if err := e.Store.ReplaceRouteSet(ctx, set); err != nil {
        metrics.Recomputes.WithLabelValues(string(model.ArtifactRoutes), "error").Inc()
        return model.RouteSet{}, err
    }
    metrics.Recomputes.WithLabelValues(string(model.ArtifactRoutes), "ok").Inc()
    metrics.RecomputeDuration.WithLabelValues(string(model.ArtifactRoutes)).Observe(e.Now().Sub(start).Seconds())
    return set, nil
}

// RecomputeAllWindows regenerates every window's route set for a town.
func (e *Engine) RecomputeAllWindows(ctx context.Context, townID string, opts Options) error {
    for _, w := range taxonomy.Windows() {
        if _, err := e.RecomputeRoutes(ctx, townID, w, opts); err != nil {
            return fmt.Errorf("recompute %s/%s: %w", townID, w, err)
        }
    }
    return nil
}

// demandModel fetches the town pulse, degrading to nil when the upstream
// is unavailable. Demand is enrichment, never a hard dependency.
func (e *Engine) demandModel(ctx context.Context, townID string) *model.DemandModel {
    if e.Pulse == nil {
        return nil
    }
    dm, err := e.Pulse.GetDemandModel(ctx, townID)
    if err != nil {
        e.Log.Warn("demand model unavailable", "town", townID, "err", err)
        return nil
    }
    return dm
}

// rankRoutes runs the full enumeration and scoring pass over a season-
// adjusted edge snapshot. Deterministic for a fixed snapshot + model.
func rankRoutes(edges []model.Edge, dm *model.DemandModel, window model.Window, opts Options) []model.RouteCandidate {
    adj := buildAdjacency(edges)
    busy, slow := pulse.HitCounts(dm, window)
    why := whyFor(window, busy, slow)

    var order []string
    best := map[string]model.RouteCandidate{}
    add := func(stops [3]model.Category, weight float64) {
        key := string(stops[0]) + ">" + string(stops[1]) + ">" + string(stops[2])
        if prev, ok := best[key]; ok {
            if weight > prev.Weight {
                prev.Weight = weight
                best[key] = prev
            }
            return
        }
        best[key] = model.RouteCandidate{Stops: []model.Category{stops[0], stops[1], stops[2]}, Why: why, Weight: weight}
        order = append(order, key)
    }

    // Walk first hops in weight order, truncated to each category's top
    // out-edges; the adjacency list is built from the same sorted snapshot
    // so the first maxOutEdges occurrences per category are its top set.
    firstHops := map[model.Category]int{}
    for _, e := range edges {
        if firstHops[e.From] >= maxOutEdges {
            continue
        }
        firstHops[e.From]++
        second := adj[e.To]
        if len(second) == 0 {
            // Dead-end worth visiting anyway; synthesize the second hop.
            hop2 := math.Max(fallbackFloor, e.Weight*fallbackFactor)
            stops := [3]model.Category{e.From, e.To, e.To}
            add(stops, scoreRoute(e.Weight, hop2, dm, busy, slow, stops))
            continue
        }
        n := len(second)
        if n > maxSecondHops {
            n = maxSecondHops
        }
        for _, hop := range second[:n] {
            stops := [3]model.Category{e.From, e.To, hop.To}
            add(stops, scoreRoute(e.Weight, hop.Weight, dm, busy, slow, stops))
        }
    }

    out := make([]model.RouteCandidate, 0, len(order))
    for _, key := range order {
        out = append(out, best[key])
    }
    if opts.BoostSlowPeriods && slow > 0 {
        for i := range out {
            nudge := 0.0
            if pulse.HasTrend(dm, model.TrendDown, out[i].Stops...) {
                nudge = slowBoostDownward
            } else if pulse.HasTrend(dm, model.TrendSteady, out[i].Stops...) {
                nudge = slowBoostSteady
            }
            out[i].Weight = round2(out[i].Weight + float64(slow)*slowBoostPerHit + nudge)
        }
    }
    sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
    if len(out) > maxRoutes {
        out = out[:maxRoutes]
    }
    return out
}

// scoreRoute applies trend, busy and slow adjustments to the two hop
// weights. Order matters: season deltas are already folded into the hop
// weights, so demand adjustments compound on season-adjusted bases.
func scoreRoute(hop1, hop2 float64, dm *model.DemandModel, busy, slow int, stops [3]model.Category) float64 {
    w := hop1 + hop2 + pulse.TrendAdjust(dm, stops[0], stops[1], stops[2])
    if busy > 0 {
        w *= 1 + math.Min(busyHitCap, float64(busy)*busyHitFactor)
    }
    if slow > 0 {
        w *= math.Max(minRouteFloor, 1-math.Min(slowHitCap, float64(slow)*slowHitFactor))
    }
    if w < store.MinWeight {
        w = store.MinWeight
    }
    return round2(w)
}

// buildAdjacency maps each category to its outgoing edges, preserving the
// caller's weight-descending order and truncating to the top set.
func buildAdjacency(edges []model.Edge) map[model.Category][]model.EdgeWeight {
    adj := map[model.Category][]model.EdgeWeight{}
    for _, e := range edges {
        if len(adj[e.From]) >= maxOutEdges {
            continue
        }
        adj[e.From] = append(adj[e.From], model.EdgeWeight{To: e.To, Weight: e.Weight})
    }
    return adj
}

func round2(w float64) float64 {
    return math.Round(w*100) / 100
}
