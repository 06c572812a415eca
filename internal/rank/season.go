package rank

import (
    "sort"

    "towngraph/internal/model"
    "towngraph/internal/store"
)

// ApplySeasonDeltas folds active season adjustments into base edge
// weights and re-sorts the snapshot by weight. Deltas matching any active
// season tag and the target window accumulate by summation; adjusted
// weights floor at the minimum so a heavy negative delta cannot zero out
// an edge. Runs before enumeration so demand and trend adjustments
// compound on season-adjusted bases.
func ApplySeasonDeltas(edges []model.Edge, deltas []model.SeasonWeightDelta, activeSeasons []string, window model.Window) []model.Edge {
    if len(deltas) == 0 || len(activeSeasons) == 0 {
        return edges
    }
    active := map[string]bool{}
    for _, s := range activeSeasons {
        active[s] = true
    }
    sums := map[[2]model.Category]float64{}
    matched := false
    for _, d := range deltas {
        if d.Window != window || !active[d.Season] {
            continue
        }
        sums[[2]model.Category{d.From, d.To}] += d.Delta
        matched = true
    }
    if !matched {
        return edges
    }
    out := make([]model.Edge, len(edges))
    copy(out, edges)
    for i := range out {
        if adj, ok := sums[[2]model.Category{out[i].From, out[i].To}]; ok {
            w := out[i].Weight + adj
            if w < store.MinWeight {
                w = store.MinWeight
            }
            out[i].Weight = w
        }
    }
    sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
    return out
}
