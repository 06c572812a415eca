package pulse

import (
    "context"

    "towngraph/internal/model"
    "towngraph/internal/taxonomy"
)

// Provider supplies the externally computed demand model for a town.
// A nil model with nil error means no pulse exists yet; ranking proceeds
// without demand adjustments in that case.
type Provider interface {
    GetDemandModel(ctx context.Context, townID string) (*model.DemandModel, error)
}

// ActiveFeed lists towns with recent demand activity. The scheduler uses
// it purely for candidate seeding.
type ActiveFeed interface {
    ListActiveTargets(ctx context.Context, limit int) ([]model.Target, error)
}

// Per-category trend bonuses summed over a route's stops.
const (
    trendUpBonus     = 0.45
    trendSteadyBonus = 0.10
    trendDownPenalty = -0.20
)

// TrendAdjust sums the trend bonus over the given categories. Categories
// absent from the model skip silently.
func TrendAdjust(dm *model.DemandModel, cats ...model.Category) float64 {
    if dm == nil || len(dm.CategoryTrends) == 0 {
        return 0
    }
    adj := 0.0
    for _, c := range cats {
        switch dm.CategoryTrends[c] {
        case model.TrendUp:
            adj += trendUpBonus
        case model.TrendSteady:
            adj += trendSteadyBonus
        case model.TrendDown:
            adj += trendDownPenalty
        }
    }
    return adj
}

// HitCounts counts the model's busy and slow slots that fall inside the
// window's time range.
func HitCounts(dm *model.DemandModel, w model.Window) (busy, slow int) {
    if dm == nil {
        return 0, 0
    }
    for _, s := range dm.BusySlots {
        if taxonomy.WindowContains(w, s.DayOfWeek, s.Hour) {
            busy++
        }
    }
    for _, s := range dm.SlowSlots {
        if taxonomy.WindowContains(w, s.DayOfWeek, s.Hour) {
            slow++
        }
    }
    return busy, slow
}

// HasTrend reports whether any of the categories carries the given trend.
func HasTrend(dm *model.DemandModel, dir model.TrendDirection, cats ...model.Category) bool {
    if dm == nil {
        return false
    }
    for _, c := range cats {
        if dm.CategoryTrends[c] == dir {
            return true
        }
    }
    return false
}

// Static is a fixed in-memory provider, used in tests and as the default
// when no pulse source is configured.
type Static struct {
    Models  map[string]*model.DemandModel
    Targets []model.Target
}

func (s *Static) GetDemandModel(ctx context.Context, townID string) (*model.DemandModel, error) {
    if s == nil {
        return nil, nil
    }
    return s.Models[townID], nil
}

func (s *Static) ListActiveTargets(ctx context.Context, limit int) ([]model.Target, error) {
    if s == nil {
        return nil, nil
    }
    out := s.Targets
    if limit > 0 && len(out) > limit {
        out = out[:limit]
    }
    return append([]model.Target(nil), out...), nil
}
