package rank

import (
    "context"
    "fmt"

    "github.com/google/uuid"

    "towngraph/internal/metrics"
    "towngraph/internal/model"
    "towngraph/internal/taxonomy"
)

// RecomputeSuggestions regenerates the town's "what to visit next"
// pairing set: for each category with outgoing edges, its strongest
// pairing. Replaced wholesale like route sets.
func (e *Engine) RecomputeSuggestions(ctx context.Context, townID string) (model.SuggestionSet, error) {
    start := e.Now()
    out := []model.Suggestion{}
    for _, from := range taxonomy.Categories() {
        top, err := e.Store.TopEdgesFrom(ctx, townID, from, 1)
        if err != nil {
            metrics.Recomputes.WithLabelValues(string(model.ArtifactSuggestions), "error").Inc()
            return model.SuggestionSet{}, err
        }
        if len(top) == 0 {
            continue
        }
        out = append(out, model.Suggestion{
            From:   from,
            To:     top[0].To,
            Weight: round2(top[0].Weight),
            Why:    fmt.Sprintf("%s visitors often head to %s next", from, top[0].To),
        })
    }
    set := model.SuggestionSet{
        ID:          uuid.New().String(),
        TownID:      townID,
        Suggestions: out,
        ComputedAt:  e.Now().UTC(),
    }
    if err := e.Store.SaveSuggestionSet(ctx, set); err != nil {
        metrics.Recomputes.WithLabelValues(string(model.ArtifactSuggestions), "error").Inc()
        return model.SuggestionSet{}, err
    }
    metrics.Recomputes.WithLabelValues(string(model.ArtifactSuggestions), "ok").Inc()
    metrics.RecomputeDuration.WithLabelValues(string(model.ArtifactSuggestions)).Observe(e.Now().Sub(start).Seconds())
    return set, nil
}
