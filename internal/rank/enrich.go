package rank

import (
    "context"
    "time"

    "towngraph/internal/metrics"
    "towngraph/internal/model"
    "towngraph/internal/taxonomy"
)

// enrichWeight is the small reinforcement an inferred pairing earns.
const enrichWeight = 0.9

const enrichTimeout = 3 * time.Second

// TryEnrich closes the learning loop: infer the category implied by text
// a downstream feature emitted and, when it differs from the originating
// category, reinforce that edge. Fire-and-forget by contract — it returns
// nothing and never fails the caller; failures are logged and counted.
func (e *Engine) TryEnrich(ctx context.Context, townID string, from model.Category, text string) {
    cat, ok := taxonomy.Infer(text)
    if !ok {
        metrics.EnrichOutcomes.WithLabelValues("no_match").Inc()
        return
    }
    if cat == from {
        metrics.EnrichOutcomes.WithLabelValues("same_category").Inc()
        return
    }
    ctx, cancel := context.WithTimeout(ctx, enrichTimeout)
    defer cancel()
    if _, err := e.Store.UpsertEdge(ctx, townID, from, cat, enrichWeight, model.UpsertIncrement); err != nil {
        e.Log.Warn("enrichment write skipped", "town", townID, "from", from, "to", cat, "err", err)
        metrics.EnrichOutcomes.WithLabelValues("error").Inc()
        return
    }
    metrics.EdgeWrites.WithLabelValues(string(model.UpsertIncrement)).Inc()
    metrics.EnrichOutcomes.WithLabelValues("ok").Inc()
}
