package store

import (
    "context"
    "errors"
    "time"

    "towngraph/internal/model"
)

// Store is the persistence interface the graph core is written against.
// Two interchangeable backends exist: a file-per-town JSON store and
// Postgres. The store is the synchronization boundary; reads are safe to
// call concurrently with writes.
type Store interface {
    // Edges
    UpsertEdge(ctx context.Context, townID string, from, to model.Category, weight float64, mode model.UpsertMode) (*model.Edge, error)
    ListEdges(ctx context.Context, townID string) ([]model.Edge, error)
    TopEdgesFrom(ctx context.Context, townID string, from model.Category, limit int) ([]model.EdgeWeight, error)

    // Season overlays
    AddSeasonDelta(ctx context.Context, d model.SeasonWeightDelta) error
    ListSeasonDeltas(ctx context.Context, townID string) ([]model.SeasonWeightDelta, error)

    // Route sets, replaced wholesale per (town, window)
    ReplaceRouteSet(ctx context.Context, set model.RouteSet) error
    GetRouteSet(ctx context.Context, townID string, window model.Window) (model.RouteSet, error)

    // Suggestion sets, replaced wholesale per town
    SaveSuggestionSet(ctx context.Context, set model.SuggestionSet) error
    GetSuggestionSet(ctx context.Context, townID string) (model.SuggestionSet, error)

    // LastComputed returns when the artifact was last produced for the
    // town, or nil if it never was.
    LastComputed(ctx context.Context, townID string, artifact model.Artifact) (*time.Time, error)

    // ActiveTowns lists towns with edge activity after since, most recent
    // first. Used as the scheduler's secondary discovery source.
    ActiveTowns(ctx context.Context, since time.Time, limit int) ([]model.Target, error)
}

var (
    ErrNotFound     = errors.New("not found")
    ErrInvalidInput = errors.New("invalid input")
)

// Weight bounds. Caller-supplied weights are clamped to the narrow range;
// the wide range is the storage-level ceiling accumulated weights may reach.
const (
    MinWeight        = 0.01
    MaxCallerWeight  = 1000.0
    MaxStorageWeight = 100000.0
)

func clampWeight(w, min, max float64) float64 {
    if w < min {
        return min
    }
    if w > max {
        return max
    }
    return w
}

// applyUpsert implements the shared increment/ensure weight semantics.
// prev < 0 means no existing edge.
func applyUpsert(prev, weight float64, mode model.UpsertMode) float64 {
    weight = clampWeight(weight, MinWeight, MaxCallerWeight)
    if prev < 0 {
        return weight
    }
    if mode == model.UpsertEnsure {
        return prev
    }
    return clampWeight(prev+weight, MinWeight, MaxStorageWeight)
}
