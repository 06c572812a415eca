package service

import (
    "context"
    "errors"
    "time"

    "towngraph/internal/logger"
    "towngraph/internal/metrics"
    "towngraph/internal/model"
    "towngraph/internal/rank"
    "towngraph/internal/store"
    "towngraph/internal/throttle"
)

// recomputeCooldown caps how often a request path may trigger a full
// re-rank for one town.
const recomputeCooldown = 15 * time.Minute

// ErrThrottled signals a recompute trigger arrived inside the cooldown.
var ErrThrottled = errors.New("recompute throttled")

// Service is the surface request handlers and background features call.
// It owns the degrade-don't-block policy: missing artifacts read as empty,
// enrichment never fails its caller, direct recomputes propagate store
// failures.
type Service struct {
    Engine   *rank.Engine
    Store    store.Store
    Throttle throttle.Limiter
    Log      *logger.Logger
}

func New(engine *rank.Engine, st store.Store, lim throttle.Limiter, log *logger.Logger) *Service {
    return &Service{Engine: engine, Store: st, Throttle: lim, Log: log}
}

// MicroRoutes returns the cached ranked routes for a (town, window).
// A set that was never computed degrades to an empty one; the feature
// shows no micro-route suggestion this cycle.
func (s *Service) MicroRoutes(ctx context.Context, townID string, window model.Window) (model.RouteSet, error) {
    set, err := s.Store.GetRouteSet(ctx, townID, window)
    if errors.Is(err, store.ErrNotFound) {
        return model.RouteSet{TownID: townID, Window: window}, nil
    }
    return set, err
}

// Suggestions returns the cached visit-next pairings, degrading the same
// way as MicroRoutes.
func (s *Service) Suggestions(ctx context.Context, townID string) (model.SuggestionSet, error) {
    set, err := s.Store.GetSuggestionSet(ctx, townID)
    if errors.Is(err, store.ErrNotFound) {
        return model.SuggestionSet{TownID: townID}, nil
    }
    return set, err
}

// RecomputeNow is the direct, user-invoked recomputation of every window
// for a town. Store failures propagate to the caller; repeat triggers
// inside the cooldown return ErrThrottled.
func (s *Service) RecomputeNow(ctx context.Context, townID string, opts rank.Options) error {
    ok, err := s.Throttle.Allow(ctx, "recompute:"+townID, recomputeCooldown)
    if err != nil {
        // Throttle backend trouble fails open; the recompute still runs.
        s.Log.Warn("throttle check failed", "town", townID, "err", err)
    }
    if !ok {
        return ErrThrottled
    }
    if err := s.Engine.RecomputeAllWindows(ctx, townID, opts); err != nil {
        return err
    }
    _, err = s.Engine.RecomputeSuggestions(ctx, townID)
    return err
}

// RecordLinkage is the operator's declarative "these categories are
// connected" statement. Ensure mode: repeating it never amplifies the
// edge. A same-category pair is a defined no-op and returns nil.
func (s *Service) RecordLinkage(ctx context.Context, townID string, from, to model.Category, weight float64) (*model.Edge, error) {
    e, err := s.Store.UpsertEdge(ctx, townID, from, to, weight, model.UpsertEnsure)
    if err == nil && e != nil {
        metrics.EdgeWrites.WithLabelValues(string(model.UpsertEnsure)).Inc()
    }
    return e, err
}

// Reinforce is the organic signal path: repeatable events compound.
func (s *Service) Reinforce(ctx context.Context, townID string, from, to model.Category, weight float64) (*model.Edge, error) {
    e, err := s.Store.UpsertEdge(ctx, townID, from, to, weight, model.UpsertIncrement)
    if err == nil && e != nil {
        metrics.EdgeWrites.WithLabelValues(string(model.UpsertIncrement)).Inc()
    }
    return e, err
}

// ReinforceFromCopy feeds generated copy back into the graph. Best-effort
// by contract; the caller's feature proceeds regardless.
func (s *Service) ReinforceFromCopy(ctx context.Context, townID string, from model.Category, text string) {
    s.Engine.TryEnrich(ctx, townID, from, text)
}

// AddSeasonDelta registers an operator-authored seasonal adjustment.
// Malformed window or season keys surface as ErrInvalidInput.
func (s *Service) AddSeasonDelta(ctx context.Context, d model.SeasonWeightDelta) error {
    return s.Store.AddSeasonDelta(ctx, d)
}
