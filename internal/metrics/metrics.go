package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the worker.
    Registry = prometheus.NewRegistry()
    // EdgeWrites counts graph edge upserts by mode.
    EdgeWrites = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "towngraph_edge_writes_total", Help: "Graph edge upserts by mode."},
        []string{"mode"},
    )
    // Recomputes counts artifact recomputations by artifact and outcome.
    Recomputes = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "towngraph_recomputes_total", Help: "Artifact recomputations by artifact and outcome."},
        []string{"artifact", "outcome"},
    )
    // RecomputeDuration records recomputation durations in seconds.
    RecomputeDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "towngraph_recompute_duration_seconds", Help: "Recomputation duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"artifact"},
    )
    // EnrichOutcomes counts feedback-loop edge writes by outcome.
    EnrichOutcomes = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "towngraph_enrich_total", Help: "Feedback-loop enrichment attempts by outcome."},
        []string{"outcome"},
    )
    // DueTargets records how many targets each scheduler scan found due.
    DueTargets = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "towngraph_due_targets", Help: "Due targets per scheduler scan.", Buckets: []float64{0, 1, 2, 5, 10, 25, 50}},
        []string{"artifact"},
    )
)

// RegisterDefault registers collectors to the dedicated registry.
func RegisterDefault() {
    regOnce.Do(func() {
        Registry.MustRegister(EdgeWrites)
        Registry.MustRegister(Recomputes)
        Registry.MustRegister(RecomputeDuration)
        Registry.MustRegister(EnrichOutcomes)
        Registry.MustRegister(DueTargets)
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
