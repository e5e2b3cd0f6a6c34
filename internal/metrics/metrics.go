// Package metrics registers the Prometheus collectors the dashboard's
// /metrics endpoint serves. No example repo in the retrieval pack wires
// prometheus/client_golang end to end, so this package follows the
// library's own promauto idiom directly rather than imitating a pack
// file (documented in DESIGN.md).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the pipeline engine updates. New always
// registers against the default registry, matching promhttp.Handler()'s
// default gatherer used in internal/api. A Pipeline with no Metrics
// attached holds a nil *Metrics and skips instrumentation.
type Metrics struct {
	NodesEvaluated     *prometheus.CounterVec
	NodesFailed        *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec
	CalculateDuration  prometheus.Histogram
	StorePoints        prometheus.Gauge
}

// New registers and returns the engine's metric collectors. Calling it
// more than once against the same registry panics (promauto's behavior),
// so callers should build exactly one Metrics per process.
func New() *Metrics {
	return &Metrics{
		NodesEvaluated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "featuregraph",
			Name:      "node_evaluations_total",
			Help:      "Total number of times a feature node's calculate() was invoked.",
		}, []string{"node"}),
		NodesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "featuregraph",
			Name:      "node_failures_total",
			Help:      "Total number of recovered node failures, by kind.",
		}, []string{"node", "kind"}),
		EvaluationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "featuregraph",
			Name:      "node_evaluation_duration_seconds",
			Help:      "Time spent in a single node's calculate(), including its store reads.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node"}),
		CalculateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "featuregraph",
			Name:      "pipeline_calculate_duration_seconds",
			Help:      "Wall-clock time for one full Pipeline.Calculate pass over the DAG.",
			Buckets:   prometheus.DefBuckets,
		}),
		StorePoints: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "featuregraph",
			Name:      "store_points",
			Help:      "Approximate number of retained points across every series in the State Store.",
		}),
	}
}
