package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// holds all prometheus metrics
type Metrics struct {
	// latency histograms
	EncodeLatency prometheus.Histogram
	SolveLatency  prometheus.Histogram

	// verdict counters
	SolveResults  *prometheus.CounterVec
	LimitExceeded prometheus.Counter

	// instance size gauges
	Vertices        prometheus.Gauge
	ValidatorsTotal prometheus.Gauge
	Clauses         prometheus.Gauge
	AuxVars         prometheus.Gauge

	// split size per quorum when a split is found
	SplitSize *prometheus.GaugeVec
}

// create and register all prometheus metrics
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		EncodeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_latency_seconds",
			Help:      "Latency of graph construction and CNF encoding",
			Buckets:   prometheus.DefBuckets,
		}),

		SolveLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_latency_seconds",
			Help:      "Latency of the SAT search",
			Buckets:   prometheus.DefBuckets,
		}),

		SolveResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solve_results_total",
			Help:      "Total solve verdicts by result",
		}, []string{"result"}),

		LimitExceeded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "limit_exceeded_total",
			Help:      "Total analyses aborted on a resource limit",
		}),

		Vertices: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_vertices",
			Help:      "Vertices in the fbas dependency graph",
		}),

		ValidatorsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_validators",
			Help:      "Validator vertices in the fbas dependency graph",
		}),

		Clauses: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "formula_clauses",
			Help:      "Clauses in the encoded formula",
		}),

		AuxVars: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "formula_aux_vars",
			Help:      "Tseitin auxiliary variables in the encoded formula",
		}),

		SplitSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "split_size",
			Help:      "Validators per quorum in the found split",
		}, []string{"quorum"}),
	}

	return m
}

func (m *Metrics) RecordResult(result string) {
	m.SolveResults.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordLimitExceeded() {
	m.LimitExceeded.Inc()
}
