package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "provgraph"

func (r *Registry) initAdapterMetrics() {
	r.OperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of persistence operations by label, operation and result",
		},
		[]string{"label", "operation", "result"},
	)

	r.OperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Persistence operation duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation"},
	)

	r.RejectedEdges = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_edges_total",
			Help:      "Dependency edges rejected by the relationship rule table",
		},
		[]string{"reason"},
	)
}

func (r *Registry) initStoreMetrics() {
	r.StoreNodesTotal = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_nodes",
			Help:      "Number of stored nodes by label",
		},
		[]string{"label"},
	)

	r.StoreEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_edges",
			Help:      "Number of stored edges",
		},
	)
}

func (r *Registry) initVersioningMetrics() {
	r.VersionRuns = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_runs_total",
			Help:      "Number of version computations",
		},
	)

	r.VersionRunDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "version_run_duration_seconds",
			Help:      "Duration of a full version computation",
			Buckets:   prometheus.DefBuckets,
		},
	)

	r.CyclesDetected = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_detected_total",
			Help:      "Dependency cycles found while computing versions",
		},
		[]string{"definition"},
	)

	r.DanglingNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dangling_nodes",
			Help:      "Nodes referencing an unknown definition in the last version run",
		},
	)
}

func (r *Registry) initAuditMetrics() {
	r.AuditViolations = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_violations",
			Help:      "Violations reported by the last audit by type and severity",
		},
		[]string{"type", "severity"},
	)

	r.ImportItems = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_items_total",
			Help:      "Items processed by the importer by kind and result",
		},
		[]string{"kind", "result"},
	)
}

func (r *Registry) initSystemMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Time since the process started in seconds",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Number of goroutines",
		},
	)

	r.MemoryAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Bytes of allocated heap objects",
		},
	)
}
