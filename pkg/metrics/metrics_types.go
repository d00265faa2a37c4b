package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Persistence adapter metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	RejectedEdges     *prometheus.CounterVec

	// Store metrics
	StoreNodesTotal *prometheus.GaugeVec
	StoreEdgesTotal prometheus.Gauge

	// Version engine metrics
	VersionRuns        prometheus.Counter
	VersionRunDuration prometheus.Histogram
	CyclesDetected     *prometheus.CounterVec
	DanglingNodes      prometheus.Gauge

	// Audit and import metrics
	AuditViolations *prometheus.GaugeVec
	ImportItems     *prometheus.CounterVec

	// System metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry *prometheus.Registry
	started  time.Time
	mu       sync.Mutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		started:  time.Now(),
	}

	r.initAdapterMetrics()
	r.initStoreMetrics()
	r.initVersioningMetrics()
	r.initAuditMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
