package metrics

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/prometheus/common/expfmt"
)

// RecordOperation records a persistence operation and its outcome
func (r *Registry) RecordOperation(label, operation, result string, duration time.Duration) {
	r.OperationsTotal.WithLabelValues(label, operation, result).Inc()
	r.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRejectedEdge counts an edge refused by the rule table. reason is one
// of "rule", "cardinality", "dangling", "missing-node" or "unknown-type".
func (r *Registry) RecordRejectedEdge(reason string) {
	r.RejectedEdges.WithLabelValues(reason).Inc()
}

// UpdateStoreCounts sets the node gauges per label and the edge gauge
func (r *Registry) UpdateStoreCounts(nodesByLabel map[string]int, edges int) {
	for label, n := range nodesByLabel {
		r.StoreNodesTotal.WithLabelValues(label).Set(float64(n))
	}
	r.StoreEdgesTotal.Set(float64(edges))
}

// RecordVersionRun records one version computation
func (r *Registry) RecordVersionRun(duration time.Duration, cyclicDefinitions []string, dangling int) {
	r.VersionRuns.Inc()
	r.VersionRunDuration.Observe(duration.Seconds())
	for _, def := range cyclicDefinitions {
		r.CyclesDetected.WithLabelValues(def).Inc()
	}
	r.DanglingNodes.Set(float64(dangling))
}

// RecordAudit replaces the audit violation gauges with the given counts,
// keyed by [type, severity].
func (r *Registry) RecordAudit(counts map[[2]string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.AuditViolations.Reset()
	for k, n := range counts {
		r.AuditViolations.WithLabelValues(k[0], k[1]).Set(float64(n))
	}
}

// RecordImportItem counts one imported item
func (r *Registry) RecordImportItem(kind string, ok bool) {
	result := "success"
	if !ok {
		result = "error"
	}
	r.ImportItems.WithLabelValues(kind, result).Inc()
}

// UpdateSystemMetrics refreshes uptime, goroutine and heap gauges
func (r *Registry) UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(r.started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
}

// WriteText writes every registered metric in the Prometheus text format
func (r *Registry) WriteText(w io.Writer) error {
	r.UpdateSystemMetrics()

	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
