package health

import (
	"context"
	"fmt"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
	"github.com/dd0wney/provenance-graph/pkg/storage"
	"github.com/dd0wney/provenance-graph/pkg/versioning"
)

// Counter is implemented by both store backends.
type Counter interface {
	Counts(ctx context.Context) (map[string]int, int, error)
}

// StoreCheck reports whether the store answers and how much it holds
func StoreCheck(store Counter) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "store", Details: make(map[string]any)}

		nodes, edges, err := store.Counts(ctx)
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}

		for label, n := range nodes {
			check.Details["nodes_"+label] = n
		}
		check.Details["edges"] = edges
		if st, ok := store.(interface{ GetStatistics() storage.Statistics }); ok {
			stats := st.GetStatistics()
			check.Details["queries"] = stats.TotalQueries
			check.Details["avg_query_ms"] = stats.AvgQueryTime
			if !stats.LastSnapshot.IsZero() {
				check.Details["last_snapshot"] = stats.LastSnapshot
			}
		}
		check.Status = StatusHealthy
		check.Message = "Connected"
		return check
	}
}

// CatalogCheck reports the size of the loaded catalog
func CatalogCheck(c *catalog.Catalog) CheckFunc {
	return func(context.Context) Check {
		defs, rules := len(c.Definitions()), len(c.Rules())
		check := Check{
			Name:    "catalog",
			Status:  StatusHealthy,
			Details: map[string]any{"definitions": defs, "rules": rules},
		}
		if defs == 0 {
			check.Status = StatusDegraded
			check.Message = "Catalog has no definitions"
		}
		return check
	}
}

// GraphCheck computes versions over the stored graph. Dependency cycles and
// nodes with unknown definitions degrade the graph; a failed load is
// unhealthy.
func GraphCheck(load func(ctx context.Context) (*provenance.Graph, error), engine *versioning.Engine, opts ...versioning.Option) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "graph", Details: make(map[string]any)}

		g, err := load(ctx)
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}

		report := engine.Compute(g, opts...)
		cycles := report.Cycles()
		check.Details["nodes"] = len(g.Nodes)
		check.Details["dependencies"] = len(g.Dependencies)
		check.Details["cycles"] = len(cycles)
		check.Details["dangling"] = report.Dangling()

		if len(cycles) > 0 || report.Dangling() > 0 {
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("%d cyclic groups, %d dangling nodes", len(cycles), report.Dangling())
			return check
		}
		check.Status = StatusHealthy
		check.Message = "All nodes versioned"
		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func(context.Context) Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		if sys > 0 && float64(alloc)/float64(sys)*100 > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
