package storage

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

// Statistics tracks store statistics
type Statistics struct {
	NodeCount    uint64
	EdgeCount    uint64
	LastSnapshot time.Time
	TotalQueries uint64
	AvgQueryTime float64
}

// GetStatistics returns current store statistics
func (gs *GraphStorage) GetStatistics() Statistics {
	gs.mu.RLock()
	last := gs.stats.LastSnapshot
	gs.mu.RUnlock()

	return Statistics{
		NodeCount:    atomic.LoadUint64(&gs.stats.NodeCount),
		EdgeCount:    atomic.LoadUint64(&gs.stats.EdgeCount),
		TotalQueries: atomic.LoadUint64(&gs.stats.TotalQueries),
		LastSnapshot: last,
		AvgQueryTime: math.Float64frombits(atomic.LoadUint64(&gs.avgQueryTimeBits)),
	}
}

// trackQueryTime records query execution time for statistics
// Uses exponential moving average with atomic operations for thread-safety
func (gs *GraphStorage) trackQueryTime(duration time.Duration) {
	atomic.AddUint64(&gs.stats.TotalQueries, 1)

	durationMs := float64(duration.Nanoseconds()) / 1000000.0

	for {
		oldBits := atomic.LoadUint64(&gs.avgQueryTimeBits)
		oldAvg := math.Float64frombits(oldBits)
		newAvg := 0.9*oldAvg + 0.1*durationMs
		if atomic.CompareAndSwapUint64(&gs.avgQueryTimeBits, oldBits, math.Float64bits(newAvg)) {
			break
		}
	}
}

// startQueryTiming begins query time tracking and returns a cleanup function
// Usage: defer gs.startQueryTiming()()
func (gs *GraphStorage) startQueryTiming() func() {
	start := time.Now()
	return func() {
		gs.trackQueryTime(time.Since(start))
	}
}

// Counts returns the number of nodes per label and the number of edges.
func (gs *GraphStorage) Counts(ctx context.Context) (map[string]int, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, NewError("counts").Cause(err).Err()
	}

	gs.mu.RLock()
	defer gs.mu.RUnlock()

	byLabel := make(map[string]int, len(gs.nodesByLabel))
	for label, ids := range gs.nodesByLabel {
		byLabel[label] = len(ids)
	}
	return byLabel, len(gs.edges), nil
}
