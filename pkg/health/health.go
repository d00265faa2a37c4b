// Package health reports on the store, the catalog and the graph.
package health

import (
	"context"
	"sync"
	"time"
)

// DefaultTimeout bounds each check run by a HealthChecker.
const DefaultTimeout = 5 * time.Second

// NewHealthChecker creates a checker whose checks each get timeout to finish.
// A non-positive timeout means DefaultTimeout.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HealthChecker{checks: make(map[string]CheckFunc), timeout: timeout}
}

// RegisterCheck registers a health check, replacing one of the same name
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// Check runs every check concurrently. The worst status wins.
func (hc *HealthChecker) Check(ctx context.Context) Response {
	hc.mu.RLock()
	checks := make(map[string]CheckFunc, len(hc.checks))
	for name, fn := range hc.checks {
		checks[name] = fn
	}
	hc.mu.RUnlock()

	response := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(checks)),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, fn := range checks {
		name, fn := name, fn
		wg.Add(1)
		go func() {
			defer wg.Done()
			check := hc.run(ctx, name, fn)

			mu.Lock()
			defer mu.Unlock()
			response.Checks[name] = check
			response.Status = worse(response.Status, check.Status)
		}()
	}
	wg.Wait()

	return response
}

func (hc *HealthChecker) run(ctx context.Context, name string, fn CheckFunc) Check {
	ctx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	start := time.Now()
	check := fn(ctx)
	if check.Name == "" {
		check.Name = name
	}
	if check.Status == "" {
		check.Status = StatusHealthy
	}
	check.LastChecked = start
	check.Duration = time.Since(start)
	return check
}

var rank = map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}

func worse(a, b Status) Status {
	if rank[b] > rank[a] {
		return b
	}
	return a
}
