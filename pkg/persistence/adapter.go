// Package persistence is the adapter between provenance records and a graph
// store. It validates records, enforces the relationship rule table on edges
// and reports every outcome as a tagged Result.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/constraints"
	"github.com/dd0wney/provenance-graph/pkg/logging"
	"github.com/dd0wney/provenance-graph/pkg/metrics"
	"github.com/dd0wney/provenance-graph/pkg/schema"
	"github.com/dd0wney/provenance-graph/pkg/storage"
)

// Sentinel errors
var (
	ErrUnknownLabel          = errors.New("unknown label")
	ErrUndeclaredInformation = errors.New("information field not declared by definition")
	ErrDisallowedInformation = errors.New("information value not allowed")
	ErrPanic                 = errors.New("store panicked")
	ErrTimeout               = errors.New("store call timed out")
)

// GraphStore is the store contract the adapter drives. Both
// storage.GraphStorage and pgstore.Store implement it.
type GraphStore interface {
	constraints.GraphReader
	MergeOnID(ctx context.Context, label, id string, onCreate, onMatch map[string]storage.Value) (bool, error)
	RemoveFields(ctx context.Context, label, id string, keys []string) error
	DeleteNode(ctx context.Context, label, id string) error
	CreateEdge(ctx context.Context, edge *storage.Edge) (*storage.Edge, error)
	DeleteEdge(ctx context.Context, id string) error
}

// Config tunes the adapter.
type Config struct {
	// StoreTimeout bounds every adapter operation.
	StoreTimeout time.Duration `yaml:"storeTimeout" validate:"gt=0"`
}

// DefaultConfig returns the adapter defaults.
func DefaultConfig() Config {
	return Config{StoreTimeout: 10 * time.Second}
}

// Adapter persists provenance records.
type Adapter struct {
	store   GraphStore
	catalog *catalog.Catalog
	guard   *constraints.EdgeGuard
	schemas *schema.Registry
	cfg     Config
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures an Adapter.
type Option func(*Adapter)

func WithConfig(cfg Config) Option { return func(a *Adapter) { a.cfg = cfg } }

func WithLogger(l logging.Logger) Option { return func(a *Adapter) { a.logger = l } }

func WithMetrics(m *metrics.Registry) Option { return func(a *Adapter) { a.metrics = m } }

// WithSchemas replaces the built-in provenance schemas.
func WithSchemas(r *schema.Registry) Option { return func(a *Adapter) { a.schemas = r } }

// NewAdapter creates an adapter over store using the catalog's definitions
// and rules.
func NewAdapter(store GraphStore, c *catalog.Catalog, opts ...Option) *Adapter {
	a := &Adapter{
		store:   store,
		catalog: c,
		guard:   constraints.NewEdgeGuard(c),
		cfg:     DefaultConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.schemas == nil {
		a.schemas = schema.MustProvenance()
	}
	if a.logger == nil {
		a.logger = logging.DefaultLogger()
	}
	if a.metrics == nil {
		a.metrics = metrics.DefaultRegistry()
	}
	if a.cfg.StoreTimeout <= 0 {
		a.cfg.StoreTimeout = DefaultConfig().StoreTimeout
	}
	a.logger = a.logger.With(logging.Component("persistence"))
	return a
}

// Catalog returns the catalog the adapter enforces.
func (a *Adapter) Catalog() *catalog.Catalog { return a.catalog }

// Store returns the underlying graph store.
func (a *Adapter) Store() GraphStore { return a.store }

// run executes one operation under the store timeout. Panics become error
// results and every outcome is logged and counted.
func (a *Adapter) run(ctx context.Context, label, op string, fn func(ctx context.Context) Result) (res Result) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			res = failure(fmt.Errorf("%w: %s: %v", ErrPanic, op, r))
		}
		if res.Err != nil && errors.Is(res.Err, context.DeadlineExceeded) {
			res = failure(fmt.Errorf("%w: %s after %s: %w", ErrTimeout, op, a.cfg.StoreTimeout, res.Err))
		}

		elapsed := time.Since(start)
		a.metrics.RecordOperation(label, op, string(res.Status), elapsed)

		fields := []logging.Field{
			logging.Operation(op),
			logging.StoreLabel(label),
			logging.Status(string(res.Status)),
			logging.Latency(elapsed),
		}
		switch res.Status {
		case StatusSuccess:
			a.logger.Debug("store operation", fields...)
		case StatusNotFound:
			a.logger.Info("store operation found nothing", append(fields, logging.Error(res.Err))...)
		default:
			a.logger.Warn("store operation failed", append(fields, logging.Error(res.Err))...)
		}
	}()

	return fn(ctx)
}

// fromError maps store errors onto results.
func fromError(err error) Result {
	if storage.IsNotFound(err) {
		return notFound(err)
	}
	return failure(err)
}
