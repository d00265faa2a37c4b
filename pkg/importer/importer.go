package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/provenance-graph/pkg/logging"
	"github.com/dd0wney/provenance-graph/pkg/metrics"
	"github.com/dd0wney/provenance-graph/pkg/persistence"
	"github.com/dd0wney/provenance-graph/pkg/provenance"
	"github.com/dd0wney/provenance-graph/pkg/schema"
)

// Item kinds reported in a Summary.
const (
	KindStudy       = "study"
	KindNode        = "node"
	KindInformation = "information"
	KindDependency  = "dependency"
)

// Failure is one item the adapter refused.
type Failure struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Status  string `json:"result"`
	Message string `json:"message"`
}

// Summary counts what an import wrote and lists what it could not.
type Summary struct {
	Studies      int           `json:"studies"`
	Nodes        int           `json:"nodes"`
	Information  int           `json:"information"`
	Dependencies int           `json:"dependencies"`
	Failures     []Failure     `json:"failures,omitempty"`
	Duration     time.Duration `json:"duration"`

	mu sync.Mutex
}

// Failed reports whether any item was refused.
func (s *Summary) Failed() bool { return len(s.Failures) > 0 }

func (s *Summary) record(kind, id string, res persistence.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !res.OK() {
		s.Failures = append(s.Failures, Failure{Kind: kind, ID: id, Status: string(res.Status), Message: res.Message})
		return false
	}
	switch kind {
	case KindStudy:
		s.Studies++
	case KindNode:
		s.Nodes++
	case KindInformation:
		s.Information++
	case KindDependency:
		s.Dependencies++
	}
	return true
}

// Importer writes exports through a persistence adapter.
type Importer struct {
	adapter *persistence.Adapter
	workers int
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures an Importer.
type Option func(*Importer)

// WithWorkers bounds the number of concurrent node and study upserts.
func WithWorkers(n int) Option { return func(i *Importer) { i.workers = n } }

func WithLogger(l logging.Logger) Option { return func(i *Importer) { i.logger = l } }

func WithMetrics(m *metrics.Registry) Option { return func(i *Importer) { i.metrics = m } }

// New creates an importer.
func New(a *persistence.Adapter, opts ...Option) *Importer {
	i := &Importer{adapter: a, workers: 8}
	for _, opt := range opts {
		opt(i)
	}
	if i.workers < 1 {
		i.workers = 1
	}
	if i.logger == nil {
		i.logger = logging.DefaultLogger()
	}
	if i.metrics == nil {
		i.metrics = metrics.DefaultRegistry()
	}
	i.logger = i.logger.With(logging.Component("importer"))
	return i
}

// Import writes studies, then nodes, then information fields, then
// dependencies. Studies and nodes are upserted concurrently. Dependencies are
// written in export order because one-to-one rules make the outcome of an
// edge depend on the edges before it. Refused items are listed in the
// summary. The returned error is set when ctx ends the import early, or
// when the export repeats a study or node id, in which case nothing is
// written.
func (i *Importer) Import(ctx context.Context, e *Export) (*Summary, error) {
	start := time.Now()
	s := &Summary{}

	if err := i.checkUnique(e); err != nil {
		return s, err
	}

	if err := i.upsertAll(ctx, s, KindStudy, len(e.Studies), func(ctx context.Context, n int) (string, persistence.Result) {
		st := e.Studies[n]
		return st.ID, i.adapter.UpsertStudy(ctx, st)
	}); err != nil {
		return s, err
	}
	if err := i.upsertAll(ctx, s, KindNode, len(e.ProvenanceNodes), func(ctx context.Context, n int) (string, persistence.Result) {
		node := e.ProvenanceNodes[n]
		return node.ID, i.adapter.UpsertNode(ctx, node)
	}); err != nil {
		return s, err
	}

	fields := make(map[string]int, len(e.InformationFields))
	for n, f := range e.InformationFields {
		fields[f.ID] = n
	}
	for _, rel := range e.InformationRelationships {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		n, ok := fields[rel.Target]
		if !ok {
			i.fail(s, KindInformation, rel.Target, fmt.Sprintf("information field %q is not in the export", rel.Target))
			continue
		}
		f := e.InformationFields[n]
		i.count(s, KindInformation, f.ID, i.adapter.SetInformation(ctx, rel.Source, f.Key, f.Value))
	}

	for _, rel := range e.DependencyRelationships {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		id := rel.ID
		if id == "" {
			id = rel.Source + "->" + rel.Target
		}
		i.count(s, KindDependency, id, i.adapter.CreateEdgeWithID(ctx, rel.ID, rel.Source, rel.Target, string(rel.Type)))
	}

	s.Duration = time.Since(start)
	i.logger.Info("import finished",
		logging.Int("studies", s.Studies),
		logging.Int("nodes", s.Nodes),
		logging.Int("information", s.Information),
		logging.Int("dependencies", s.Dependencies),
		logging.Int("failures", len(s.Failures)),
		logging.Latency(s.Duration))
	return s, nil
}

func (i *Importer) checkUnique(e *Export) error {
	studies := make([]schema.Record, len(e.Studies))
	for n, st := range e.Studies {
		studies[n] = st.Record()
	}
	if err := i.adapter.CheckUnique(provenance.StudyLabel, studies); err != nil {
		return fmt.Errorf("import studies: %w", err)
	}

	nodes := make([]schema.Record, len(e.ProvenanceNodes))
	for n, node := range e.ProvenanceNodes {
		nodes[n] = node.Record()
	}
	if err := i.adapter.CheckUnique(provenance.NodeLabel, nodes); err != nil {
		return fmt.Errorf("import nodes: %w", err)
	}
	return nil
}

func (i *Importer) upsertAll(ctx context.Context, s *Summary, kind string, total int, fn func(context.Context, int) (string, persistence.Result)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)

	for n := 0; n < total; n++ {
		n := n
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, res := fn(ctx, n)
			i.count(s, kind, id, res)
			return nil
		})
	}
	return g.Wait()
}

func (i *Importer) count(s *Summary, kind, id string, res persistence.Result) {
	ok := s.record(kind, id, res)
	i.metrics.RecordImportItem(kind, ok)
	if !ok {
		i.logger.Warn("import item refused",
			logging.String("kind", kind),
			logging.String("id", id),
			logging.Status(string(res.Status)),
			logging.String("message", res.Message))
	}
}

func (i *Importer) fail(s *Summary, kind, id, msg string) {
	i.count(s, kind, id, persistence.Result{Status: persistence.StatusError, Message: msg})
}
