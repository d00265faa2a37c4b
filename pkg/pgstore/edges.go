package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dd0wney/provenance-graph/pkg/storage"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const nodeExistsSQL = `SELECT EXISTS (SELECT 1 FROM prov_nodes WHERE label = $1 AND id = $2)`

// CreateEdge stores an edge. The caller assigns the id; both endpoints must
// exist.
func (s *Store) CreateEdge(ctx context.Context, edge *storage.Edge) (*storage.Edge, error) {
	if edge.ID == "" || edge.Type == "" {
		return nil, storage.NewError("createEdge").Edge(edge.ID).Cause(storage.ErrInvalidID).Err()
	}

	props, err := json.Marshal(nonNil(edge.Properties))
	if err != nil {
		return nil, storage.NewError("createEdge").Edge(edge.ID).Cause(storage.ErrMarshalFailed).Context(err.Error()).Err()
	}

	var created time.Time
	err = s.pool.QueryRow(ctx, insertEdgeSQL,
		edge.ID, edge.Type, edge.From.Label, edge.From.ID, edge.To.Label, edge.To.ID, props,
	).Scan(&created)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case uniqueViolation:
				return nil, storage.NewError("createEdge").Edge(edge.ID).Cause(storage.ErrDuplicateEdge).Err()
			case foreignKeyViolation:
				return nil, storage.NewError("createEdge").Edge(edge.ID).Cause(storage.ErrNodeNotFound).Context(pgErr.ConstraintName).Err()
			}
		}
		return nil, storage.NewError("createEdge").Edge(edge.ID).Cause(err).Err()
	}

	stored := edge.Clone()
	stored.CreatedAt = created.UnixNano()
	return stored, nil
}

// DeleteEdge deletes an edge by ID
func (s *Store) DeleteEdge(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, deleteEdgeSQL, id)
	if err != nil {
		return storage.NewError("deleteEdge").Edge(id).Cause(err).Err()
	}
	if tag.RowsAffected() == 0 {
		return storage.EdgeNotFoundError("deleteEdge", id)
	}
	return nil
}

// GetEdge retrieves an edge by ID
func (s *Store) GetEdge(ctx context.Context, id string) (*storage.Edge, error) {
	edge, err := scanEdge(s.pool.QueryRow(ctx, getEdgeSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.EdgeNotFoundError("getEdge", id)
	}
	if err != nil {
		return nil, storage.NewError("getEdge").Edge(id).Cause(err).Err()
	}
	return edge, nil
}

// OutgoingEdges returns the edges leaving ref.
func (s *Store) OutgoingEdges(ctx context.Context, ref storage.NodeRef) ([]*storage.Edge, error) {
	return s.adjacent(ctx, "outgoingEdges", outgoingEdgesSQL, ref)
}

// IncomingEdges returns the edges arriving at ref.
func (s *Store) IncomingEdges(ctx context.Context, ref storage.NodeRef) ([]*storage.Edge, error) {
	return s.adjacent(ctx, "incomingEdges", incomingEdgesSQL, ref)
}

// EdgesByType returns every edge of the type in creation order.
func (s *Store) EdgesByType(ctx context.Context, edgeType string) ([]*storage.Edge, error) {
	edges, err := s.queryEdges(ctx, edgesByTypeSQL, edgeType)
	if err != nil {
		return nil, storage.NewError("edgesByType").Context(edgeType).Cause(err).Err()
	}
	return edges, nil
}

// adjacent distinguishes a node without edges from a missing node only when
// the edge query comes back empty.
func (s *Store) adjacent(ctx context.Context, op, query string, ref storage.NodeRef) ([]*storage.Edge, error) {
	edges, err := s.queryEdges(ctx, query, ref.Label, ref.ID)
	if err != nil {
		return nil, storage.NewError(op).Node(ref.Label, ref.ID).Cause(err).Err()
	}
	if len(edges) > 0 {
		return edges, nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, nodeExistsSQL, ref.Label, ref.ID).Scan(&exists); err != nil {
		return nil, storage.NewError(op).Node(ref.Label, ref.ID).Cause(err).Err()
	}
	if !exists {
		return nil, storage.NodeNotFoundError(op, ref.Label, ref.ID)
	}
	return edges, nil
}

func (s *Store) queryEdges(ctx context.Context, query string, args ...any) ([]*storage.Edge, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edges := make([]*storage.Edge, 0)
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

func scanEdge(row pgx.Row) (*storage.Edge, error) {
	var (
		edge    storage.Edge
		props   []byte
		created time.Time
	)
	err := row.Scan(&edge.ID, &edge.Type,
		&edge.From.Label, &edge.From.ID, &edge.To.Label, &edge.To.ID,
		&props, &created)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(props, &edge.Properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties of edge %s: %w", edge.ID, err)
	}
	edge.CreatedAt = created.UnixNano()
	return &edge, nil
}
