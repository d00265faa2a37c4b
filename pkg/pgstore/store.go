// Package pgstore is a PostgreSQL graph store. Nodes are rows keyed by
// (label, id) with a jsonb property bag; edges reference their endpoints by
// foreign key.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/provenance-graph/pkg/storage"
)

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements the graph store contract on PostgreSQL.
type Store struct {
	pool DBPool
}

// Options configures Connect.
type Options struct {
	URI      string
	User     string
	Password string
	MaxConns int32
}

// Connect opens a pool, verifies it and creates the tables.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	config, err := pgxpool.ParseConfig(opts.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if opts.User != "" {
		config.ConnConfig.User = opts.User
	}
	if opts.Password != "" {
		config.ConnConfig.Password = opts.Password
	}
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	s, err := New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

// New wraps an existing pool after checking it is reachable.
func New(ctx context.Context, pool DBPool) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Migrate creates the node and edge tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// MergeOnID inserts the node with onCreate (plus its id) or, when a row
// already exists, merges onMatch into the stored properties.
func (s *Store) MergeOnID(ctx context.Context, label, id string, onCreate, onMatch map[string]storage.Value) (bool, error) {
	if label == "" || id == "" {
		return false, storage.NewError("merge").Node(label, id).Cause(storage.ErrInvalidID).Err()
	}

	create := make(map[string]storage.Value, len(onCreate)+1)
	for k, v := range onCreate {
		create[k] = v
	}
	create["id"] = storage.StringValue(id)

	createJSON, err := json.Marshal(create)
	if err != nil {
		return false, storage.NewError("merge").Node(label, id).Cause(storage.ErrMarshalFailed).Context(err.Error()).Err()
	}
	patchJSON, err := json.Marshal(nonNil(onMatch))
	if err != nil {
		return false, storage.NewError("merge").Node(label, id).Cause(storage.ErrMarshalFailed).Context(err.Error()).Err()
	}

	var created bool
	err = s.pool.QueryRow(ctx, mergeNodeSQL, label, id, createJSON, patchJSON).Scan(&created)
	if err != nil {
		return false, storage.NewError("merge").Node(label, id).Cause(err).Err()
	}
	return created, nil
}

// RemoveFields deletes property keys from a node. The id key is kept.
func (s *Store) RemoveFields(ctx context.Context, label, id string, keys []string) error {
	drop := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "id" {
			drop = append(drop, k)
		}
	}

	tag, err := s.pool.Exec(ctx, removeFieldsSQL, label, id, drop)
	if err != nil {
		return storage.NewError("removeFields").Node(label, id).Cause(err).Err()
	}
	if tag.RowsAffected() == 0 {
		return storage.NodeNotFoundError("removeFields", label, id)
	}
	return nil
}

// GetNode retrieves a node by label and id.
func (s *Store) GetNode(ctx context.Context, label, id string) (*storage.Node, error) {
	row := s.pool.QueryRow(ctx, getNodeSQL, label, id)
	node, err := scanNode(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.NodeNotFoundError("get", label, id)
	}
	if err != nil {
		return nil, storage.NewError("get").Node(label, id).Cause(err).Err()
	}
	return node, nil
}

// MatchAll returns every node with the label in creation order.
func (s *Store) MatchAll(ctx context.Context, label string) ([]*storage.Node, error) {
	rows, err := s.pool.Query(ctx, matchAllSQL, label)
	if err != nil {
		return nil, storage.NewError("matchAll").Context(label).Cause(err).Err()
	}
	defer rows.Close()

	nodes := make([]*storage.Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, storage.NewError("matchAll").Context(label).Cause(err).Err()
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.NewError("matchAll").Context(label).Cause(err).Err()
	}
	return nodes, nil
}

// DeleteNode removes the node's edges and then the node in one transaction.
func (s *Store) DeleteNode(ctx context.Context, label, id string) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storage.NewError("delete").Node(label, id).Cause(err).Err()
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) && err == nil {
			err = storage.NewError("delete").Node(label, id).Cause(rbErr).Err()
		}
	}()

	if _, err := tx.Exec(ctx, deleteIncidentEdgesSQL, label, id); err != nil {
		return storage.NewError("delete").Node(label, id).Cause(err).Err()
	}
	tag, err := tx.Exec(ctx, deleteNodeSQL, label, id)
	if err != nil {
		return storage.NewError("delete").Node(label, id).Cause(err).Err()
	}
	if tag.RowsAffected() == 0 {
		return storage.NodeNotFoundError("delete", label, id)
	}
	if err := tx.Commit(ctx); err != nil {
		return storage.NewError("delete").Node(label, id).Cause(err).Err()
	}
	return nil
}

// Counts returns the number of nodes per label and the number of edges.
func (s *Store) Counts(ctx context.Context) (map[string]int, int, error) {
	rows, err := s.pool.Query(ctx, countNodesSQL)
	if err != nil {
		return nil, 0, storage.NewError("counts").Cause(err).Err()
	}
	defer rows.Close()

	byLabel := make(map[string]int)
	for rows.Next() {
		var label string
		var n int64
		if err := rows.Scan(&label, &n); err != nil {
			return nil, 0, storage.NewError("counts").Cause(err).Err()
		}
		byLabel[label] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storage.NewError("counts").Cause(err).Err()
	}

	var edges int64
	if err := s.pool.QueryRow(ctx, countEdgesSQL).Scan(&edges); err != nil {
		return nil, 0, storage.NewError("counts").Cause(err).Err()
	}
	return byLabel, int(edges), nil
}

func scanNode(row pgx.Row) (*storage.Node, error) {
	var (
		node     storage.Node
		props    []byte
		created  time.Time
		modified time.Time
	)
	if err := row.Scan(&node.Label, &node.ID, &props, &created, &modified); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(props, &node.Properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties of %s/%s: %w", node.Label, node.ID, err)
	}
	if node.Properties == nil {
		node.Properties = make(map[string]storage.Value)
	}
	node.CreatedAt = created.UnixNano()
	node.UpdatedAt = modified.UnixNano()
	return &node, nil
}

func nonNil(m map[string]storage.Value) map[string]storage.Value {
	if m == nil {
		return map[string]storage.Value{}
	}
	return m
}
