package storage

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNodeNotFound    = errors.New("node not found")
	ErrEdgeNotFound    = errors.New("edge not found")
	ErrDuplicateEdge   = errors.New("edge already exists")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidValue    = errors.New("unsupported property value")
	ErrMarshalFailed   = errors.New("marshal failed")
	ErrSnapshotCorrupt = errors.New("snapshot corrupt")
)

// StorageError provides structured error information for storage operations.
type StorageError struct {
	Op      string // Operation that failed (e.g., "merge", "deleteEdge")
	Entity  string // Entity type (e.g., "node", "edge", "snapshot")
	Label   string // Node label or edge type
	ID      string // Entity ID (if applicable)
	Field   string // Property name (for property operations)
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	entity := e.Entity
	if e.Label != "" {
		entity = fmt.Sprintf("%s %s", e.Entity, e.Label)
	}
	if e.ID != "" {
		if e.Field != "" {
			return fmt.Sprintf("%s %s %q (field %s): %v", e.Op, entity, e.ID, e.Field, e.Cause)
		}
		return fmt.Sprintf("%s %s %q: %v", e.Op, entity, e.ID, e.Cause)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s %s (field %s): %v", e.Op, entity, e.Field, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, entity, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *StorageError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building StorageErrors.
type ErrorBuilder struct {
	err StorageError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: StorageError{Op: op}}
}

// Node sets the entity to a node of the given label and id.
func (b *ErrorBuilder) Node(label, id string) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.Label = label
	b.err.ID = id
	return b
}

// Edge sets the entity to "edge" with the given ID.
func (b *ErrorBuilder) Edge(id string) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.ID = id
	return b
}

// Snapshot sets the entity to "snapshot".
func (b *ErrorBuilder) Snapshot() *ErrorBuilder {
	b.err.Entity = "snapshot"
	return b
}

// Field sets the property name.
func (b *ErrorBuilder) Field(name string) *ErrorBuilder {
	b.err.Field = name
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed StorageError.
func (b *ErrorBuilder) Build() *StorageError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// NodeNotFoundError creates a node not found error.
func NodeNotFoundError(op, label, id string) error {
	return NewError(op).Node(label, id).Cause(ErrNodeNotFound).Err()
}

// EdgeNotFoundError creates an edge not found error.
func EdgeNotFoundError(op, id string) error {
	return NewError(op).Edge(id).Cause(ErrEdgeNotFound).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrEdgeNotFound)
}
