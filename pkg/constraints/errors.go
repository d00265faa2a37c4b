package constraints

import (
	"errors"
	"fmt"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
	"github.com/dd0wney/provenance-graph/pkg/storage"
)

// Sentinel errors returned by EdgeGuard.Check.
var (
	ErrRuleViolation        = errors.New("no relationship rule permits this edge")
	ErrCardinalityViolation = errors.New("one-to-one rule already satisfied")
	ErrDanglingDefinition   = errors.New("node references an unknown definition")
	ErrNodeNotFound         = storage.ErrNodeNotFound
)

// ErrUnknownViolationType is returned by ParseViolationType.
var ErrUnknownViolationType = errors.New("unknown violation type")

// EdgeError describes a rejected edge.
type EdgeError struct {
	Cause            error
	Source           string
	Target           string
	SourceDefinition string
	TargetDefinition string
	Type             catalog.RelationshipType
	RuleID           string
	ExistingEdge     string
}

func (e *EdgeError) Error() string {
	switch {
	case e.ExistingEdge != "":
		return fmt.Sprintf("edge %s -[%s]-> %s: %v (rule %s, existing edge %s)",
			e.Source, e.Type, e.Target, e.Cause, e.RuleID, e.ExistingEdge)
	case e.SourceDefinition != "" && e.TargetDefinition != "":
		return fmt.Sprintf("edge %s -[%s]-> %s: %v (%q to %q)",
			e.Source, e.Type, e.Target, e.Cause, e.SourceDefinition, e.TargetDefinition)
	}
	return fmt.Sprintf("edge %s -[%s]-> %s: %v", e.Source, e.Type, e.Target, e.Cause)
}

func (e *EdgeError) Unwrap() error { return e.Cause }

// DanglingDefinitionError reports a node whose definitionId is not in the
// catalog.
type DanglingDefinitionError struct {
	NodeID       string
	DefinitionID string
}

func (e *DanglingDefinitionError) Error() string {
	return fmt.Sprintf("node %s: %v %q", e.NodeID, ErrDanglingDefinition, e.DefinitionID)
}

func (e *DanglingDefinitionError) Is(target error) bool { return target == ErrDanglingDefinition }
