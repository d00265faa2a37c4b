// Package constraints guards dependency edges against the catalog's
// relationship rules and audits a stored graph for rule, cardinality,
// definition, information and acyclicity violations.
package constraints

import (
	"context"
	"fmt"

	"github.com/dd0wney/provenance-graph/pkg/storage"
)

// GraphReader defines the read-only operations needed for constraint validation.
// Both graph stores satisfy it, and tests can supply a small fake.
type GraphReader interface {
	GetNode(ctx context.Context, label, id string) (*storage.Node, error)
	MatchAll(ctx context.Context, label string) ([]*storage.Node, error)
	OutgoingEdges(ctx context.Context, ref storage.NodeRef) ([]*storage.Edge, error)
	IncomingEdges(ctx context.Context, ref storage.NodeRef) ([]*storage.Edge, error)
	EdgesByType(ctx context.Context, edgeType string) ([]*storage.Edge, error)
}

// Severity indicates the importance of a violation
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// ViolationType categorizes the type of constraint violation
type ViolationType int

const (
	MissingProperty ViolationType = iota
	InvalidType
	RuleViolation
	CardinalityViolation
	DanglingDefinition
	InvalidInformation
	UniquenessViolation
	CyclicDependency
)

// ParseViolationType reads a violation type by its String name.
func ParseViolationType(name string) (ViolationType, error) {
	for vt := MissingProperty; vt <= CyclicDependency; vt++ {
		if vt.String() == name {
			return vt, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownViolationType, name)
}

func (vt ViolationType) String() string {
	switch vt {
	case MissingProperty:
		return "MissingProperty"
	case InvalidType:
		return "InvalidType"
	case RuleViolation:
		return "RuleViolation"
	case CardinalityViolation:
		return "CardinalityViolation"
	case DanglingDefinition:
		return "DanglingDefinition"
	case InvalidInformation:
		return "InvalidInformation"
	case UniquenessViolation:
		return "UniquenessViolation"
	case CyclicDependency:
		return "CyclicDependency"
	default:
		return "Unknown"
	}
}

// Violation represents a constraint violation
type Violation struct {
	Type       ViolationType  `json:"type"`
	Severity   Severity       `json:"severity"`
	NodeID     string         `json:"nodeId,omitempty"`
	EdgeID     string         `json:"edgeId,omitempty"`
	Constraint string         `json:"constraint"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
}

// Constraint is the interface that all constraint types must implement.
type Constraint interface {
	// Validate checks the constraint against the graph and returns the
	// violations found (empty if valid).
	Validate(ctx context.Context, graph GraphReader) ([]Violation, error)

	// Name returns a human-readable name for the constraint
	Name() string
}
