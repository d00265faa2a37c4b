package constraints

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/provenance-graph/pkg/catalog"
)

// ValidationResult is the outcome of one audit.
type ValidationResult struct {
	Valid      bool          `json:"valid"`
	Violations []Violation   `json:"violations"`
	CheckedAt  time.Time     `json:"checkedAt"`
	Duration   time.Duration `json:"duration"`
}

// GetViolationsBySeverity returns violations filtered by severity level
func (vr *ValidationResult) GetViolationsBySeverity(severity Severity) []Violation {
	return vr.filter(func(v Violation) bool { return v.Severity == severity })
}

// GetViolationsByType returns violations filtered by type
func (vr *ValidationResult) GetViolationsByType(violationType ViolationType) []Violation {
	return vr.filter(func(v Violation) bool { return v.Type == violationType })
}

func (vr *ValidationResult) filter(keep func(Violation) bool) []Violation {
	out := make([]Violation, 0)
	for _, v := range vr.Violations {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Validator audits a stored graph against a fixed set of constraints.
type Validator struct {
	constraints []Constraint
}

// NewAuditValidator returns a validator carrying every provenance constraint
// for the catalog. Cycles are only reported between nodes of one definition
// along the version types, where they would leave version numbers undefined.
func NewAuditValidator(c *catalog.Catalog) *Validator {
	return &Validator{constraints: []Constraint{
		&SchemaConstraint{},
		&DefinitionConstraint{Catalog: c},
		&RuleConstraint{Catalog: c},
		&CardinalityConstraint{Catalog: c},
		&InformationConstraint{Catalog: c},
		&AcyclicConstraint{Types: catalog.VersionTypes, SameDefinition: true},
	}}
}

// Validate runs the constraints concurrently against graph. Violations are
// reported in constraint order. The first constraint error aborts the audit.
func (v *Validator) Validate(ctx context.Context, graph GraphReader) (*ValidationResult, error) {
	start := time.Now()
	found := make([][]Violation, len(v.constraints))

	g, ctx := errgroup.WithContext(ctx)
	for i, constraint := range v.constraints {
		i, constraint := i, constraint
		g.Go(func() error {
			violations, err := constraint.Validate(ctx, graph)
			if err != nil {
				return fmt.Errorf("%s: %w", constraint.Name(), err)
			}
			found[i] = violations
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ValidationResult{Violations: make([]Violation, 0), CheckedAt: start}
	for _, violations := range found {
		result.Violations = append(result.Violations, violations...)
	}
	result.Valid = len(result.Violations) == 0
	result.Duration = time.Since(start)
	return result, nil
}
