package constraints

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/provenance-graph/pkg/provenance"
	"github.com/dd0wney/provenance-graph/pkg/schema"
)

// SchemaConstraint validates every stored node against the schema of its
// label. Unknown properties are allowed.
type SchemaConstraint struct {
	Registry *schema.Registry // nil means the built-in provenance schemas
}

func (sc *SchemaConstraint) Name() string { return "SchemaConstraint" }

func (sc *SchemaConstraint) Validate(ctx context.Context, graph GraphReader) ([]Violation, error) {
	reg := sc.Registry
	if reg == nil {
		var err error
		if reg, err = schema.Provenance(); err != nil {
			return nil, err
		}
	}

	violations := make([]Violation, 0)
	for _, label := range []string{provenance.NodeLabel, provenance.StudyLabel, provenance.InformationLabel} {
		name, _ := provenance.SchemaFor(label)
		s, err := reg.Schema(name)
		if err != nil {
			return nil, err
		}
		nodes, err := graph.MatchAll(ctx, label)
		if err != nil {
			return nil, fmt.Errorf("failed to match %s nodes: %w", label, err)
		}

		for _, n := range nodes {
			_, err := s.Validate(n.Record())
			if err == nil {
				continue
			}
			var verr *schema.ValidationError
			if !errors.As(err, &verr) {
				return nil, err
			}
			vt := InvalidType
			if verr.Kind == schema.MissingRequiredField {
				vt = MissingProperty
			}
			violations = append(violations, Violation{
				Type:       vt,
				Severity:   Error,
				NodeID:     n.ID,
				Constraint: sc.Name(),
				Message:    fmt.Sprintf("%s %s: %v", label, n.ID, verr),
				Details: map[string]any{
					"label":    label,
					"property": verr.Field,
				},
			})
		}
	}
	return violations, nil
}
