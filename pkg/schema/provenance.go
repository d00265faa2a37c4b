package schema

// Names of the built-in provenance schemas.
const (
	NodeDefinitionSchema          = "NodeDefinition"
	RelationshipRuleSchema        = "RelationshipRule"
	StudySchema                   = "Study"
	InformationFieldSchema        = "InformationField"
	ProvenanceNodeSchema          = "ProvenanceNode"
	DependencyRelationshipSchema  = "DEPENDS"
	InformationRelationshipSchema = "HAS_INFORMATION"
)

// RelationshipTypeLiterals is the fixed vocabulary of dependency types.
var RelationshipTypeLiterals = []string{
	"Used",
	"Used for validation",
	"Used for calibration",
	"Derived from",
	"Generated by",
}

func id() Field { return Field{Name: "id", Type: String(), Primary: true} }

// Provenance returns a registry holding the built-in provenance schemas.
func Provenance() (*Registry, error) {
	b := NewBuilder()

	b.must(Descriptor{
		Name: NodeDefinitionSchema,
		Required: []Field{
			id(),
			{Name: "classification", Type: Enum("entity", "activity", "agent")},
		},
		Optional: []Field{
			{Name: "label", Type: String()},
			{Name: "labelFormatString", Type: String()},
			{Name: "informationFields", Type: ArrayOf(String())},
		},
	})

	b.must(Descriptor{
		Name: RelationshipRuleSchema,
		Required: []Field{
			id(),
			{Name: "type", Type: ArrayOf(Enum(RelationshipTypeLiterals...))},
			{Name: "cardinality", Type: Enum("one-to-one", "one-to-many")},
			{Name: "source", Type: String()},
			{Name: "target", Type: String()},
		},
	})

	b.must(Descriptor{
		Name:     StudySchema,
		Required: []Field{id()},
		Optional: []Field{
			{Name: "signalingPathway", Type: String()},
			{Name: "source", Type: String()},
		},
	})

	b.must(Descriptor{
		Name: InformationFieldSchema,
		Required: []Field{
			id(),
			{Name: "key", Type: String()},
			{Name: "value", Type: String()},
		},
	})

	b.must(Descriptor{
		Name: ProvenanceNodeSchema,
		Required: []Field{
			id(),
			{Name: "definitionId", Type: String()},
		},
		Optional: []Field{
			{Name: "studyId", Type: String()},
			{Name: "label", Type: String()},
		},
	})

	b.mustRelationship(RelationshipDescriptor{
		Descriptor: Descriptor{
			Name:     InformationRelationshipSchema,
			Required: []Field{id()},
		},
		Source: ProvenanceNodeSchema,
		Target: InformationFieldSchema,
	})

	b.mustRelationship(RelationshipDescriptor{
		Descriptor: Descriptor{
			Name: DependencyRelationshipSchema,
			Required: []Field{
				id(),
				{Name: "type", Type: Enum(RelationshipTypeLiterals...)},
			},
		},
		Source: ProvenanceNodeSchema,
		Target: ProvenanceNodeSchema,
	})

	return b.Build()
}

// MustProvenance is Provenance for package initialisation and tests.
func MustProvenance() *Registry {
	r, err := Provenance()
	if err != nil {
		panic(err)
	}
	return r
}
