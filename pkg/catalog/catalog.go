package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/provenance-graph/pkg/schema"
	"github.com/dd0wney/provenance-graph/pkg/validation"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Sentinel errors
var (
	ErrInvalidCatalog          = errors.New("invalid catalog")
	ErrUnknownRelationshipType = errors.New("unknown relationship type")
	ErrUnknownDefinition       = errors.New("unknown definition")
)

// ruleKey indexes a single permitted (source, target, type) triple.
type ruleKey struct {
	source string
	target string
	typ    RelationshipType
}

type pairKey struct {
	source string
	target string
}

// Catalog is the immutable set of definitions and rules. All lookups are map
// based; it is safe for concurrent use.
type Catalog struct {
	definitions map[string]*Definition
	order       []string
	rules       []*Rule
	byTriple    map[ruleKey]*Rule
	byPair      map[pairKey][]*Rule
}

// File is the YAML layout of a catalog.
type File struct {
	Definitions []Definition `yaml:"definitions"`
	Rules       []Rule       `yaml:"rules"`
}

// New validates definitions and rules and builds the rule index.
func New(defs []Definition, rules []Rule) (*Catalog, error) {
	schemas, err := schema.Provenance()
	if err != nil {
		return nil, err
	}
	defSchema, _ := schemas.Schema(schema.NodeDefinitionSchema)
	ruleSchema, _ := schemas.Schema(schema.RelationshipRuleSchema)

	c := &Catalog{
		definitions: make(map[string]*Definition, len(defs)),
		byTriple:    make(map[ruleKey]*Rule),
		byPair:      make(map[pairKey][]*Rule),
	}

	for i := range defs {
		d := defs[i]
		if err := validation.Struct(&d); err != nil {
			return nil, fmt.Errorf("%w: definition %d: %v", ErrInvalidCatalog, i, err)
		}
		if _, err := defSchema.Validate(definitionRecord(&d), schema.WithStrict()); err != nil {
			return nil, fmt.Errorf("%w: definition %q: %v", ErrInvalidCatalog, d.ID, err)
		}
		if _, dup := c.definitions[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate definition id %q", ErrInvalidCatalog, d.ID)
		}
		c.definitions[d.ID] = &d
		c.order = append(c.order, d.ID)
	}

	ruleIDs := make(map[string]bool, len(rules))
	for i := range rules {
		r := rules[i]
		if err := validation.Struct(&r); err != nil {
			return nil, fmt.Errorf("%w: rule %d: %v", ErrInvalidCatalog, i, err)
		}
		if _, err := ruleSchema.Validate(ruleRecord(&r), schema.WithStrict()); err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", ErrInvalidCatalog, r.ID, err)
		}
		if ruleIDs[r.ID] {
			return nil, fmt.Errorf("%w: duplicate rule id %q", ErrInvalidCatalog, r.ID)
		}
		ruleIDs[r.ID] = true
		if _, ok := c.definitions[r.Source]; !ok {
			return nil, fmt.Errorf("%w: rule %q: source %w %q", ErrInvalidCatalog, r.ID, ErrUnknownDefinition, r.Source)
		}
		if _, ok := c.definitions[r.Target]; !ok {
			return nil, fmt.Errorf("%w: rule %q: target %w %q", ErrInvalidCatalog, r.ID, ErrUnknownDefinition, r.Target)
		}

		rp := &r
		for _, t := range r.Types {
			k := ruleKey{source: r.Source, target: r.Target, typ: t}
			if other, exists := c.byTriple[k]; exists {
				return nil, fmt.Errorf("%w: rules %q and %q both permit %q from %q to %q",
					ErrInvalidCatalog, other.ID, r.ID, t, r.Source, r.Target)
			}
			c.byTriple[k] = rp
		}
		pk := pairKey{source: r.Source, target: r.Target}
		c.byPair[pk] = append(c.byPair[pk], rp)
		c.rules = append(c.rules, rp)
	}

	return c, nil
}

// Load reads a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidCatalog, err)
	}
	return New(f.Definitions, f.Rules)
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(defaultCatalog, &f); err != nil {
		return nil, fmt.Errorf("%w: embedded catalog: %v", ErrInvalidCatalog, err)
	}
	return New(f.Definitions, f.Rules)
}

// MustDefault is Default for tests and examples.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Definition looks up a definition by id.
func (c *Catalog) Definition(id string) (*Definition, bool) {
	d, ok := c.definitions[id]
	return d, ok
}

// Definitions returns every definition in declaration order.
func (c *Catalog) Definitions() []*Definition {
	out := make([]*Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.definitions[id])
	}
	return out
}

// Rules returns every rule in declaration order.
func (c *Catalog) Rules() []*Rule {
	out := make([]*Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// IsAllowed reports whether some rule permits an edge of type t between
// instances of the two definitions.
func (c *Catalog) IsAllowed(sourceDefID, targetDefID string, t RelationshipType) bool {
	_, ok := c.byTriple[ruleKey{source: sourceDefID, target: targetDefID, typ: t}]
	return ok
}

// RuleFor returns the rule permitting the triple.
func (c *Catalog) RuleFor(sourceDefID, targetDefID string, t RelationshipType) (*Rule, bool) {
	r, ok := c.byTriple[ruleKey{source: sourceDefID, target: targetDefID, typ: t}]
	return r, ok
}

// CardinalityFor returns the cardinality of the rule permitting the triple.
func (c *Catalog) CardinalityFor(sourceDefID, targetDefID string, t RelationshipType) (Cardinality, bool) {
	r, ok := c.RuleFor(sourceDefID, targetDefID, t)
	if !ok {
		return "", false
	}
	return r.Cardinality, true
}

// AllowedTypes lists the relationship types permitted between two definitions.
func (c *Catalog) AllowedTypes(sourceDefID, targetDefID string) []RelationshipType {
	var out []RelationshipType
	for _, r := range c.byPair[pairKey{source: sourceDefID, target: targetDefID}] {
		out = append(out, r.Types...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func definitionRecord(d *Definition) schema.Record {
	rec := schema.Record{
		"id":             d.ID,
		"classification": string(d.Classification),
	}
	if d.Label != "" {
		rec["label"] = d.Label
	}
	if d.LabelFormatString != "" {
		rec["labelFormatString"] = d.LabelFormatString
	}
	if len(d.InformationFields) > 0 {
		fields := make([]string, len(d.InformationFields))
		for i, f := range d.InformationFields {
			fields[i] = f.String()
		}
		rec["informationFields"] = fields
	}
	return rec
}

func ruleRecord(r *Rule) schema.Record {
	types := make([]string, len(r.Types))
	for i, t := range r.Types {
		types[i] = string(t)
	}
	return schema.Record{
		"id":          r.ID,
		"type":        types,
		"cardinality": string(r.Cardinality),
		"source":      r.Source,
		"target":      r.Target,
	}
}
