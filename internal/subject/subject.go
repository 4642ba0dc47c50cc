// Package subject implements the hierarchical subject taxonomy of spec §4.1:
// dotted strings with typed positional fields, a wildcard validator/matcher,
// and compilation of a partially-wildcarded subject into a SQL WHERE clause.
package subject

import (
	"fmt"
	"strings"

	"fuelstreams/internal/errs"
)

// FieldSpec names one positional field of an entity's subject and the
// backing column it maps to when compiled to SQL (§4.1: "column names
// which may differ from field names by explicit mapping").
type FieldSpec struct {
	Name   string
	Column string
}

// Definition is the static shape of one entity's subject space, e.g.
// "inputs.coin" with fields (block_height, tx_id, tx_index, element_index,
// owner, asset).
type Definition struct {
	ID     string
	Fields []FieldSpec
}

var registry = map[string]*Definition{}

// Register adds a Definition to the package-level registry keyed by ID.
// Called from the package-level variable declarations in entities.go for
// every entity the spec names.
func Register(def *Definition) *Definition {
	registry[def.ID] = def
	return def
}

// Lookup returns the Definition for an entity id ("blocks",
// "inputs.coin", ...), or false if unknown.
func Lookup(id string) (*Definition, bool) {
	d, ok := registry[id]
	return d, ok
}

// Instance is a fully or partially populated subject: one value slot per
// field in Def.Fields, nil meaning "unset" (renders as '*' in Parse, and
// is omitted from ToSQLWhere).
type Instance struct {
	Def    *Definition
	Values []*string
}

// New builds an Instance for entity id from a field->value map. Fields
// absent from values are left unset (wildcard). Returns an error if id is
// unknown or a key in values doesn't name a field of the definition.
func New(id string, values map[string]string) (*Instance, error) {
	def, ok := Lookup(id)
	if !ok {
		return nil, errs.New(errs.KindCodec, errs.ReasonSubjectParse, fmt.Sprintf("unknown subject id %q", id))
	}
	inst := &Instance{Def: def, Values: make([]*string, len(def.Fields))}
	for k, v := range values {
		idx := def.indexOf(k)
		if idx < 0 {
			return nil, errs.New(errs.KindCodec, errs.ReasonSubjectParse, fmt.Sprintf("%s has no field %q", id, k))
		}
		v := v
		inst.Values[idx] = &v
	}
	return inst, nil
}

func (d *Definition) indexOf(name string) int {
	for i, f := range d.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Set assigns a single field's value by name, returning the Instance for
// chaining (mirrors the original's `with_<field>` builder style).
func (s *Instance) Set(name, value string) *Instance {
	if idx := s.Def.indexOf(name); idx >= 0 {
		v := value
		s.Values[idx] = &v
	}
	return s
}

// Get returns the value assigned to a field, or "", false if unset.
func (s *Instance) Get(name string) (string, bool) {
	if idx := s.Def.indexOf(name); idx >= 0 && s.Values[idx] != nil {
		return *s.Values[idx], true
	}
	return "", false
}

// fullyWild reports whether every field is unset.
func (s *Instance) fullyWild() bool {
	for _, v := range s.Values {
		if v != nil {
			return false
		}
	}
	return true
}

// fullyConcrete reports whether every field is set, i.e. this subject is
// eligible as a live-publish subject (§4.1).
func (s *Instance) fullyConcrete() bool {
	for _, v := range s.Values {
		if v == nil {
			return false
		}
	}
	return true
}

// Parse renders the subject string. If every field is unset it renders
// "{id}.>"; otherwise each field renders its value or '*' for unset
// fields, dotted after the id.
func (s *Instance) Parse() string {
	if s.fullyWild() {
		return s.Def.ID + ".>"
	}
	parts := make([]string, 0, len(s.Values)+1)
	parts = append(parts, s.Def.ID)
	for _, v := range s.Values {
		if v == nil {
			parts = append(parts, "*")
		} else {
			parts = append(parts, *v)
		}
	}
	return strings.Join(parts, ".")
}

// IsLivePublishable reports whether Parse()'s output names a single
// concrete subject suitable for the live-publish topic (no wildcards).
func (s *Instance) IsLivePublishable() bool { return s.fullyConcrete() }

// ToSQLWhere compiles the set fields into an AND-joined list of equality
// predicates against their backing columns, using positional placeholders
// starting at argStart (so callers can splice this into a larger query).
// Returns ("", nil, false) when the subject is the full wildcard (nothing
// to filter), matching the Rust `Option<String>` return of §4.1.
func (s *Instance) ToSQLWhere(argStart int) (clause string, args []any, ok bool) {
	if s.fullyWild() {
		return "", nil, false
	}
	var preds []string
	n := argStart
	for i, v := range s.Values {
		if v == nil {
			continue
		}
		preds = append(preds, fmt.Sprintf("%s = $%d", s.Def.Fields[i].Column, n))
		args = append(args, *v)
		n++
	}
	if len(preds) == 0 {
		return "", nil, false
	}
	return strings.Join(preds, " AND "), args, true
}

// ColumnValues returns the backing-column -> value map for every set
// field, used by callers (the packet builder) projecting a subject's
// instantiated fields into a row's denormalized filter columns (spec
// §4.2, "Projection to row").
func (s *Instance) ColumnValues() map[string]string {
	out := make(map[string]string, len(s.Def.Fields))
	for i, v := range s.Values {
		if v != nil {
			out[s.Def.Fields[i].Column] = *v
		}
	}
	return out
}

// ValidateAgainstDefinition additionally rejects patterns whose segment
// count exceeds the entity's field count (id segment + fields), per §4.1.
func (d *Definition) ValidateAgainstDefinition(pattern string) error {
	if err := ValidatePattern(pattern); err != nil {
		return err
	}
	segments := strings.Split(pattern, ".")
	if segments[len(segments)-1] == ">" {
		segments = segments[:len(segments)-1]
	}
	maxSegments := len(strings.Split(d.ID, ".")) + len(d.Fields)
	if len(segments) > maxSegments {
		return errs.New(errs.KindCodec, errs.ReasonPatternInvalid,
			fmt.Sprintf("pattern has %d segments, entity %s allows at most %d", len(segments), d.ID, maxSegments))
	}
	return nil
}
