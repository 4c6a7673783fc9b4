// Package catalog defines the field catalog: which dataset columns are
// identifiers, categorical, ordinal or numeric, and how ordinal levels rank.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the role a field plays in the feature space.
type Kind string

const (
	KindIdentifier  Kind = "identifier"  // carried through, never a feature
	KindCategorical Kind = "categorical" // one-hot encoded
	KindOrdinal     Kind = "ordinal"     // mapped to an integer rank
	KindNumeric     Kind = "numeric"     // parsed as float64 and passed through
)

var validKinds = map[Kind]bool{
	KindIdentifier:  true,
	KindCategorical: true,
	KindOrdinal:     true,
	KindNumeric:     true,
}

// MissingRank is the rank assigned to an empty ordinal value. It sits below
// every valid rank.
const MissingRank = -1

var (
	// ErrInvalidFieldValue is returned when a value lies outside its field's domain.
	ErrInvalidFieldValue = errors.New("invalid field value")

	// ErrSchemaMismatch is returned when input lacks a declared field.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// validName matches field names: alphanumeric + underscore, starting with a letter or underscore.
var validName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Field describes one catalog column.
type Field struct {
	Name string `yaml:"name" json:"name"`
	Kind Kind   `yaml:"kind" json:"kind"`

	// Levels is the value domain. For ordinal fields it is ordered from the
	// lowest to the highest level. For categorical fields it is optional; an
	// empty list leaves the domain open.
	Levels []string `yaml:"levels,omitempty" json:"levels,omitempty"`

	// Ranks optionally gives explicit ranks for Levels (sparse scales).
	// Defaults to the level index.
	Ranks []int `yaml:"ranks,omitempty" json:"ranks,omitempty"`

	ranks map[string]int
	inDom map[string]bool
}

// Rank maps an ordinal value to its rank. An empty value yields MissingRank.
func (f Field) Rank(value string) (int, error) {
	if value == "" {
		return MissingRank, nil
	}
	r, ok := f.ranks[value]
	if !ok {
		return 0, fmt.Errorf("%w: field %q: %q not in %v", ErrInvalidFieldValue, f.Name, value, f.Levels)
	}
	return r, nil
}

// Check validates a single raw value against the field's domain.
// Empty values are always accepted.
func (f Field) Check(value string) error {
	if value == "" {
		return nil
	}
	switch f.Kind {
	case KindOrdinal:
		_, err := f.Rank(value)
		return err
	case KindCategorical:
		if len(f.inDom) > 0 && !f.inDom[value] {
			return fmt.Errorf("%w: field %q: %q not in %v", ErrInvalidFieldValue, f.Name, value, f.Levels)
		}
	case KindNumeric:
		if _, err := ParseNumber(value); err != nil {
			return fmt.Errorf("%w: field %q: %q is not a finite number", ErrInvalidFieldValue, f.Name, value)
		}
	}
	return nil
}

// ParseNumber parses a numeric cell. NaN and infinities are rejected.
func ParseNumber(value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not finite", value)
	}
	return v, nil
}

// Catalog is an immutable, ordered set of fields. Build one with New, Plants
// or ParseCatalog and pass it to each pipeline stage.
type Catalog struct {
	fields []Field
	byName map[string]int
}

// New validates fields and builds a Catalog.
func New(fields []Field) (*Catalog, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("catalog must have at least one field")
	}

	c := &Catalog{
		fields: make([]Field, 0, len(fields)),
		byName: make(map[string]int, len(fields)),
	}

	var identifiers, features int
	for _, f := range fields {
		if !validName.MatchString(f.Name) {
			return nil, fmt.Errorf("field name %q is not a valid identifier", f.Name)
		}
		if _, dup := c.byName[f.Name]; dup {
			return nil, fmt.Errorf("field %q declared more than once", f.Name)
		}
		if !validKinds[f.Kind] {
			return nil, fmt.Errorf("field %q has invalid kind %q", f.Name, f.Kind)
		}

		built, err := buildField(f)
		if err != nil {
			return nil, err
		}

		if f.Kind == KindIdentifier {
			identifiers++
		} else {
			features++
		}

		c.byName[f.Name] = len(c.fields)
		c.fields = append(c.fields, built)
	}

	if identifiers == 0 {
		return nil, fmt.Errorf("catalog must declare an identifier field")
	}
	if features == 0 {
		return nil, fmt.Errorf("catalog must declare at least one feature field")
	}

	return c, nil
}

// buildField checks a field's domain and precomputes its lookups.
func buildField(f Field) (Field, error) {
	f.Levels = append([]string(nil), f.Levels...)
	f.Ranks = append([]int(nil), f.Ranks...)

	switch f.Kind {
	case KindOrdinal:
		if len(f.Levels) == 0 {
			return f, fmt.Errorf("ordinal field %q has no levels", f.Name)
		}
		if len(f.Ranks) > 0 && len(f.Ranks) != len(f.Levels) {
			return f, fmt.Errorf("ordinal field %q has %d ranks for %d levels", f.Name, len(f.Ranks), len(f.Levels))
		}
	case KindIdentifier, KindNumeric:
		if len(f.Levels) > 0 {
			return f, fmt.Errorf("field %q of kind %s cannot declare levels", f.Name, f.Kind)
		}
		fallthrough
	case KindCategorical:
		if len(f.Ranks) > 0 {
			return f, fmt.Errorf("field %q of kind %s cannot declare ranks", f.Name, f.Kind)
		}
	}

	f.inDom = make(map[string]bool, len(f.Levels))
	for _, l := range f.Levels {
		if l == "" {
			return f, fmt.Errorf("field %q has empty level", f.Name)
		}
		if f.inDom[l] {
			return f, fmt.Errorf("field %q repeats level %q", f.Name, l)
		}
		f.inDom[l] = true
	}

	if f.Kind != KindOrdinal {
		return f, nil
	}

	f.ranks = make(map[string]int, len(f.Levels))
	prev := MissingRank
	for i, l := range f.Levels {
		r := i
		if len(f.Ranks) > 0 {
			r = f.Ranks[i]
		}
		// Ranks must be monotonic and stay above the missing sentinel.
		if r <= prev {
			return f, fmt.Errorf("ordinal field %q: rank %d for %q is not above %d", f.Name, r, l, prev)
		}
		f.ranks[l] = r
		prev = r
	}

	return f, nil
}

// Fields returns all fields in catalog order.
func (c *Catalog) Fields() []Field {
	return append([]Field(nil), c.fields...)
}

// Field looks up a field by name.
func (c *Catalog) Field(name string) (Field, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Field{}, false
	}
	return c.fields[i], true
}

// Names returns the names of fields of the given kinds in catalog order.
// With no kinds, every field name is returned.
func (c *Catalog) Names(kinds ...Kind) []string {
	var names []string
	for _, f := range c.fields {
		if len(kinds) == 0 || hasKind(kinds, f.Kind) {
			names = append(names, f.Name)
		}
	}
	return names
}

// FeatureFields returns every non-identifier field in catalog order.
func (c *Catalog) FeatureFields() []Field {
	var out []Field
	for _, f := range c.fields {
		if f.Kind != KindIdentifier {
			out = append(out, f)
		}
	}
	return out
}

// IDField returns the first identifier field, which holds the record id.
func (c *Catalog) IDField() string {
	return c.Names(KindIdentifier)[0]
}

// NameField returns the identifier field holding the display name. It falls
// back to the id field when the catalog declares a single identifier.
func (c *Catalog) NameField() string {
	ids := c.Names(KindIdentifier)
	if len(ids) > 1 {
		return ids[1]
	}
	return ids[0]
}

// CheckColumns verifies that every catalog field of the given kinds (all
// fields when none are given) appears in columns. Extra columns are allowed.
func (c *Catalog) CheckColumns(columns []string, kinds ...Kind) error {
	have := make(map[string]bool, len(columns))
	for _, col := range columns {
		have[col] = true
	}

	var missing []string
	for _, f := range c.fields {
		if len(kinds) > 0 && !hasKind(kinds, f.Kind) {
			continue
		}
		if !have[f.Name] {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing fields %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateRecord checks every catalog field present in rec against its domain.
func (c *Catalog) ValidateRecord(rec map[string]string) error {
	for _, f := range c.fields {
		v, ok := rec[f.Name]
		if !ok {
			continue
		}
		if err := f.Check(v); err != nil {
			return err
		}
	}
	return nil
}

func hasKind(kinds []Kind, k Kind) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

// catalogFile is the YAML layout accepted by ParseCatalog.
type catalogFile struct {
	Fields []Field `yaml:"fields"`
}

// ParseCatalog loads and validates a YAML catalog file.
func ParseCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}

	return New(file.Fields)
}
