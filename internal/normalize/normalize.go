// Package normalize converts catalog-shaped records into a numeric feature
// matrix: ordinal ranks, one-hot indicators and numeric passthrough columns.
package normalize

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/plantrec/plantrec/internal/catalog"
	"github.com/plantrec/plantrec/internal/dataset"
)

// MissingSuffix names the indicator column flagging a missing categorical value.
const MissingSuffix = "nan"

// ErrNoRows is returned when there is nothing to encode.
var ErrNoRows = errors.New("no rows to normalize")

// featureKinds are the catalog kinds that become matrix columns.
var featureKinds = []catalog.Kind{catalog.KindCategorical, catalog.KindOrdinal, catalog.KindNumeric}

// Matrix is a dense feature matrix with named columns.
type Matrix struct {
	Columns []string
	Data    *mat.Dense
}

// column is one output column of the layout.
type column struct {
	name  string
	field catalog.Field
	level string // categorical level this indicator tracks; empty for the missing flag
}

// Layout is the column plan derived from a record set.
type Layout struct {
	columns []column
}

// Columns returns the output column names in order.
func (l *Layout) Columns() []string {
	names := make([]string, len(l.columns))
	for i, c := range l.columns {
		names[i] = c.name
	}
	return names
}

// Plan derives the column layout for t. Categorical levels are sorted so the
// layout depends only on the set of values present, not on row order. The
// first sorted level of each categorical field is the dropped reference level.
func Plan(t *dataset.Table, cat *catalog.Catalog) (*Layout, error) {
	if err := cat.CheckColumns(t.Columns, featureKinds...); err != nil {
		return nil, err
	}

	l := &Layout{}
	for _, f := range cat.FeatureFields() {
		switch f.Kind {
		case catalog.KindOrdinal, catalog.KindNumeric:
			l.columns = append(l.columns, column{name: f.Name, field: f})

		case catalog.KindCategorical:
			levels, err := observedLevels(t, f)
			if err != nil {
				return nil, err
			}
			if len(levels) > 0 {
				levels = levels[1:]
			}
			for _, lv := range levels {
				l.columns = append(l.columns, column{name: f.Name + "_" + lv, field: f, level: lv})
			}
			l.columns = append(l.columns, column{name: f.Name + "_" + MissingSuffix, field: f})
		}
	}

	return l, nil
}

// observedLevels returns the sorted distinct non-empty values of f in t.
func observedLevels(t *dataset.Table, f catalog.Field) ([]string, error) {
	seen := make(map[string]bool)
	for i, rec := range t.Records {
		v := rec[f.Name]
		if v == "" || seen[v] {
			continue
		}
		if err := f.Check(v); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		seen[v] = true
	}

	levels := make([]string, 0, len(seen))
	for v := range seen {
		levels = append(levels, v)
	}
	sort.Strings(levels)
	return levels, nil
}

// Normalize plans a layout over t and encodes every row into it.
func Normalize(t *dataset.Table, cat *catalog.Catalog) (*Matrix, error) {
	layout, err := Plan(t, cat)
	if err != nil {
		return nil, err
	}
	return layout.Encode(t)
}

// Encode converts t's rows into the layout's column space.
func (l *Layout) Encode(t *dataset.Table) (*Matrix, error) {
	if t.Len() == 0 {
		return nil, ErrNoRows
	}

	data := mat.NewDense(t.Len(), len(l.columns), nil)
	for i, rec := range t.Records {
		for j, c := range l.columns {
			v, err := c.value(rec[c.field.Name])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			data.Set(i, j, v)
		}
	}

	return &Matrix{Columns: l.Columns(), Data: data}, nil
}

// value encodes one raw cell for this column.
func (c column) value(raw string) (float64, error) {
	switch c.field.Kind {
	case catalog.KindOrdinal:
		r, err := c.field.Rank(raw)
		if err != nil {
			return 0, err
		}
		return float64(r), nil

	case catalog.KindNumeric:
		if raw == "" {
			return 0, nil
		}
		v, err := catalog.ParseNumber(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q: %q is not a finite number", catalog.ErrInvalidFieldValue, c.field.Name, raw)
		}
		return v, nil

	case catalog.KindCategorical:
		if c.level == "" {
			return indicator(raw == ""), nil
		}
		return indicator(raw == c.level), nil
	}

	return 0, fmt.Errorf("field %q has unsupported kind %q", c.field.Name, c.field.Kind)
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
