// Package dataset reads and writes the plant attribute table.
//
// A table is loaded once at startup and treated as read-only; callers that
// need to add rows work on a Clone.
package dataset

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnsupportedSource is returned when a source or destination has no known format.
var ErrUnsupportedSource = errors.New("unsupported dataset source")

// Record is one row keyed by column name. The empty string means missing.
type Record map[string]string

// Clone returns a copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of columns plus the rows that use them.
type Table struct {
	Columns []string
	Records []Record
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Records)
}

// HasColumn reports whether the table declares column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Records: make([]Record, len(t.Records)),
	}
	for i, r := range t.Records {
		out.Records[i] = r.Clone()
	}
	return out
}

// Select returns a new table restricted to columns, in that order.
// Every requested column must exist.
func (t *Table) Select(columns []string) (*Table, error) {
	for _, c := range columns {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("column %q not found", c)
		}
	}

	out := &Table{
		Columns: append([]string(nil), columns...),
		Records: make([]Record, len(t.Records)),
	}
	for i, r := range t.Records {
		rec := make(Record, len(columns))
		for _, c := range columns {
			rec[c] = r[c]
		}
		out.Records[i] = rec
	}
	return out, nil
}

// Filter returns a new table holding copies of the rows for which keep
// returns true.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Records {
		if keep(r) {
			out.Records = append(out.Records, r.Clone())
		}
	}
	return out
}

// stringify converts a decoded database or JSON value to its text form.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Identity is the identifier and display name of one row. Identities are kept
// apart from the feature columns so they are never normalized or clustered on.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
