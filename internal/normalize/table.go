package normalize

import (
	"strconv"

	"github.com/plantrec/plantrec/internal/catalog"
	"github.com/plantrec/plantrec/internal/dataset"
)

// EncodeTable normalizes t and returns the result as a text table with the
// catalog's identifier columns first, ready to be written by the dataset
// package.
func EncodeTable(t *dataset.Table, cat *catalog.Catalog) (*dataset.Table, error) {
	if err := cat.CheckColumns(t.Columns, catalog.KindIdentifier); err != nil {
		return nil, err
	}

	m, err := Normalize(t, cat)
	if err != nil {
		return nil, err
	}

	ids := cat.Names(catalog.KindIdentifier)
	out := &dataset.Table{
		Columns: append(append([]string(nil), ids...), m.Columns...),
		Records: make([]dataset.Record, t.Len()),
	}

	for i, rec := range t.Records {
		row := make(dataset.Record, len(out.Columns))
		for _, id := range ids {
			row[id] = rec[id]
		}
		for j, c := range m.Columns {
			row[c] = strconv.FormatFloat(m.Data.At(i, j), 'f', -1, 64)
		}
		out.Records[i] = row
	}

	return out, nil
}
