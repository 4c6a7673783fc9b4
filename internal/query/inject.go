package query

import (
	"fmt"

	"github.com/plantrec/plantrec/internal/catalog"
	"github.com/plantrec/plantrec/internal/dataset"
)

// Placeholder identity given to the query row until results are recombined
// with real identifiers.
const (
	PlaceholderID   = "42"
	PlaceholderName = "sample"
)

// Injected is a base table extended with one query row.
type Injected struct {
	// Features holds every row's feature columns; identifier columns are removed.
	Features *dataset.Table

	// Identities is aligned with Features.Records.
	Identities []dataset.Identity

	// QueryIndex is the row index of the query in Features.
	QueryIndex int
}

// Query returns the identity assigned to the query row.
func (in *Injected) Query() dataset.Identity {
	return in.Identities[in.QueryIndex]
}

// Inject appends a row built from prefs to a copy of base. base is never
// modified. Fields the user left unset are missing in the new row.
func Inject(base *dataset.Table, prefs Preferences, cat *catalog.Catalog, placeholder dataset.Identity) (*Injected, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	if err := cat.CheckColumns(base.Columns); err != nil {
		return nil, err
	}

	values := prefs.Values()
	for name, v := range values {
		f, ok := cat.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: preference field %q not in catalog", catalog.ErrSchemaMismatch, name)
		}
		if err := f.Check(v); err != nil {
			return nil, err
		}
	}

	idField, nameField := cat.IDField(), cat.NameField()
	featureCols := cat.Names(catalog.KindCategorical, catalog.KindOrdinal, catalog.KindNumeric)

	n := base.Len()
	out := &Injected{
		Features:   &dataset.Table{Columns: featureCols, Records: make([]dataset.Record, 0, n+1)},
		Identities: make([]dataset.Identity, 0, n+1),
		QueryIndex: n,
	}

	for _, rec := range base.Records {
		row := make(dataset.Record, len(featureCols))
		for _, c := range featureCols {
			row[c] = rec[c]
		}
		out.Features.Records = append(out.Features.Records, row)
		out.Identities = append(out.Identities, dataset.Identity{ID: rec[idField], Name: rec[nameField]})
	}

	q := make(dataset.Record, len(featureCols))
	for _, c := range featureCols {
		q[c] = values[c]
	}
	out.Features.Records = append(out.Features.Records, q)
	out.Identities = append(out.Identities, placeholder)

	return out, nil
}
