package dialect

import (
	"sort"
	"strconv"

	"github.com/sadopc/dbcatalog/internal/catalog"
	"github.com/sadopc/dbcatalog/internal/executor"
)

// IndexRowSpec names the columns of a one-row-per-index-column result set,
// such as the output of SHOW INDEXES.
type IndexRowSpec struct {
	Name      string
	NonUnique string
	Seq       string
	Column    string
	// Implicit, when set, names a boolean column marking engine-synthesized
	// columns that are not part of the logical index.
	Implicit string

	// IsPrimary decides from the first row of a group whether the index is
	// the primary key.
	IsPrimary func(first executor.Row) bool
	// Order returns the sort direction of one column.
	Order func(row executor.Row) string
}

// ShowIndexesSpec matches the column names of CockroachDB's SHOW INDEXES and
// of the PostgreSQL catalog query shaped after it.
var ShowIndexesSpec = IndexRowSpec{
	Name:      "index_name",
	NonUnique: "non_unique",
	Seq:       "seq_in_index",
	Column:    "column_name",
	Implicit:  "implicit",
	Order: func(row executor.Row) string {
		return row.String("direction")
	},
}

// GroupIndexRows normalizes per-column index rows into TableIndex values.
// Groups keep the order in which index names first appear; ID is the group's
// position in that order. Index-level flags come from the first row of the
// unfiltered group, while implicit rows are left out of Columns. Columns are
// sorted by their sequence in the index.
func GroupIndexRows(rows []executor.Row, spec IndexRowSpec, table, schema string) []catalog.TableIndex {
	groups := make(map[string][]executor.Row)
	var order []string
	for _, row := range rows {
		name := row.String(spec.Name)
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], row)
	}

	indexes := make([]catalog.TableIndex, 0, len(order))
	for i, name := range order {
		group := groups[name]
		first := group[0]

		var cols []executor.Row
		for _, row := range group {
			if spec.Implicit != "" && row.Bool(spec.Implicit) {
				continue
			}
			cols = append(cols, row)
		}
		sort.SliceStable(cols, func(a, b int) bool {
			return cols[a].Int(spec.Seq) < cols[b].Int(spec.Seq)
		})

		columns := make([]catalog.IndexColumn, len(cols))
		for j, row := range cols {
			col := catalog.IndexColumn{Name: row.String(spec.Column)}
			if spec.Order != nil {
				col.Order = spec.Order(row)
			}
			columns[j] = col
		}

		primary := false
		if spec.IsPrimary != nil {
			primary = spec.IsPrimary(first)
		}

		indexes = append(indexes, catalog.TableIndex{
			ID:      strconv.Itoa(i),
			Name:    name,
			Table:   table,
			Schema:  schema,
			Primary: primary,
			Unique:  !first.Bool(spec.NonUnique),
			Columns: columns,
		})
	}
	return indexes
}
