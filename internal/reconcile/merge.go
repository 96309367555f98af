package reconcile

import (
	"github.com/JonMunkholm/tabletools/internal/table"
)

// MergeResult is the output of Merge.
type MergeResult struct {
	Rows    []table.Row
	Columns []string
	// Matched counts the rows of A that found a partner in B.
	Matched int
}

// Merge emits one row per row of a. Rows whose join value is absent or
// empty pass through untouched, as do rows without a match in b. Matched
// rows are merged with their partner by MergeRow.
//
// Columns is the first-seen union of the keys present in the produced rows,
// so renamed columns only appear when at least one row matched.
func Merge(a, b table.Table, spec JoinSpec) (MergeResult, error) {
	if err := checkInputs("merge", a, b, spec); err != nil {
		return MergeResult{}, err
	}

	colsA := table.ColumnsOf(a)
	union := table.UnionColumns(a, b)

	res := MergeResult{Rows: make([]table.Row, 0, a.Len())}
	for _, r := range a.Rows {
		if r.Value(spec.ColumnA) == "" {
			res.Rows = append(res.Rows, r)
			continue
		}
		match, ok := FindMatch(r, spec.ColumnA, b.Rows, spec.ColumnB)
		if !ok {
			res.Rows = append(res.Rows, r)
			continue
		}
		res.Matched++
		res.Rows = append(res.Rows, MergeRow(r, match, colsA, union))
	}

	res.Columns = table.KeysOf(res.Rows)
	if len(res.Columns) == 0 {
		res.Columns = colsA
	}
	return res, nil
}
