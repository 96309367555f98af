// Package reconcile lines two tables up by a join column on each side.
//
// The same matching primitive backs two output policies: Diff reports the
// rows of A without a partner, the rows of B without a partner and the
// matched rows of A merged with their partner; Merge emits exactly one row
// per row of A, enriched where a partner exists.
//
// Matching is a linear scan of the other table for every probe, so a full
// reconciliation is O(|A|*|B|). Values are compared as raw strings.
package reconcile

import (
	"fmt"

	"github.com/JonMunkholm/tabletools/internal/table"
)

// RenameSuffix is appended to one of A's own columns when the matched B row
// also carries a value for it.
const RenameSuffix = " (2)"

// JoinSpec names the column compared on each side of a reconciliation.
type JoinSpec struct {
	ColumnA string `json:"column_a"`
	ColumnB string `json:"column_b"`
}

// Validate reports a ConfigurationError when either side has no column.
func (j JoinSpec) Validate(op string) error {
	switch {
	case j.ColumnA == "" && j.ColumnB == "":
		return table.Configf(op, "no join column chosen for either table")
	case j.ColumnA == "":
		return table.Configf(op, "no join column chosen for the first table")
	case j.ColumnB == "":
		return table.Configf(op, "no join column chosen for the second table")
	}
	return nil
}

// Swap returns the join with the two sides exchanged.
func (j JoinSpec) Swap() JoinSpec {
	return JoinSpec{ColumnA: j.ColumnB, ColumnB: j.ColumnA}
}

// FindMatch returns the first row of other whose value at otherCol equals
// row's value at ownCol. A missing column only matches another missing
// column; the empty string is an ordinary value and matches itself.
func FindMatch(row table.Row, ownCol string, other []table.Row, otherCol string) (table.Row, bool) {
	probe, present := row.Get(ownCol)
	for _, candidate := range other {
		v, ok := candidate.Get(otherCol)
		if ok != present {
			continue
		}
		if v == probe {
			return candidate, true
		}
	}
	return table.Row{}, false
}

// LeftOnly returns the rows of a that have no match in b, unchanged.
func LeftOnly(a, b table.Table, spec JoinSpec) []table.Row {
	return unmatched(a.Rows, spec.ColumnA, b.Rows, spec.ColumnB)
}

// RightOnly returns the rows of b that have no match in a, unchanged.
// The probe is read from b's own join column.
func RightOnly(a, b table.Table, spec JoinSpec) []table.Row {
	return LeftOnly(b, a, spec.Swap())
}

func unmatched(rows []table.Row, ownCol string, other []table.Row, otherCol string) []table.Row {
	out := make([]table.Row, 0)
	for _, r := range rows {
		if _, ok := FindMatch(r, ownCol, other, otherCol); !ok {
			out = append(out, r)
		}
	}
	return out
}

// Overlapping returns every row of a that has a match in b, merged with
// that match by MergeRow.
func Overlapping(a, b table.Table, spec JoinSpec) []table.Row {
	colsA := table.ColumnsOf(a)
	union := table.UnionColumns(a, b)

	out := make([]table.Row, 0)
	for _, r := range a.Rows {
		match, ok := FindMatch(r, spec.ColumnA, b.Rows, spec.ColumnB)
		if !ok {
			continue
		}
		out = append(out, MergeRow(r, match, colsA, union))
	}
	return out
}

// MergeRow builds a new row from base enriched with the fields of match.
//
// For every column of union: a column that belongs to colsA is left as base
// has it, and if match carries a value for it that value is added under
// "<column> (2)"; a column that belongs only to B is stored with match's
// value, or "" when match lacks it. Neither input row is modified.
//
// If base already has a column named "<column> (2)", the value goes under
// the first free "<column> (N)" instead, so none of base's values is
// replaced.
func MergeRow(base, match table.Row, colsA, union []string) table.Row {
	own := make(map[string]struct{}, len(colsA))
	for _, c := range colsA {
		own[c] = struct{}{}
	}

	b := table.NewBuilder(base)
	for _, col := range union {
		if _, isOwn := own[col]; isOwn {
			if v, ok := match.Get(col); ok {
				b.Set(renamed(b, col), v)
			}
			continue
		}
		b.Set(col, match.Value(col))
	}
	return b.Build()
}

// renamed returns the name match's value for one of A's columns is stored
// under: "<col> (2)", or "<col> (N)" for the smallest N not already taken.
func renamed(b *table.Builder, col string) string {
	name := col + RenameSuffix
	for n := 3; b.Has(name); n++ {
		name = fmt.Sprintf("%s (%d)", col, n)
	}
	return name
}
