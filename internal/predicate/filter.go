package predicate

import (
	"github.com/JonMunkholm/tabletools/internal/table"
)

// Result splits a table's rows by whether they satisfy an expression.
// Every input row lands in exactly one of the two slices, in input order.
type Result struct {
	Matching []table.Row
	Missing  []table.Row
}

// Filter evaluates expr against every row of t.
//
// The table must carry a header and expr must be valid; otherwise a
// ConfigurationError is returned and no rows are partitioned.
func Filter(t table.Table, expr Expression) (Result, error) {
	if err := t.RequireHeader("filter"); err != nil {
		return Result{}, err
	}
	if err := expr.Validate(); err != nil {
		return Result{}, err
	}

	res := Result{
		Matching: make([]table.Row, 0),
		Missing:  make([]table.Row, 0),
	}
	for _, r := range t.Rows {
		if EvaluateExpression(r, expr) {
			res.Matching = append(res.Matching, r)
		} else {
			res.Missing = append(res.Missing, r)
		}
	}
	return res, nil
}
