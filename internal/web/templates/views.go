// Package templates renders the server-side HTML views.
//
// Components are written in the .templ files next to this one; the
// *_templ.go files are generated from them with `templ generate`.
package templates

import "strconv"

// OutputView is one downloadable file in a result panel.
type OutputView struct {
	Name string
	Rows int
	Size string
	URL  string
}

// Detail is the row count and size shown next to the download link.
func (o OutputView) Detail() string {
	return strconv.Itoa(o.Rows) + " rows, " + o.Size
}

// ResultView is a completed operation.
type ResultView struct {
	Kind    string
	Summary string
	Outputs []OutputView
}

// HistoryRow is one line of the recent operations table.
type HistoryRow struct {
	Operation string
	Inputs    string
	Summary   string
	Error     string
	When      string
}

// IndexParams holds the data for the landing page.
type IndexParams struct {
	Operators []string
	History   []HistoryRow
}

// defaultExpression pre-fills the filter form with one empty condition.
const defaultExpression = `[[{"column":"","operator":"equal","value":""}]]`

// diffSets are the output sets a diff can include, in output order.
var diffSets = []string{"left", "overlapping", "right"}
