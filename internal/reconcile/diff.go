package reconcile

import (
	"github.com/JonMunkholm/tabletools/internal/table"
)

// Include selects which of the three diff sets end up in the combined
// output.
type Include struct {
	Left        bool `json:"left"`
	Overlapping bool `json:"overlapping"`
	Right       bool `json:"right"`
}

// IncludeAll selects all three sets.
var IncludeAll = Include{Left: true, Overlapping: true, Right: true}

// Any reports whether at least one set is selected.
func (in Include) Any() bool {
	return in.Left || in.Overlapping || in.Right
}

// DiffResult holds the sets computed by Diff. Sets that were not requested
// are nil.
type DiffResult struct {
	Left        []table.Row
	Overlapping []table.Row
	Right       []table.Row
}

// Rows concatenates the computed sets in the order left, overlapping, right.
func (d DiffResult) Rows() []table.Row {
	out := make([]table.Row, 0, len(d.Left)+len(d.Overlapping)+len(d.Right))
	out = append(out, d.Left...)
	out = append(out, d.Overlapping...)
	out = append(out, d.Right...)
	return out
}

// Columns is the column order used when the combined rows are encoded.
func (d DiffResult) Columns() []string {
	return table.KeysOf(d.Rows())
}

// Diff reconciles a against b and computes the requested sets.
//
// Both tables must carry a header and the join spec must name a column on
// each side, otherwise a ConfigurationError is returned and nothing is
// computed.
func Diff(a, b table.Table, spec JoinSpec, include Include) (DiffResult, error) {
	const op = "diff"
	if err := checkInputs(op, a, b, spec); err != nil {
		return DiffResult{}, err
	}
	if !include.Any() {
		return DiffResult{}, table.Configf(op, "no output set selected")
	}

	var res DiffResult
	if include.Left {
		res.Left = LeftOnly(a, b, spec)
	}
	if include.Overlapping {
		res.Overlapping = Overlapping(a, b, spec)
	}
	if include.Right {
		res.Right = RightOnly(a, b, spec)
	}
	return res, nil
}

func checkInputs(op string, a, b table.Table, spec JoinSpec) error {
	if err := spec.Validate(op); err != nil {
		return err
	}
	if err := a.RequireHeader(op); err != nil {
		return err
	}
	return b.RequireHeader(op)
}
