package core

import (
	"github.com/JonMunkholm/tabletools/internal/naming"
	"github.com/JonMunkholm/tabletools/internal/predicate"
	"github.com/JonMunkholm/tabletools/internal/reconcile"
	"github.com/JonMunkholm/tabletools/internal/table"
)

// Input is one file supplied for a table slot.
type Input struct {
	Name      string `json:"name" validate:"required"`
	Data      []byte `json:"-"`
	HasHeader bool   `json:"has_header"`
}

// SplitRequest cuts one file into Parts files.
type SplitRequest struct {
	File  Input
	Parts int `validate:"min=1"`
}

// DiffRequest reconciles A against B.
type DiffRequest struct {
	A       Input
	B       Input
	Join    reconcile.JoinSpec
	Include reconcile.Include
}

// FilterRequest splits one file by a predicate expression.
type FilterRequest struct {
	File       Input
	Expression predicate.Expression
}

// MergeRequest enriches every row of A with its match in B.
type MergeRequest struct {
	A    Input
	B    Input
	Join reconcile.JoinSpec
}

// InspectRequest asks for a file's shape.
type InspectRequest struct {
	File Input
}

// Output is one generated file.
type Output struct {
	Name       string   `json:"name"`
	Rows       int      `json:"rows"`
	Size       int64    `json:"size"`
	Columns    []string `json:"columns"`
	ArtifactID string   `json:"artifact_id"`
}

// Result describes a completed operation.
type Result struct {
	ID         string         `json:"id"`
	Kind       naming.Kind    `json:"kind"`
	Outputs    []Output       `json:"outputs"`
	Stats      map[string]int `json:"stats"`
	Summary    string         `json:"summary"`
	DurationMs int64          `json:"duration_ms"`
}

// RowsOut sums the rows of all outputs.
func (r *Result) RowsOut() int {
	n := 0
	for _, o := range r.Outputs {
		n += o.Rows
	}
	return n
}

// InspectResult describes a decoded file without transforming it.
type InspectResult struct {
	Name          string      `json:"name"`
	Rows          int         `json:"rows"`
	HasHeader     bool        `json:"has_header"`
	Columns       []string    `json:"columns"`
	SuggestedJoin string      `json:"suggested_join,omitempty"`
	Preview       []table.Row `json:"preview"`
}

// pendingOutput is an engine result waiting to be encoded and stored.
type pendingOutput struct {
	name          string
	rows          []table.Row
	columns       []string
	includeHeader bool
}
