// Package partition splits a table into a fixed number of contiguous parts.
package partition

import (
	"github.com/JonMunkholm/tabletools/internal/table"
)

// PartSize returns ceil(n/k), the number of rows in every part but the
// trailing ones. It returns 0 when k is not positive.
func PartSize(n, k int) int {
	if k <= 0 || n <= 0 {
		return 0
	}
	return (n + k - 1) / k
}

// Bounds returns the half-open row range [start, end) of part i.
// Parts past the end of the table have start == end == n.
func Bounds(n, k, i int) (start, end int) {
	size := PartSize(n, k)
	start = min(n, i*size)
	end = min(n, (i+1)*size)
	return start, end
}

// Split cuts rows into exactly k contiguous parts of PartSize rows each.
// The last parts may be shorter or empty; empty parts are still returned.
// The parts share the backing array of rows.
func Split(rows []table.Row, k int) ([][]table.Row, error) {
	if k <= 0 {
		return nil, table.Configf("split", "part count must be a positive integer, got %d", k)
	}

	n := len(rows)
	parts := make([][]table.Row, k)
	for i := range parts {
		start, end := Bounds(n, k, i)
		parts[i] = rows[start:end:end]
	}
	return parts, nil
}
