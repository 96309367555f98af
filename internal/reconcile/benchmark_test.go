package reconcile

import (
	"strconv"
	"testing"

	"github.com/JonMunkholm/tabletools/internal/table"
)

// ============================================================================
// Reconciliation Benchmarks
// ============================================================================

// benchTables builds two tables of n rows whose ids overlap by half.
func benchTables(n int) (table.Table, table.Table) {
	a := make([]table.Row, n)
	b := make([]table.Row, n)
	for i := range n {
		a[i] = table.NewRow([]string{"id", "name"}, []string{strconv.Itoa(i), "name-" + strconv.Itoa(i)})
		b[i] = table.NewRow([]string{"id", "plan"}, []string{strconv.Itoa(i + n/2), "pro"})
	}
	return table.New(a, true), table.New(b, true)
}

// BenchmarkDiff measures a full three-set diff. FindMatch is a linear scan,
// so this grows quadratically with the row count.
func BenchmarkDiff(b *testing.B) {
	for _, n := range []int{100, 1000} {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			ta, tb := benchTables(n)
			spec := JoinSpec{ColumnA: "id", ColumnB: "id"}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Diff(ta, tb, spec, IncludeAll); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkMerge measures enriching every row of A.
func BenchmarkMerge(b *testing.B) {
	ta, tb := benchTables(1000)
	spec := JoinSpec{ColumnA: "id", ColumnB: "id"}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Merge(ta, tb, spec); err != nil {
			b.Fatal(err)
		}
	}
}
