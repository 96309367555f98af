package predicate

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/JonMunkholm/tabletools/internal/table"
)

func TestEvaluate(t *testing.T) {
	row := table.RowFromPairs("status", "active", "note", "")

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"empty on empty", Condition{"note", Empty, ""}, true},
		{"empty on value", Condition{"status", Empty, ""}, false},
		{"empty on missing column", Condition{"nope", Empty, ""}, true},
		{"not-empty", Condition{"status", NotEmpty, "ignored"}, true},
		{"not-empty on missing column", Condition{"nope", NotEmpty, ""}, false},
		{"contains", Condition{"status", Contains, "tiv"}, true},
		{"contains empty needle", Condition{"note", Contains, ""}, true},
		{"contains is case sensitive", Condition{"status", Contains, "ACT"}, false},
		{"not-contains", Condition{"status", NotContains, "xyz"}, true},
		{"equal", Condition{"status", Equal, "active"}, true},
		{"equal mismatch", Condition{"status", Equal, "inactive"}, false},
		{"not-equal", Condition{"status", NotEqual, "inactive"}, true},
		{"not-equal missing column", Condition{"nope", NotEqual, ""}, false},
		{"unknown operator", Condition{"status", Operator("like"), "a"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(row, tt.cond); got != tt.want {
				t.Errorf("Evaluate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateGroupAndExpression(t *testing.T) {
	row := table.RowFromPairs("status", "active", "plan", "free")

	if !EvaluateGroup(row, Group{}) {
		t.Error("empty group should be true")
	}
	if EvaluateExpression(row, Expression{}) {
		t.Error("empty expression should be false")
	}

	and := Group{{"status", Equal, "active"}, {"plan", Equal, "pro"}}
	if EvaluateGroup(row, and) {
		t.Error("AND group with one false condition evaluated true")
	}

	or := Expression{and, Group{{"plan", Equal, "free"}}}
	if !EvaluateExpression(row, or) {
		t.Error("OR expression with one true group evaluated false")
	}

	vacuous := Expression{and, Group{}}
	if !EvaluateExpression(row, vacuous) {
		t.Error("expression containing an empty group should be true")
	}
}

func statusTable(statuses ...string) table.Table {
	rows := make([]table.Row, len(statuses))
	for i, s := range statuses {
		rows[i] = table.RowFromPairs("status", s)
	}
	return table.New(rows, true)
}

func TestFilter_Example(t *testing.T) {
	tbl := statusTable("active", "inactive", "active")
	expr := Expression{Group{{Column: "status", Operator: Equal, Value: "active"}}}

	res, err := Filter(tbl, expr)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(res.Matching) != 2 || len(res.Missing) != 1 {
		t.Errorf("matching=%d missing=%d, want 2 and 1", len(res.Matching), len(res.Missing))
	}
	if res.Missing[0].Value("status") != "inactive" {
		t.Errorf("missing row = %v", res.Missing[0])
	}
}

func TestFilter_EmptyExpressionMissesAll(t *testing.T) {
	tbl := statusTable("a", "b")
	res, err := Filter(tbl, nil)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(res.Matching) != 0 || len(res.Missing) != 2 {
		t.Errorf("matching=%d missing=%d, want 0 and 2", len(res.Matching), len(res.Missing))
	}
}

func TestFilter_Errors(t *testing.T) {
	tests := []struct {
		name string
		tbl  table.Table
		expr Expression
	}{
		{"headerless", table.New(nil, false), nil},
		{"no column", statusTable("a"), Expression{Group{{Operator: Empty}}}},
		{"bad operator", statusTable("a"), Expression{Group{{Column: "status", Operator: "like"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Filter(tt.tbl, tt.expr)
			if !errors.Is(err, table.ErrConfiguration) {
				t.Errorf("err = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestFilter_PartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	vals := []string{"", "a", "ab", "b"}
	ops := Operators()

	for i := 0; i < 300; i++ {
		statuses := make([]string, rng.Intn(10))
		for j := range statuses {
			statuses[j] = vals[rng.Intn(len(vals))]
		}
		tbl := statusTable(statuses...)

		expr := make(Expression, rng.Intn(3))
		for g := range expr {
			group := make(Group, rng.Intn(3))
			for c := range group {
				group[c] = Condition{
					Column:   "status",
					Operator: ops[rng.Intn(len(ops))],
					Value:    vals[rng.Intn(len(vals))],
				}
			}
			expr[g] = group
		}

		res, err := Filter(tbl, expr)
		if err != nil {
			t.Fatalf("Filter: %v", err)
		}
		if len(res.Matching)+len(res.Missing) != tbl.Len() {
			t.Fatalf("case %d: %d + %d != %d", i, len(res.Matching), len(res.Missing), tbl.Len())
		}
		for _, r := range res.Matching {
			if !EvaluateExpression(r, expr) {
				t.Fatalf("case %d: non-matching row in Matching: %v", i, r)
			}
		}
		for _, r := range res.Missing {
			if EvaluateExpression(r, expr) {
				t.Fatalf("case %d: matching row in Missing: %v", i, r)
			}
		}
	}
}

func TestParseExpression(t *testing.T) {
	expr, err := ParseExpression([]byte(`[[{"column":"status","operator":"equal","value":"active"}],[]]`))
	if err != nil {
		t.Fatalf("ParseExpression: %v", err)
	}
	if len(expr) != 2 || expr.Conditions() != 1 {
		t.Fatalf("expr = %+v", expr)
	}
	if expr[0][0].Operator != Equal {
		t.Errorf("operator = %q, want equal", expr[0][0].Operator)
	}

	for _, bad := range []string{`{`, `[[{"column":"a","operator":"like"}]]`, `[[{"operator":"empty"}]]`} {
		if _, err := ParseExpression([]byte(bad)); !errors.Is(err, table.ErrConfiguration) {
			t.Errorf("ParseExpression(%s) err = %v, want ErrConfiguration", bad, err)
		}
	}
}

func TestParseOperator(t *testing.T) {
	for _, op := range Operators() {
		got, err := ParseOperator(string(op))
		if err != nil || got != op {
			t.Errorf("ParseOperator(%q) = %q, %v", op, got, err)
		}
	}
	if _, err := ParseOperator("between"); err == nil {
		t.Error("ParseOperator(between) succeeded")
	}
	if Empty.NeedsValue() || !Contains.NeedsValue() {
		t.Error("NeedsValue mismatch")
	}
}

func TestExpressionString(t *testing.T) {
	expr := Expression{
		Group{{"status", Equal, "active"}, {"note", Empty, ""}},
		Group{{"plan", Contains, "pro"}},
	}
	want := `(status equal "active" AND note empty) OR (plan contains "pro")`
	if got := expr.String(); got != want {
		t.Errorf("String = %s, want %s", got, want)
	}
}
