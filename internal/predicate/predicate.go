// Package predicate evaluates two-level filter expressions against rows.
//
// An Expression is a list of Groups joined by OR; a Group is a list of
// Conditions joined by AND. An empty group is true and an empty expression
// is false.
package predicate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tabletools/internal/table"
)

// Operator is the comparison applied by a Condition.
type Operator string

const (
	Empty       Operator = "empty"
	NotEmpty    Operator = "not-empty"
	Contains    Operator = "contains"
	NotContains Operator = "not-contains"
	Equal       Operator = "equal"
	NotEqual    Operator = "not-equal"
)

var operators = []Operator{Empty, NotEmpty, Contains, NotContains, Equal, NotEqual}

// Operators lists every supported operator in display order.
func Operators() []Operator {
	out := make([]Operator, len(operators))
	copy(out, operators)
	return out
}

// ParseOperator returns the operator named s.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.TrimSpace(s))
	if !op.Valid() {
		return "", fmt.Errorf("unknown operator %q", s)
	}
	return op, nil
}

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	for _, o := range operators {
		if o == op {
			return true
		}
	}
	return false
}

// NeedsValue reports whether the operator compares against Condition.Value.
func (op Operator) NeedsValue() bool {
	return op != Empty && op != NotEmpty
}

// Condition tests one column of a row.
type Condition struct {
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value,omitempty"`
}

// Group is a conjunction of conditions.
type Group []Condition

// Expression is a disjunction of groups.
type Expression []Group

// Evaluate applies c to row. A missing column reads as "".
func Evaluate(row table.Row, c Condition) bool {
	v := row.Value(c.Column)
	switch c.Operator {
	case Empty:
		return v == ""
	case NotEmpty:
		return v != ""
	case Contains:
		return strings.Contains(v, c.Value)
	case NotContains:
		return !strings.Contains(v, c.Value)
	case Equal:
		return v == c.Value
	case NotEqual:
		return v != c.Value
	}
	return false
}

// EvaluateGroup reports whether every condition of g holds for row.
func EvaluateGroup(row table.Row, g Group) bool {
	for _, c := range g {
		if !Evaluate(row, c) {
			return false
		}
	}
	return true
}

// EvaluateExpression reports whether any group of expr holds for row.
func EvaluateExpression(row table.Row, expr Expression) bool {
	for _, g := range expr {
		if EvaluateGroup(row, g) {
			return true
		}
	}
	return false
}

// Validate checks that every condition names a column and a supported
// operator. Columns absent from the table are allowed; they read as "".
func (expr Expression) Validate() error {
	for gi, g := range expr {
		for ci, c := range g {
			if c.Column == "" {
				return table.Configf("filter", "group %d condition %d has no column", gi+1, ci+1)
			}
			if !c.Operator.Valid() {
				return table.Configf("filter", "group %d condition %d: unknown operator %q", gi+1, ci+1, c.Operator)
			}
		}
	}
	return nil
}

// Conditions returns the total number of conditions across all groups.
func (expr Expression) Conditions() int {
	n := 0
	for _, g := range expr {
		n += len(g)
	}
	return n
}

// ParseExpression decodes the JSON form of an expression:
//
//	[[{"column":"status","operator":"equal","value":"active"}]]
//
// The result is validated before it is returned.
func ParseExpression(data []byte) (Expression, error) {
	var expr Expression
	if err := json.Unmarshal(data, &expr); err != nil {
		return nil, table.Configf("filter", "malformed expression: %v", err)
	}
	if err := expr.Validate(); err != nil {
		return nil, err
	}
	return expr, nil
}

func (expr Expression) String() string {
	groups := make([]string, 0, len(expr))
	for _, g := range expr {
		conds := make([]string, 0, len(g))
		for _, c := range g {
			if c.Operator.NeedsValue() {
				conds = append(conds, fmt.Sprintf("%s %s %q", c.Column, c.Operator, c.Value))
			} else {
				conds = append(conds, fmt.Sprintf("%s %s", c.Column, c.Operator))
			}
		}
		groups = append(groups, "("+strings.Join(conds, " AND ")+")")
	}
	return strings.Join(groups, " OR ")
}
