package main

import (
	"context"
	"os"
	"strings"

	"github.com/JonMunkholm/tabletools/internal/core"
	"github.com/JonMunkholm/tabletools/internal/predicate"
	"github.com/JonMunkholm/tabletools/internal/table"
)

var (
	filterCommand = app.Command("filter", "Split a file into matching and missing rows.")

	filterFile = filterCommand.Arg("file", "CSV file to filter.").Required().ExistingFile()

	filterWhere = filterCommand.Flag("where",
		"Condition as column:operator[:value]; repeated conditions must all hold.").
		Short('w').Strings()
	filterExpression = filterCommand.Flag("expression",
		"Expression as JSON: a list of groups, each a list of conditions.").String()
	filterExpressionFile = filterCommand.Flag("expression-file",
		"File holding the JSON expression.").ExistingFile()
)

// parseWhere builds a single AND group from column:operator[:value] terms.
// The value may itself contain colons.
func parseWhere(terms []string) (predicate.Group, error) {
	group := make(predicate.Group, 0, len(terms))
	for _, term := range terms {
		parts := strings.SplitN(term, ":", 3)
		if len(parts) < 2 {
			return nil, table.Configf("filter", "condition %q is not column:operator[:value]", term)
		}
		op, err := predicate.ParseOperator(parts[1])
		if err != nil {
			return nil, table.Configf("filter", "condition %q: %v", term, err)
		}
		cond := predicate.Condition{Column: parts[0], Operator: op}
		if len(parts) == 3 {
			cond.Value = parts[2]
		}
		group = append(group, cond)
	}
	return group, nil
}

// expressionFromFlags reads the expression from exactly one of --where,
// --expression or --expression-file. None yields the empty expression.
func expressionFromFlags(where []string, raw, path string) (predicate.Expression, error) {
	set := 0
	for _, given := range []bool{len(where) > 0, raw != "", path != ""} {
		if given {
			set++
		}
	}
	if set > 1 {
		return nil, table.Configf("filter", "use only one of --where, --expression and --expression-file")
	}

	switch {
	case len(where) > 0:
		group, err := parseWhere(where)
		if err != nil {
			return nil, err
		}
		return predicate.Expression{group}, nil
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return predicate.ParseExpression(data)
	case raw != "":
		return predicate.ParseExpression([]byte(raw))
	}
	return predicate.Expression{}, nil
}

func doFilter(ctx context.Context, env *environment) {
	in, err := readInput(*filterFile)
	fatalIfError(err, "filter")

	expr, err := expressionFromFlags(*filterWhere, *filterExpression, *filterExpressionFile)
	fatalIfError(err, "filter")
	env.logger.Debug("filter expression", "expression", expr.String())

	res, err := env.service.Filter(ctx, core.FilterRequest{File: in, Expression: expr})
	finish(env, "filter", res, err)
}

func init() {
	commandHandlers = append(commandHandlers, func(ctx context.Context, env *environment, command string) bool {
		if command != filterCommand.FullCommand() {
			return false
		}
		doFilter(ctx, env)
		return true
	})
}
