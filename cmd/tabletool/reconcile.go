package main

import (
	"context"

	"github.com/JonMunkholm/tabletools/internal/core"
	"github.com/JonMunkholm/tabletools/internal/reconcile"
)

var (
	diffCommand = app.Command("diff", "Compare two files by a join column.")

	diffA = diffCommand.Arg("a", "First CSV file.").Required().ExistingFile()
	diffB = diffCommand.Arg("b", "Second CSV file.").Required().ExistingFile()

	diffJoinA = diffCommand.Flag("join-a", "Join column of the first file (default: suggested).").String()
	diffJoinB = diffCommand.Flag("join-b", "Join column of the second file (default: suggested).").String()
	diffSets  = diffCommand.Flag("sets", "Row sets to write.").
			Default("left", "overlapping", "right").
			Enums("left", "overlapping", "right")

	mergeCommand = app.Command("merge", "Enrich the first file with matches from the second.")

	mergeA = mergeCommand.Arg("a", "CSV file to enrich.").Required().ExistingFile()
	mergeB = mergeCommand.Arg("b", "CSV file to look up matches in.").Required().ExistingFile()

	mergeJoinA = mergeCommand.Flag("join-a", "Join column of the first file (default: suggested).").String()
	mergeJoinB = mergeCommand.Flag("join-b", "Join column of the second file (default: suggested).").String()
)

// includeFor turns the --sets values into an Include.
func includeFor(sets []string) reconcile.Include {
	var inc reconcile.Include
	for _, s := range sets {
		switch s {
		case "left":
			inc.Left = true
		case "overlapping":
			inc.Overlapping = true
		case "right":
			inc.Right = true
		}
	}
	return inc
}

// joinFor fills in any join column left empty with the column the service
// suggests for that file.
func joinFor(ctx context.Context, env *environment, a, b core.Input, colA, colB string) reconcile.JoinSpec {
	join := reconcile.JoinSpec{ColumnA: colA, ColumnB: colB}
	if join.ColumnA == "" {
		join.ColumnA = suggestJoin(ctx, env, a)
	}
	if join.ColumnB == "" {
		join.ColumnB = suggestJoin(ctx, env, b)
	}
	return join
}

func suggestJoin(ctx context.Context, env *environment, in core.Input) string {
	res, err := env.service.Inspect(ctx, core.InspectRequest{File: in})
	fatalIfError(err, "inspect %s", in.Name)

	if res.SuggestedJoin != "" {
		env.logger.Info("using suggested join column", "file", in.Name, "column", res.SuggestedJoin)
	}
	return res.SuggestedJoin
}

func doDiff(ctx context.Context, env *environment) {
	a, err := readInput(*diffA)
	fatalIfError(err, "diff")
	b, err := readInput(*diffB)
	fatalIfError(err, "diff")

	res, err := env.service.Diff(ctx, core.DiffRequest{
		A:       a,
		B:       b,
		Join:    joinFor(ctx, env, a, b, *diffJoinA, *diffJoinB),
		Include: includeFor(*diffSets),
	})
	finish(env, "diff", res, err)
}

func doMerge(ctx context.Context, env *environment) {
	a, err := readInput(*mergeA)
	fatalIfError(err, "merge")
	b, err := readInput(*mergeB)
	fatalIfError(err, "merge")

	res, err := env.service.Merge(ctx, core.MergeRequest{
		A:    a,
		B:    b,
		Join: joinFor(ctx, env, a, b, *mergeJoinA, *mergeJoinB),
	})
	finish(env, "merge", res, err)
}

func init() {
	commandHandlers = append(commandHandlers, func(ctx context.Context, env *environment, command string) bool {
		switch command {
		case diffCommand.FullCommand():
			doDiff(ctx, env)
		case mergeCommand.FullCommand():
			doMerge(ctx, env)
		default:
			return false
		}
		return true
	})
}
