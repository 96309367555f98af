package main

import (
	"context"

	"github.com/JonMunkholm/tabletools/internal/core"
)

var (
	splitCommand = app.Command("split", "Cut a file into contiguous parts.")

	splitFile = splitCommand.Arg("file", "CSV file to split.").
			Required().ExistingFile()
	splitParts = splitCommand.Flag("parts", "Number of parts.").
			Short('n').Required().Int()
)

func doSplit(ctx context.Context, env *environment) {
	in, err := readInput(*splitFile)
	fatalIfError(err, "split")

	res, err := env.service.Split(ctx, core.SplitRequest{File: in, Parts: *splitParts})
	finish(env, "split", res, err)
}

func init() {
	commandHandlers = append(commandHandlers, func(ctx context.Context, env *environment, command string) bool {
		if command != splitCommand.FullCommand() {
			return false
		}
		doSplit(ctx, env)
		return true
	})
}
