package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/JonMunkholm/tabletools/internal/core"
)

var (
	inspectCommand = app.Command("inspect", "Show a file's columns and first rows.")

	inspectFile = inspectCommand.Arg("file", "CSV file to inspect.").Required().ExistingFile()
)

func renderInspect(w io.Writer, res *core.InspectResult) {
	fmt.Fprintf(w, "%s: %d rows, %d columns\n", res.Name, res.Rows, len(res.Columns))
	if res.SuggestedJoin != "" {
		fmt.Fprintf(w, "suggested join column: %s\n", res.SuggestedJoin)
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	if res.HasHeader {
		table.SetHeader(res.Columns)
	} else {
		header := make([]string, len(res.Columns))
		for i := range header {
			header[i] = "#" + strconv.Itoa(i+1)
		}
		table.SetHeader(header)
	}
	for _, row := range res.Preview {
		table.Append(row.Values(res.Columns))
	}
	table.Render()
}

func doInspect(ctx context.Context, env *environment) {
	in, err := readInput(*inspectFile)
	fatalIfError(err, "inspect")

	res, err := env.service.Inspect(ctx, core.InspectRequest{File: in})
	fatalIfError(err, "inspect")
	renderInspect(os.Stdout, res)
}

func init() {
	commandHandlers = append(commandHandlers, func(ctx context.Context, env *environment, command string) bool {
		if command != inspectCommand.FullCommand() {
			return false
		}
		doInspect(ctx, env)
		return true
	})
}
