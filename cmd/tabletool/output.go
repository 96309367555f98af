package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/JonMunkholm/tabletools/internal/core"
)

// writeOutputs copies every generated file of res into dir and returns the
// paths written, in output order.
func writeOutputs(svc *core.Service, res *core.Result, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	paths := make([]string, 0, len(res.Outputs))
	for _, o := range res.Outputs {
		a, err := svc.Artifact(o.ArtifactID)
		if err != nil {
			return paths, fmt.Errorf("fetch %s: %w", o.Name, err)
		}
		path := filepath.Join(dir, o.Name)
		if err := os.WriteFile(path, a.Data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		svc.Artifacts().Delete(o.ArtifactID)
		paths = append(paths, path)
	}
	return paths, nil
}

// renderResult prints a summary table of the written files.
func renderResult(w io.Writer, res *core.Result, paths []string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Rows", "Size"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetCaption(true, fmt.Sprintf("%s: %s (%d ms)", res.Kind, res.Summary, res.DurationMs))

	for i, o := range res.Outputs {
		name := o.Name
		if i < len(paths) {
			name = paths[i]
		}
		table.Append([]string{name, strconv.Itoa(o.Rows), humanize.Bytes(uint64(o.Size))})
	}
	table.Render()
}

// finish writes the outputs of a completed operation and prints them.
func finish(env *environment, op string, res *core.Result, err error) {
	fatalIfError(err, "%s failed", op)

	paths, err := writeOutputs(env.service, res, env.out)
	fatalIfError(err, "write outputs")

	env.logger.Info("operation written", "op", res.Kind, "files", len(paths), "dir", env.out)
	renderResult(os.Stdout, res, paths)
}
