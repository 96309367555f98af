// Command tabletool runs the split, diff, filter, merge and inspect
// operations on local CSV files.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/tabletools/internal/config"
	"github.com/JonMunkholm/tabletools/internal/core"
	"github.com/JonMunkholm/tabletools/internal/logging"
)

// commandHandler runs the command if it owns it and reports whether it did.
type commandHandler func(ctx context.Context, env *environment, command string) bool

var (
	app = kingpin.New("tabletool", "Split, reconcile and filter CSV files.")

	outDir = app.Flag("out", "Directory generated files are written to.").
		Short('o').Default(".").String()
	headerless = app.Flag("headerless", "Treat the first line of every input as data.").
			Bool()
	logLevel = app.Flag("log-level", "Log level (debug, info, warn, error).").
			Envar("LOG_LEVEL").Default("warn").Enum("debug", "info", "warn", "error")
	logFormat = app.Flag("log-format", "Log format (text, json).").
			Envar("LOG_FORMAT").Default("text").Enum("text", "json")

	commandHandlers []commandHandler
)

// environment is what every command needs to run.
type environment struct {
	service *core.Service
	logger  *slog.Logger
	out     string
}

func main() {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	app.HelpFlag.Short('h')
	app.UsageTemplate(kingpin.CompactUsageTemplate)
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := logging.New(os.Stderr, *logLevel, *logFormat)
	slog.SetDefault(logger)

	cfg, err := config.Load()
	app.FatalIfError(err, "load configuration")

	env := &environment{
		service: core.NewService(core.Options{
			Limiter:     core.NewOperationLimiter(1, cfg.Limits.MaxWaitTime),
			MaxFileSize: cfg.Limits.MaxFileSize,
			MaxRows:     cfg.Limits.MaxRows,
			MaxParts:    cfg.Limits.MaxParts,
			Timeout:     cfg.Limits.Timeout,
		}),
		logger: logger,
		out:    *outDir,
	}

	ctx := context.Background()
	for _, handler := range commandHandlers {
		if handler(ctx, env, command) {
			return
		}
	}
	app.Fatalf("unknown command %q", command)
}

// readInput loads a local file for a table slot.
func readInput(path string) (core.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Input{}, fmt.Errorf("read %s: %w", path, err)
	}
	return core.Input{
		Name:      filepath.Base(path),
		Data:      data,
		HasHeader: !*headerless,
	}, nil
}

// fatalIfError exits with the user-facing message for err.
func fatalIfError(err error, format string, args ...any) {
	if err == nil {
		return
	}
	msg := core.MapError(err)
	slog.Debug("command failed", "error", err)
	app.Fatalf("%s: %s. %s (%s)", fmt.Sprintf(format, args...), msg.Message, msg.Action, msg.Code)
}
