package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
)

const usage = `usage: valency [-config file] [-db file] <command> [flags]

commands:
  ingest        read CoNLL-U files and record valency frames
  top           most frequent patterns, overall or for one lemma
  variable      lemmas with the most distinct patterns
  changes       dominant-pattern changes between two periods
  timeline      changes across consecutive periods
  alternations  lemmas attested with more than one voice
  summary       corpus totals, or one ingestion run with -run
  examples      stored frames and examples of one lemma
`

var errUsage = errors.New("invalid usage")

func main() {
	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "valency: %v\n", err)
		}
		os.Exit(1)
	}
}

// run parses global flags and dispatches to a command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("valency", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configFlag := fs.String("config", "", "Path to YAML config (default $CONFIG_PATH or ./valency.yaml)")
	dbFlag := fs.String("db", "", "Path to SQLite database (overrides config)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	app, err := newApp(*configFlag, *dbFlag, stdout, stderr)
	if err != nil {
		return err
	}
	defer app.Close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "ingest":
		return app.ingest(ctx, rest)
	case "top":
		return app.top(ctx, rest)
	case "variable":
		return app.variable(ctx, rest)
	case "changes":
		return app.changes(ctx, rest)
	case "timeline":
		return app.timeline(ctx, rest)
	case "alternations":
		return app.alternations(ctx, rest)
	case "summary":
		return app.summary(ctx, rest)
	case "examples":
		return app.examples(ctx, rest)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		fs.Usage()
		return errUsage
	}
}
