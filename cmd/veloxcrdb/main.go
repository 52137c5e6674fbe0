// Command veloxcrdb inspects and flushes CockroachDB and PostgreSQL databases
// through the veloxcrdb dialects.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Context is passed to every command.
type Context struct {
	Config string
	Stats  bool
	Out    io.Writer
	Log    *slog.Logger
}

// CLI is the command line interface.
type CLI struct {
	Config string `help:"Configuration file path." default:"veloxcrdb.yaml" short:"c" type:"path"`
	Debug  bool   `help:"Log every statement."`
	Stats  bool   `help:"Log query statistics on exit."`

	Tables   TablesCmd   `cmd:"" help:"List the tables of the configured databases."`
	Flush    FlushCmd    `cmd:"" help:"Remove all rows from tables."`
	Explain  ExplainCmd  `cmd:"" help:"Print the EXPLAIN prefix of a dialect."`
	Features FeaturesCmd `cmd:"" help:"Print the capabilities of a dialect."`
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("veloxcrdb"),
		kong.Description("CockroachDB dialect tooling."),
		kong.UsageOnError(),
	)
	appCtx := &Context{
		Config: cli.Config,
		Stats:  cli.Stats,
		Out:    os.Stdout,
		Log:    newLogger(os.Stderr, cli.Debug),
	}
	if err := kctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
