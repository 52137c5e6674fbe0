package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/veloxcrdb"
	"github.com/syssam/veloxcrdb/dialect"
	"github.com/syssam/veloxcrdb/dialect/sql/schema"
	"github.com/syssam/veloxcrdb/internal/config"
	"github.com/syssam/veloxcrdb/retry"
	"github.com/syssam/veloxcrdb/schema/field"
)

// TablesCmd lists tables.
type TablesCmd struct {
	Database []string `help:"Databases to inspect. Default is all." short:"d"`
	Columns  bool     `help:"Also print the columns and their field kinds."`
}

// Run executes the tables command.
func (cmd *TablesCmd) Run(appCtx *Context) error {
	w := tabwriter.NewWriter(appCtx.Out, 0, 4, 2, ' ', 0)
	err := forEach(context.Background(), appCtx, cmd.Database, func(ctx context.Context, c *conn) error {
		tables, err := c.in.TableList(ctx)
		if err != nil {
			return err
		}
		for _, t := range tables {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.name, t.Name, t.Type)
			if !cmd.Columns {
				continue
			}
			cols, err := c.in.TableDescription(ctx, t.Name)
			if err != nil {
				return err
			}
			for _, col := range cols {
				kind, ok := c.in.FieldKind(col)
				if !ok {
					kind = "?"
				}
				fmt.Fprintf(w, "\t  %s\t%s\n", col.Name, kind)
			}
		}
		return nil
	})
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	return err
}

// FlushCmd removes all rows from tables.
type FlushCmd struct {
	Tables   []string `arg:"" optional:"" help:"Tables to flush. Default is the flush list of the configuration."`
	Database []string `help:"Databases to flush. Default is all." short:"d"`
	Cascade  bool     `help:"Also flush tables referencing the given tables."`
	Parallel int      `help:"Maximum number of databases flushed concurrently." default:"4"`
}

// Run executes the flush command. Databases are flushed concurrently and
// every failure is reported.
func (cmd *FlushCmd) Run(appCtx *Context) error {
	cfg, err := config.Load(appCtx.Config)
	if err != nil {
		return err
	}
	tables := cmd.Tables
	if len(tables) == 0 {
		tables = cfg.Flush
	}
	if len(tables) == 0 {
		return errors.New("no tables to flush")
	}
	dbs, err := cfg.Select(cmd.Database...)
	if err != nil {
		return err
	}
	return flushAll(context.Background(), appCtx, dbs, cfg.Retry.Policy(), tables, cmd.Cascade, cmd.Parallel)
}

// flushAll flushes tables in every database of dbs.
func flushAll(ctx context.Context, appCtx *Context, dbs map[string]config.Database, policy retry.Policy, tables []string, cascade bool, parallel int) error {
	names := make([]string, 0, len(dbs))
	for name := range dbs {
		names = append(names, name)
	}
	sort.Strings(names)
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs = make([]error, len(names))
		log  = appCtx.Log.With("flush_id", uuid.NewString())
	)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	log.Info("flushing tables", "databases", names, "tables", tables, "cascade", cascade)
	for i, name := range names {
		g.Go(func() error {
			n, err := flushOne(ctx, appCtx, name, dbs[name], policy, tables, cascade)
			if err != nil {
				log.Error("flush failed", "database", name, "error", err)
				errs[i] = fmt.Errorf("%s: %w", name, err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(appCtx.Out, "%s: flushed %d tables (%d statements)\n", name, len(tables), n)
			return nil
		})
	}
	_ = g.Wait()
	return veloxcrdb.NewAggregateError(errs...)
}

func flushOne(ctx context.Context, appCtx *Context, name string, db config.Database, policy retry.Policy, tables []string, cascade bool) (int, error) {
	c, err := open(appCtx, name, db, policy)
	if err != nil {
		return 0, err
	}
	stmts := c.ops.SQLFlush(tables, schema.FlushOptions{AllowCascade: cascade})
	err = c.ops.ExecuteSQLFlush(c.context(ctx), stmts)
	if cerr := c.Close(appCtx); err == nil {
		err = cerr
	}
	return len(stmts), err
}

// ExplainCmd prints the EXPLAIN prefix of a dialect.
type ExplainCmd struct {
	Dialect string          `help:"Dialect name." default:"cockroach" enum:"cockroach,postgres"`
	Format  string          `help:"Output format."`
	Option  map[string]bool `help:"EXPLAIN options, e.g. --option verbose=true." short:"o"`
}

// Run executes the explain command.
func (cmd *ExplainCmd) Run(appCtx *Context) error {
	ops, _, err := newDialect(cmd.Dialect, nil, nil, retry.DefaultPolicy, appCtx)
	if err != nil {
		return err
	}
	prefix, err := ops.ExplainQueryPrefix(cmd.Format, cmd.Option)
	if err != nil {
		return err
	}
	fmt.Fprintln(appCtx.Out, prefix)
	return nil
}

// FeaturesCmd prints the capabilities of a dialect.
type FeaturesCmd struct {
	Dialect string `help:"Dialect name." default:"cockroach" enum:"cockroach,postgres"`
}

// Run executes the features command.
func (cmd *FeaturesCmd) Run(appCtx *Context) error {
	ops, _, err := newDialect(cmd.Dialect, nil, nil, retry.DefaultPolicy, appCtx)
	if err != nil {
		return err
	}
	return printFeatures(appCtx.Out, cmd.Dialect, ops)
}

// printFeatures writes the capabilities of the named dialect as a table.
func printFeatures(out io.Writer, name string, ops Dialect) error {
	f := ops.Features()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "dialect\t%s\n", name)
	fmt.Fprintf(w, "deferrable constraints\t%t\n", f.CanDeferConstraintChecks)
	fmt.Fprintf(w, "deferrable unique constraints\t%t\n", f.SupportsDeferrableUniqueConstraints)
	fmt.Fprintf(w, "deferrable sql\t%q\n", ops.DeferrableSQL())
	fmt.Fprintf(w, "sequence reset\t%t\n", f.SupportsSequenceReset)
	fmt.Fprintf(w, "explain formats\t%s\n", orNone(f.ExplainFormats))
	fmt.Fprintf(w, "time zones\t%t\n", f.SupportsTimezones)
	fmt.Fprintf(w, "gis\t%t\n", f.SupportsGIS)
	if name == dialect.CockroachDB {
		lib, err := ops.PostGISLibVersion(context.Background())
		if err != nil {
			return err
		}
		v, err := ops.PostGISVersion(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "postgis\t%s (lib %s)\n", v, lib)
	}
	fmt.Fprintf(w, "unsupported gis functions\t%s\n", orNone(ops.UnsupportedFunctions()))
	ranges := ops.IntegerFieldRanges()
	kinds := make([]string, 0, len(ranges))
	for k := range ranges {
		kinds = append(kinds, string(k))
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "%s\t%s\n", k, ranges[field.Kind(k)])
	}
	return w.Flush()
}

func orNone(s []string) string {
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, ", ")
}
