package main

import (
	"context"
	"fmt"
	"time"

	"github.com/syssam/veloxcrdb/dialect"
	"github.com/syssam/veloxcrdb/dialect/cockroach"
	"github.com/syssam/veloxcrdb/dialect/postgres"
	"github.com/syssam/veloxcrdb/dialect/sql"
	"github.com/syssam/veloxcrdb/dialect/sql/schema"
	"github.com/syssam/veloxcrdb/dialect/sql/sqlgraph"
	"github.com/syssam/veloxcrdb/internal/config"
	"github.com/syssam/veloxcrdb/retry"
	"github.com/syssam/veloxcrdb/schema/field"
)

// Dialect is implemented by the operations of every supported dialect.
type Dialect interface {
	schema.Operations
	schema.GISOperations
	IntegerFieldRanges() field.Ranges
	Features() schema.Features
}

var (
	_ Dialect = (*postgres.Operations)(nil)
	_ Dialect = (*cockroach.Operations)(nil)
)

// newDialect returns the operations of the named dialect running on drv.
func newDialect(name string, drv dialect.Driver, loc *time.Location, policy retry.Policy, appCtx *Context) (Dialect, schema.Introspector, error) {
	switch name {
	case dialect.CockroachDB:
		ops := cockroach.NewOperations(drv,
			cockroach.WithTimeZone(loc),
			cockroach.WithLogger(appCtx.Log),
			cockroach.WithRetryPolicy(policy),
		)
		return ops, cockroach.NewIntrospection(drv), nil
	case dialect.Postgres:
		ops := postgres.NewOperations(drv, postgres.WithTimeZone(loc), postgres.WithLogger(appCtx.Log))
		return ops, postgres.NewIntrospection(drv), nil
	default:
		return nil, nil, fmt.Errorf("unsupported dialect %q", name)
	}
}

// conn is an open connection to a configured database.
type conn struct {
	name  string
	drv   dialect.Driver
	ops   Dialect
	in    schema.Introspector
	stats *sql.QueryStats
	// session settings applied to every statement.
	loc     *time.Location
	timeout time.Duration
}

// context returns ctx carrying the session settings of the database.
func (c *conn) context(ctx context.Context) context.Context {
	return sql.WithStatementTimeout(sql.WithTimeZone(ctx, c.loc), c.timeout)
}

// open connects to the database db configured under name.
func open(appCtx *Context, name string, db config.Database, policy retry.Policy) (*conn, error) {
	loc, err := db.Location()
	if err != nil {
		return nil, err
	}
	c := &conn{name: name, loc: loc, timeout: db.StatementTimeout}
	if appCtx.Stats {
		c.drv, c.stats, err = sql.OpenWithStats(db.Dialect, db.Driver, db.DSN,
			sql.WithSlowQueryLog(appCtx.Log),
			sql.WithRetryableErrors(sqlgraph.IsSerializationFailure),
		)
	} else {
		c.drv, err = sql.OpenDriver(db.Dialect, db.Driver, db.DSN)
	}
	if err != nil {
		return nil, err
	}
	// Statements are logged at debug level; the handler drops them unless --debug is set.
	c.drv = sql.NewDebugDriver(c.drv, sql.DebugWithLogger(appCtx.Log.With("database", name)))
	if c.ops, c.in, err = newDialect(db.Dialect, c.drv, loc, policy, appCtx); err != nil {
		c.drv.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the connection and logs its statistics, if collected.
func (c *conn) Close(appCtx *Context) error {
	if c.stats != nil {
		appCtx.Log.Info("query stats", "database", c.name, "stats", c.stats.Stats())
	}
	return c.drv.Close()
}

// forEach opens every selected database and calls fn with it.
func forEach(ctx context.Context, appCtx *Context, names []string, fn func(context.Context, *conn) error) error {
	cfg, err := config.Load(appCtx.Config)
	if err != nil {
		return err
	}
	dbs, err := cfg.Select(names...)
	if err != nil {
		return err
	}
	for _, name := range cfg.Names() {
		db, ok := dbs[name]
		if !ok {
			continue
		}
		c, err := open(appCtx, name, db, cfg.Retry.Policy())
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		err = fn(c.context(ctx), c)
		if cerr := c.Close(appCtx); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
