// Package sql provides the database/sql backed implementation of the
// dialect.Driver interface.
//
// # Driver
//
// Driver wraps a *sql.DB and tags it with a dialect name. CockroachDB is
// reached through a PostgreSQL driver, so the dialect and the database/sql
// driver name are passed separately:
//
//	drv, err := sql.OpenDriver(dialect.CockroachDB, "pgx", dsn)
//
// # Session Settings
//
// Settings attached to the context are applied with SET on a dedicated
// connection and reset before it returns to the pool. Transactions begun
// with the context apply them with SET LOCAL:
//
//	ctx = sql.WithStatementTimeout(ctx, 5*time.Second)
//	ctx = sql.WithTimeZone(ctx, loc)
//	err := drv.Exec(ctx, "TRUNCATE users", []any{}, nil)
//
// # Decorators
//
// StatsDriver collects statement counters, slow queries and retryable errors.
// DebugDriver writes every statement to a log/slog logger.
//
//	stats := sql.NewStatsDriver(drv,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithRetryableErrors(sqlgraph.IsSerializationFailure),
//	)
//
// # Timestamps
//
// NaiveTime carries a wall clock without a time zone. The CockroachDB dialect
// localizes it so that values are stored as TIMESTAMPTZ.
package sql
