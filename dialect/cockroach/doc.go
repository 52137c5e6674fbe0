// Package cockroach implements the CockroachDB dialect on top of the
// PostgreSQL dialect in package postgres.
//
// CockroachDB speaks the PostgreSQL wire protocol, so connections are opened
// with the "pgx" or "postgres" database/sql drivers:
//
//	drv, err := cockroach.Open("pgx", "postgresql://root@localhost:26257/defaultdb")
//	if err != nil {
//		return err
//	}
//	ops := cockroach.NewOperations(drv, cockroach.WithTimeZone(time.UTC))
//	stmts := ops.SQLFlush([]string{"users"}, schema.FlushOptions{})
//	err = ops.ExecuteSQLFlush(ctx, stmts)
//
// Operations differ from PostgreSQL where CockroachDB lacks support:
// constraints cannot be deferred, sequences cannot be reset, EXPLAIN takes no
// output format, and some spatial functions are missing. Flushes are retried
// on serialization failures with exponential backoff.
package cockroach
