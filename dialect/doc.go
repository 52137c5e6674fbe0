// Package dialect provides database dialect abstraction for Velox ORM.
//
// This package defines the interfaces and types used for database-specific
// operations. The PostgreSQL family is the focus of this module: the
// dialect/postgres package implements the PostgreSQL dialect and
// dialect/cockroach adapts it to CockroachDB.
//
// # Supported Dialects
//
//	dialect.Postgres    = "postgres"
//	dialect.CockroachDB = "cockroach"
//
// # Driver Interface
//
// The package defines the Driver interface for database operations:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction Interface
//
// The Tx interface extends ExecQuerier with transaction methods:
//
//	type Tx interface {
//	    ExecQuerier
//	    Commit() error
//	    Rollback() error
//	}
//
// # Usage
//
//	import (
//	    "github.com/syssam/veloxcrdb/dialect/cockroach"
//	)
//
//	drv, err := cockroach.Open("pgx", "postgresql://root@localhost:26257/defaultdb")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
//	ops := cockroach.NewOperations(drv)
//	stmts := ops.SQLFlush([]string{"users", "posts"}, schema.FlushOptions{AllowCascade: true})
//	if err := ops.ExecuteSQLFlush(ctx, stmts); err != nil {
//	    log.Fatal(err)
//	}
//
// # Sub-packages
//
//   - dialect/sql: database/sql driver implementation and decorators
//   - dialect/sql/schema: introspection and operations contracts
//   - dialect/sql/sqlgraph: driver error classification
//   - dialect/postgres: PostgreSQL dialect
//   - dialect/cockroach: CockroachDB dialect
package dialect
