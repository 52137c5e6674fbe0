package cockroach

import (
	"github.com/syssam/veloxcrdb/dialect"
	"github.com/syssam/veloxcrdb/dialect/sql"
)

// Open opens a CockroachDB driver. driverName is the registered database/sql
// driver used to connect, usually "pgx" or "postgres".
func Open(driverName, source string) (*sql.Driver, error) {
	return sql.OpenDriver(dialect.CockroachDB, driverName, source)
}

// OpenWithStats is like Open, but the returned driver records query statistics.
func OpenWithStats(driverName, source string, opts ...sql.StatsOption) (*sql.StatsDriver, *sql.QueryStats, error) {
	return sql.OpenWithStats(dialect.CockroachDB, driverName, source, opts...)
}
