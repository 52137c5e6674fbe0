// Package veloxcrdb adapts the PostgreSQL dialect of the Velox ORM to
// CockroachDB.
//
// CockroachDB speaks the PostgreSQL wire protocol but differs in semantics:
// sequences cannot be reset, constraints cannot be deferred, bulk deletes
// may fail with serialization errors that must be retried, and only part of
// PostGIS is available. The dialect/cockroach package expresses these
// differences as overrides of the dialect/postgres package.
//
// # Error Handling
//
// Capabilities the database lacks are reported as *UnsupportedError, which
// matches ErrUnsupported:
//
//	_, err := ops.ExplainQueryPrefix("JSON", nil)
//	if veloxcrdb.IsUnsupported(err) {
//	    // fall back to a plain EXPLAIN
//	}
//
// Driver errors are never wrapped into new types; use the classifiers in
// dialect/sql/sqlgraph to inspect them:
//
//	if sqlgraph.IsSerializationFailure(err) {
//	    // the transaction may be retried
//	}
//
// # Sub-packages
//
//   - dialect: dialect names and the Driver contract
//   - dialect/sql: database/sql driver and decorators
//   - dialect/postgres: PostgreSQL operations and introspection
//   - dialect/cockroach: CockroachDB operations and introspection
//   - retry: bounded exponential backoff
//   - schema/field: field kinds and integer ranges
package veloxcrdb
