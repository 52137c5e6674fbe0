package sqlgraph

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// errorCoder is an interface for database errors that provide error codes.
type errorCoder interface {
	Code() string
}

// sqlStateError is an interface for errors that provide SQLSTATE codes.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes. CockroachDB reports the same codes.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
)

// SQLState returns the SQLSTATE code carried by err, or "" if the error chain
// holds no driver error. lib/pq and pgx errors are recognized, as is any
// error implementing SQLState() or Code().
func SQLState(err error) string {
	if err == nil {
		return ""
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState()
	}
	if e, ok := asError[errorCoder](err); ok {
		return e.Code()
	}
	return ""
}

// IsSerializationFailure reports if the error resulted from a transaction
// that could not be serialized with concurrent transactions and must be
// retried (SQLSTATE 40001).
func IsSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	return matches(err, pgSerializationFailure,
		"restart transaction",                   // CockroachDB
		"could not serialize access",            // Postgres
		"TransactionRetryWithProtoRefreshError", // CockroachDB
	)
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return matches(err, pgUniqueViolation,
		"violates unique constraint", // Postgres
		"duplicate key value",        // CockroachDB
	)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return matches(err, pgForeignKeyViolation,
		"violates foreign key constraint", // Postgres and CockroachDB
	)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
// e.g. a value does not satisfy a check condition.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return matches(err, pgCheckViolation,
		"violates check constraint",          // Postgres
		"failed to satisfy CHECK constraint", // CockroachDB
	)
}

// asError attempts to extract an error implementing interface T from the error
// chain, including errors combined with errors.Join.
func asError[T any](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}

// matches reports whether err carries the SQLSTATE code. The message is
// searched for substrings only when the error chain holds no code.
func matches(err error, code string, substrings ...string) bool {
	if state := SQLState(err); state != "" {
		return state == code
	}
	return containsAny(err.Error(), substrings...)
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
