package sqlgraph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

type stateErr string

func (e stateErr) Error() string    { return "state " + string(e) }
func (e stateErr) SQLState() string { return string(e) }

type codeErr string

func (e codeErr) Error() string { return "code " + string(e) }
func (e codeErr) Code() string  { return string(e) }

func TestSQLState(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), ""},
		{"pq", &pq.Error{Code: "40001"}, "40001"},
		{"pgx", &pgconn.PgError{Code: "23505"}, "23505"},
		{"wrapped_pq", fmt.Errorf("dialect/sql: exec: %w", &pq.Error{Code: "23503"}), "23503"},
		{"joined", errors.Join(errors.New("other"), &pgconn.PgError{Code: "40001"}), "40001"},
		{"sqlstate_iface", stateErr("23514"), "23514"},
		{"code_iface", codeErr("40001"), "40001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SQLState(tt.err))
		})
	}
}

func TestIsSerializationFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pq", &pq.Error{Code: "40001"}, true},
		{"pgx_wrapped", fmt.Errorf("flush: %w", &pgconn.PgError{Code: "40001"}), true},
		{"deadlock", &pq.Error{Code: "40P01"}, false},
		{"unique", &pgconn.PgError{Code: "23505"}, false},
		{"message", errors.New("restart transaction: TransactionRetryWithProtoRefreshError"), true},
		{"postgres_message", errors.New("could not serialize access due to concurrent update"), true},
		{"other", errors.New("connection refused"), false},
		{"other_code_restart_msg", &pq.Error{Code: "40003", Message: "result is ambiguous; restart transaction manually"}, false},
		{"other_code_pgx_msg", fmt.Errorf("commit: %w", &pgconn.PgError{Code: "57014", Message: "could not serialize access"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSerializationFailure(tt.err))
		})
	}
}

func TestConstraintErrors(t *testing.T) {
	unique := &pq.Error{Code: "23505"}
	fk := &pgconn.PgError{Code: "23503"}
	check := stateErr("23514")

	assert.True(t, IsUniqueConstraintError(unique))
	assert.False(t, IsUniqueConstraintError(fk))
	assert.True(t, IsForeignKeyConstraintError(fk))
	assert.False(t, IsForeignKeyConstraintError(check))
	assert.True(t, IsCheckConstraintError(check))
	assert.False(t, IsCheckConstraintError(unique))

	for _, err := range []error{unique, fk, check} {
		assert.True(t, IsConstraintError(fmt.Errorf("wrapped: %w", err)))
	}
	assert.False(t, IsConstraintError(nil))
	assert.False(t, IsConstraintError(&pq.Error{Code: "40001"}))

	assert.True(t, IsUniqueConstraintError(errors.New(`duplicate key value violates unique constraint "users_pkey"`)))
	assert.True(t, IsCheckConstraintError(errors.New("failed to satisfy CHECK constraint (age >= 0)")))
	assert.True(t, IsForeignKeyConstraintError(errors.New("violates foreign key constraint")))
}
