package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/syssam/veloxcrdb/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRetryable = errors.New("restart transaction")

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var slow []string
	drv := NewStatsDriver(OpenDB(dialect.CockroachDB, db),
		WithSlowThreshold(0),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
		WithRetryableErrors(func(err error) bool { return errors.Is(err, errRetryable) }),
	)

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())

	mock.ExpectExec("TRUNCATE users").WillReturnError(errRetryable)
	require.Error(t, drv.Exec(context.Background(), "TRUNCATE users", []any{}, nil))

	mock.ExpectExec("TRUNCATE posts").WillReturnError(errors.New("boom"))
	require.Error(t, drv.Exec(context.Background(), "TRUNCATE posts", []any{}, nil))
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.QueryStats().Stats()
	assert.Equal(t, int64(1), s.TotalQueries)
	assert.Equal(t, int64(2), s.TotalExecs)
	assert.Equal(t, int64(2), s.Errors)
	assert.Equal(t, int64(1), s.RetryableErrors)
	assert.Equal(t, int64(3), s.SlowQueries)
	assert.Equal(t, []string{"SELECT 1", "TRUNCATE users", "TRUNCATE posts"}, slow)
	assert.Contains(t, s.String(), "retryable=1")

	drv.QueryStats().Reset()
	assert.Equal(t, StatsSnapshot{}, drv.QueryStats().Stats())
}

func TestStatsDriverTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.CockroachDB, db))
	drv.SetSlowThreshold(time.Hour)
	assert.Equal(t, time.Hour, drv.SlowThreshold())

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "TRUNCATE users", []any{}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.QueryStats().Stats()
	assert.Equal(t, int64(1), s.TotalExecs)
	assert.Zero(t, s.SlowQueries)
}

func TestStatsDriverCommitError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := NewStatsDriver(OpenDB(dialect.CockroachDB, db),
		WithRetryableErrors(func(err error) bool { return errors.Is(err, errRetryable) }),
	)
	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit().WillReturnError(errRetryable)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "TRUNCATE users", []any{}, nil))
	require.ErrorIs(t, tx.Commit(), errRetryable)

	tx, err = drv.Tx(context.Background())
	require.NoError(t, err)
	require.Error(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	s := drv.QueryStats().Stats()
	assert.Equal(t, int64(1), s.TotalExecs)
	assert.Equal(t, int64(2), s.Errors)
	assert.Equal(t, int64(1), s.RetryableErrors)
}

func TestStatsSnapshotAvg(t *testing.T) {
	assert.Zero(t, StatsSnapshot{}.AvgQueryDuration())
	s := StatsSnapshot{TotalQueries: 1, TotalExecs: 3, TotalDuration: 4 * time.Second}
	assert.Equal(t, time.Second, s.AvgQueryDuration())
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := NewDebugDriver(OpenDB(dialect.CockroachDB, db), DebugWithLogger(logger))

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "TRUNCATE users", []any{}, nil))
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())

	out := buf.String()
	assert.Contains(t, out, "begin transaction")
	assert.Contains(t, out, `sql="TRUNCATE users"`)
	assert.Contains(t, out, "rollback transaction")
	assert.Equal(t, dialect.CockroachDB, drv.Dialect())
}
