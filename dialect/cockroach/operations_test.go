package cockroach

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxcrdb"
	"github.com/syssam/veloxcrdb/dialect"
	"github.com/syssam/veloxcrdb/dialect/sql"
	"github.com/syssam/veloxcrdb/dialect/sql/schema"
	"github.com/syssam/veloxcrdb/retry"
	"github.com/syssam/veloxcrdb/schema/field"
)

// fakeTimer fires immediately and records the requested delays.
type fakeTimer struct {
	slept []time.Duration
	c     chan time.Time
}

func (f *fakeTimer) Start(d time.Duration) {
	f.slept = append(f.slept, d)
	f.c = make(chan time.Time, 1)
	f.c <- time.Time{}
}

func (f *fakeTimer) Stop() {}

func (f *fakeTimer) C() <-chan time.Time { return f.c }

func mockOperations(t *testing.T, opts ...Option) (*Operations, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewOperations(sql.OpenDB(dialect.CockroachDB, db), opts...), mock
}

func TestIntegerFieldRanges(t *testing.T) {
	ops := NewOperations(nil)
	want := field.Ranges{
		field.SmallIntegerField:         {Min: -32768, Max: 32767},
		field.IntegerField:              {Min: math.MinInt64, Max: math.MaxInt64},
		field.BigIntegerField:           {Min: math.MinInt64, Max: math.MaxInt64},
		field.PositiveSmallIntegerField: {Min: 0, Max: 32767},
		field.PositiveBigIntegerField:   {Min: 0, Max: math.MaxInt64},
		field.PositiveIntegerField:      {Min: 0, Max: math.MaxInt64},
		field.SmallAutoField:            {Min: -32768, Max: 32767},
		field.AutoField:                 {Min: math.MinInt64, Max: math.MaxInt64},
		field.BigAutoField:              {Min: math.MinInt64, Max: math.MaxInt64},
	}
	got := ops.IntegerFieldRanges()
	assert.Equal(t, want, got)

	got[field.IntegerField] = field.Range{}
	r, ok := ops.IntegerFieldRange(field.IntegerField)
	require.True(t, ok)
	assert.Equal(t, field.Int64Range, r, "returned ranges must be a copy")

	_, ok = ops.IntegerFieldRange(field.CharField)
	assert.False(t, ok)
	assert.Error(t, got.Validate(field.PositiveIntegerField, -1))
}

func TestDeferrableSQL(t *testing.T) {
	assert.Empty(t, NewOperations(nil).DeferrableSQL())
}

func TestAdaptDateTimeValue(t *testing.T) {
	west := time.FixedZone("UTC-5", -5*60*60)
	east := time.FixedZone("UTC+2", 2*60*60)
	max := sql.Naive(time.Date(9999, time.December, 31, 23, 59, 59, 999999000, time.UTC))
	noon := sql.Naive(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		loc  *time.Location
		in   any
		want any
	}{
		{name: "Localize", loc: west, in: noon, want: time.Date(2024, time.March, 1, 12, 0, 0, 0, west)},
		{name: "Pointer", loc: east, in: &noon, want: time.Date(2024, time.March, 1, 12, 0, 0, 0, east)},
		{name: "Overflow", loc: west, in: max, want: time.Date(9999, time.December, 30, 23, 59, 59, 999999000, west)},
		{name: "MaxNoOverflow", loc: east, in: max, want: time.Date(9999, time.December, 31, 23, 59, 59, 999999000, east)},
		{name: "NoTimeZone", in: noon, want: noon},
		{name: "Nil", loc: west, in: nil, want: nil},
		{name: "Zoned", loc: west, in: time.Date(2024, time.March, 1, 12, 0, 0, 0, east), want: time.Date(2024, time.March, 1, 12, 0, 0, 0, east)},
		{name: "Expression", loc: west, in: "now()", want: "now()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.loc != nil {
				opts = append(opts, WithTimeZone(tt.loc))
			}
			got := NewOperations(nil, opts...).AdaptDateTimeValue(tt.in)
			if want, ok := tt.want.(time.Time); ok {
				require.IsType(t, time.Time{}, got)
				assert.True(t, want.Equal(got.(time.Time)), "want %v, got %v", want, got)
				assert.Equal(t, want.Location(), got.(time.Time).Location())
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
	var nilNaive *sql.NaiveTime
	assert.Equal(t, nilNaive, NewOperations(nil, WithTimeZone(west)).AdaptDateTimeValue(nilNaive))
}

func TestSequenceReset(t *testing.T) {
	ops := NewOperations(nil)
	seqs := []schema.Sequence{{Table: "users"}}
	assert.Empty(t, ops.SequenceResetByNameSQL(seqs))
	assert.Empty(t, ops.SequenceResetSQL(seqs))
}

func TestExplainQueryPrefix(t *testing.T) {
	ops := NewOperations(nil)
	tests := []struct {
		name    string
		options map[string]bool
		want    string
	}{
		{name: "Plain", want: "EXPLAIN"},
		{name: "Enabled", options: map[string]bool{"verbose": true, "opt": true}, want: "EXPLAIN (opt, verbose)"},
		{name: "Disabled", options: map[string]bool{"verbose": false, "distsql": true}, want: "EXPLAIN (distsql)"},
		{name: "AllDisabled", options: map[string]bool{"verbose": false}, want: "EXPLAIN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ops.ExplainQueryPrefix("", tt.options)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	for _, format := range []string{"JSON", "text", "TOML"} {
		t.Run("Format"+format, func(t *testing.T) {
			_, err := ops.ExplainQueryPrefix(format, nil)
			require.Error(t, err)
			assert.True(t, veloxcrdb.IsUnsupported(err))
			assert.Contains(t, err.Error(), "CockroachDB's EXPLAIN doesn't support any formats.")
		})
	}
}

func TestSQLFlush(t *testing.T) {
	ops := NewOperations(nil)
	tables := []string{"users", "pets"}
	assert.Equal(t, []string{`TRUNCATE "users", "pets";`},
		ops.SQLFlush(tables, schema.FlushOptions{ResetSequences: true}))
	assert.Equal(t, []string{`TRUNCATE "users", "pets" CASCADE;`},
		ops.SQLFlush(tables, schema.FlushOptions{ResetSequences: true, AllowCascade: true}))
	assert.Nil(t, ops.SQLFlush(nil, schema.FlushOptions{}))
}

func serializationFailure(attempt int) error {
	return &pq.Error{
		Code:    "40001",
		Message: fmt.Sprintf("restart transaction: TransactionRetryWithProtoRefreshError: attempt %d", attempt),
	}
}

func TestExecuteSQLFlush(t *testing.T) {
	ctx := context.Background()
	stmt := `TRUNCATE "users";`

	t.Run("Success", func(t *testing.T) {
		timer := &fakeTimer{}
		ops, mock := mockOperations(t, WithRetryOptions(retry.WithTimer(timer)))
		mock.ExpectBegin()
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
		require.NoError(t, ops.ExecuteSQLFlush(ctx, []string{stmt}))
		assert.Empty(t, timer.slept)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	for k := 1; k < retry.DefaultPolicy.Attempts; k++ {
		t.Run(fmt.Sprintf("SucceedsAfter%dFailures", k), func(t *testing.T) {
			timer := &fakeTimer{}
			ops, mock := mockOperations(t, WithRetryOptions(retry.WithTimer(timer)))
			for i := 1; i <= k; i++ {
				mock.ExpectBegin()
				mock.ExpectExec(stmt).WillReturnError(serializationFailure(i))
				mock.ExpectRollback()
			}
			mock.ExpectBegin()
			mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectCommit()
			require.NoError(t, ops.ExecuteSQLFlush(ctx, []string{stmt}))
			require.NoError(t, mock.ExpectationsWereMet())

			// 0.5s * (1 + 1.5 + ... + 1.5^(k-1)) = (1.5^k - 1) seconds.
			require.Len(t, timer.slept, k)
			var total time.Duration
			for _, d := range timer.slept {
				total += d
			}
			want := time.Duration((math.Pow(1.5, float64(k)) - 1) * float64(time.Second))
			assert.InDelta(t, float64(want), float64(total), float64(time.Microsecond))
		})
	}

	t.Run("Exhausted", func(t *testing.T) {
		var (
			timer = &fakeTimer{}
			buf   bytes.Buffer
			log   = slog.New(slog.NewTextHandler(&buf, nil))
		)
		ops, mock := mockOperations(t, WithLogger(log), WithRetryOptions(retry.WithTimer(timer)))
		for i := 1; i <= 10; i++ {
			mock.ExpectBegin()
			mock.ExpectExec(stmt).WillReturnError(serializationFailure(i))
			mock.ExpectRollback()
		}
		err := ops.ExecuteSQLFlush(ctx, []string{stmt})
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())

		var pqErr *pq.Error
		require.ErrorAs(t, err, &pqErr)
		assert.Contains(t, pqErr.Message, "attempt 10")
		assert.Equal(t, []time.Duration{
			500 * time.Millisecond,
			750 * time.Millisecond,
			1125 * time.Millisecond,
			1687500 * time.Microsecond,
			2531250 * time.Microsecond,
			3796875 * time.Microsecond,
			5695312500 * time.Nanosecond,
			8542968750 * time.Nanosecond,
			12814453125 * time.Nanosecond,
		}, timer.slept)
		assert.Equal(t, 9, bytes.Count(buf.Bytes(), []byte("retrying operation")))
	})

	t.Run("NotRetryable", func(t *testing.T) {
		timer := &fakeTimer{}
		ops, mock := mockOperations(t, WithRetryOptions(retry.WithTimer(timer)))
		unique := &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
		mock.ExpectBegin()
		mock.ExpectExec(stmt).WillReturnError(unique)
		mock.ExpectRollback()
		err := ops.ExecuteSQLFlush(ctx, []string{stmt})
		require.ErrorIs(t, err, unique)
		assert.Empty(t, timer.slept)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AmbiguousResult", func(t *testing.T) {
		timer := &fakeTimer{}
		ops, mock := mockOperations(t, WithRetryOptions(retry.WithTimer(timer)))
		ambiguous := &pq.Error{Code: "40003", Message: "result is ambiguous; restart transaction manually"}
		mock.ExpectBegin()
		mock.ExpectExec(stmt).WillReturnError(ambiguous)
		mock.ExpectRollback()
		err := ops.ExecuteSQLFlush(ctx, []string{stmt})
		require.ErrorIs(t, err, ambiguous)
		assert.Empty(t, timer.slept)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CommitConflict", func(t *testing.T) {
		timer := &fakeTimer{}
		ops, mock := mockOperations(t, WithRetryOptions(retry.WithTimer(timer)))
		mock.ExpectBegin()
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit().WillReturnError(serializationFailure(1))
		mock.ExpectBegin()
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
		require.NoError(t, ops.ExecuteSQLFlush(ctx, []string{stmt}))
		assert.Equal(t, []time.Duration{500 * time.Millisecond}, timer.slept)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CustomPolicy", func(t *testing.T) {
		timer := &fakeTimer{}
		ops, mock := mockOperations(t,
			WithRetryPolicy(retry.Policy{Attempts: 2, InitialDelay: time.Millisecond, Multiplier: 2}),
			WithRetryOptions(retry.WithTimer(timer)),
		)
		for i := 1; i <= 2; i++ {
			mock.ExpectBegin()
			mock.ExpectExec(stmt).WillReturnError(serializationFailure(i))
			mock.ExpectRollback()
		}
		err := ops.ExecuteSQLFlush(ctx, []string{stmt})
		require.Error(t, err)
		assert.Equal(t, []time.Duration{time.Millisecond}, timer.slept)
		assert.Equal(t, 2, ops.RetryPolicy().Attempts)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ops, mock := mockOperations(t)
		err := ops.ExecuteSQLFlush(ctx, []string{stmt})
		require.True(t, errors.Is(err, context.Canceled), "got %v", err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFeatures(t *testing.T) {
	f := NewOperations(nil).Features()
	assert.False(t, f.CanDeferConstraintChecks)
	assert.False(t, f.SupportsDeferrableUniqueConstraints)
	assert.False(t, f.SupportsSequenceReset)
	assert.False(t, f.SupportsExplainFormats)
	assert.Empty(t, f.ExplainFormats)
	assert.True(t, f.SupportsTimezones)
	assert.True(t, f.SupportsGIS)
}
