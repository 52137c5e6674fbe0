package cockroach

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/syssam/veloxcrdb"
	"github.com/syssam/veloxcrdb/dialect"
	"github.com/syssam/veloxcrdb/dialect/postgres"
	"github.com/syssam/veloxcrdb/dialect/sql"
	"github.com/syssam/veloxcrdb/dialect/sql/schema"
	"github.com/syssam/veloxcrdb/dialect/sql/sqlgraph"
	"github.com/syssam/veloxcrdb/retry"
	"github.com/syssam/veloxcrdb/schema/field"
)

// integerFieldRanges are the integer ranges of CockroachDB column types.
// INT is an alias of INT8, so IntegerField and AutoField are 64-bit.
var integerFieldRanges = field.Ranges{
	field.SmallIntegerField:         field.Int16Range,
	field.IntegerField:              field.Int64Range,
	field.BigIntegerField:           field.Int64Range,
	field.PositiveSmallIntegerField: field.Range{Min: 0, Max: math.MaxInt16},
	field.PositiveIntegerField:      field.Range{Min: 0, Max: math.MaxInt64},
	field.PositiveBigIntegerField:   field.Range{Min: 0, Max: math.MaxInt64},
	field.SmallAutoField:            field.Int16Range,
	field.AutoField:                 field.Int64Range,
	field.BigAutoField:              field.Int64Range,
}

// maxTimestamp is the largest timestamp CockroachDB accepts.
var maxTimestamp = time.Date(9999, time.December, 31, 23, 59, 59, 999999000, time.UTC)

// Operations implements schema.Operations and schema.GISOperations for
// CockroachDB.
type Operations struct {
	*postgres.Operations
	policy    retry.Policy
	retryOpts []retry.Option
}

// Option configures Operations.
type Option func(*config)

type config struct {
	pg        []postgres.Option
	policy    retry.Policy
	retryOpts []retry.Option
}

// WithTimeZone sets the connection time zone naive timestamps are localized into.
func WithTimeZone(loc *time.Location) Option {
	return func(c *config) {
		c.pg = append(c.pg, postgres.WithTimeZone(loc))
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.pg = append(c.pg, postgres.WithLogger(l))
	}
}

// WithRetryPolicy sets the policy used to retry flushes failing with a
// serialization error. Default is retry.DefaultPolicy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithRetryOptions passes options to every retry.Do call, e.g. a timer.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(c *config) {
		c.retryOpts = append(c.retryOpts, opts...)
	}
}

// NewOperations returns the CockroachDB operations running statements on drv.
func NewOperations(drv dialect.Driver, opts ...Option) *Operations {
	c := &config{policy: retry.DefaultPolicy}
	for _, opt := range opts {
		opt(c)
	}
	return &Operations{
		Operations: postgres.NewOperations(drv, c.pg...),
		policy:     c.policy,
		retryOpts:  c.retryOpts,
	}
}

// RetryPolicy returns the policy used to retry flushes.
func (o *Operations) RetryPolicy() retry.Policy { return o.policy }

// IntegerFieldRanges returns a copy of the integer ranges.
func (o *Operations) IntegerFieldRanges() field.Ranges {
	return integerFieldRanges.Clone()
}

// IntegerFieldRange returns the range of values an integer kind accepts.
func (o *Operations) IntegerFieldRange(k field.Kind) (field.Range, bool) {
	r, ok := integerFieldRanges[k]
	return r, ok
}

// DeferrableSQL returns "": CockroachDB does not support deferrable constraints.
func (o *Operations) DeferrableSQL() string { return "" }

// AdaptDateTimeValue localizes naive timestamps into the connection time
// zone so they are sent as TIMESTAMPTZ. A timestamp whose localized instant
// would exceed the maximum timestamp is moved back one day first. Other
// values, and all values when no time zone is configured, pass through.
func (o *Operations) AdaptDateTimeValue(v any) any {
	loc := o.TimeZone()
	if loc == nil {
		return v
	}
	var n sql.NaiveTime
	switch v := v.(type) {
	case sql.NaiveTime:
		n = v
	case *sql.NaiveTime:
		if v == nil {
			return v
		}
		n = *v
	default:
		return v
	}
	t := n.In(loc)
	if t.After(maxTimestamp) {
		t = n.AddDate(0, 0, -1).In(loc)
	}
	return t
}

// SequenceResetByNameSQL returns no statements: CockroachDB cannot reset sequences.
func (o *Operations) SequenceResetByNameSQL([]schema.Sequence) []string { return nil }

// SequenceResetSQL returns no statements: CockroachDB cannot reset sequences.
func (o *Operations) SequenceResetSQL([]schema.Sequence) []string { return nil }

// ExplainQueryPrefix returns the EXPLAIN prefix listing the enabled options,
// e.g. "EXPLAIN (opt, verbose)". Disabled options are dropped and no output
// format is accepted.
func (o *Operations) ExplainQueryPrefix(format string, options map[string]bool) (string, error) {
	if format != "" {
		return "", veloxcrdb.NewUnsupportedError(dialect.CockroachDB, "EXPLAIN format "+format,
			"CockroachDB's EXPLAIN doesn't support any formats.")
	}
	var extra []string
	for name, enabled := range options {
		if enabled {
			extra = append(extra, name)
		}
	}
	if len(extra) == 0 {
		return "EXPLAIN", nil
	}
	slices.Sort(extra)
	return "EXPLAIN (" + strings.Join(extra, ", ") + ")", nil
}

// SQLFlush returns the TRUNCATE statement removing all rows from tables.
// Sequences are never reset.
func (o *Operations) SQLFlush(tables []string, opts schema.FlushOptions) []string {
	opts.ResetSequences = false
	return o.Operations.SQLFlush(tables, opts)
}

// ExecuteSQLFlush executes the flush statements in a transaction, retrying
// the whole transaction while it fails with a serialization error. Once the
// attempts are exhausted the last error is returned.
func (o *Operations) ExecuteSQLFlush(ctx context.Context, stmts []string) error {
	opts := append([]retry.Option{retry.WithLogger(o.Logger())}, o.retryOpts...)
	return retry.Do(ctx, o.policy, func(ctx context.Context) error {
		return o.Operations.ExecuteSQLFlush(ctx, stmts)
	}, sqlgraph.IsSerializationFailure, opts...)
}

// Features returns the capabilities of CockroachDB.
func (o *Operations) Features() schema.Features {
	return schema.Features{
		SupportsTimezones: true,
		SupportsGIS:       true,
	}
}

var (
	_ schema.Operations    = (*Operations)(nil)
	_ schema.GISOperations = (*Operations)(nil)
)
