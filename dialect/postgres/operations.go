// Package postgres implements the PostgreSQL dialect operations and schema
// introspection. Dialects of the PostgreSQL family, such as CockroachDB,
// embed these types and override what differs.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/veloxcrdb"
	"github.com/syssam/veloxcrdb/dialect"
	"github.com/syssam/veloxcrdb/dialect/sql/schema"
	"github.com/syssam/veloxcrdb/schema/field"
)

// DeferrableSQL is appended to constraints that may be checked at commit time.
const DeferrableSQL = " DEFERRABLE INITIALLY DEFERRED"

// ExplainFormats are the EXPLAIN output formats PostgreSQL accepts.
var ExplainFormats = []string{"JSON", "TEXT", "XML", "YAML"}

// integerFieldRanges are the integer ranges of PostgreSQL column types.
var integerFieldRanges = field.Ranges{
	field.SmallIntegerField:         field.Int16Range,
	field.IntegerField:              field.Int32Range,
	field.BigIntegerField:           field.Int64Range,
	field.PositiveSmallIntegerField: field.Uint15Range,
	field.PositiveIntegerField:      field.Uint31Range,
	field.PositiveBigIntegerField:   field.Uint63Range,
	field.SmallAutoField:            field.Int16Range,
	field.AutoField:                 field.Int32Range,
	field.BigAutoField:              field.Int64Range,
}

// Operations implements schema.Operations for PostgreSQL.
type Operations struct {
	drv dialect.Driver
	loc *time.Location
	log *slog.Logger
}

// Option configures Operations.
type Option func(*Operations)

// WithTimeZone sets the connection time zone. Dialects storing timestamps
// with time zone localize naive values into it.
func WithTimeZone(loc *time.Location) Option {
	return func(o *Operations) {
		o.loc = loc
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Operations) {
		o.log = l
	}
}

// NewOperations returns the PostgreSQL operations running statements on drv.
func NewOperations(drv dialect.Driver, opts ...Option) *Operations {
	o := &Operations{drv: drv, log: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Driver returns the underlying driver.
func (o *Operations) Driver() dialect.Driver { return o.drv }

// TimeZone returns the connection time zone, or nil if none was set.
func (o *Operations) TimeZone() *time.Location { return o.loc }

// Logger returns the operations logger.
func (o *Operations) Logger() *slog.Logger { return o.log }

// IntegerFieldRanges returns a copy of the integer ranges.
func (o *Operations) IntegerFieldRanges() field.Ranges {
	return integerFieldRanges.Clone()
}

// IntegerFieldRange returns the range of values an integer kind accepts.
func (o *Operations) IntegerFieldRange(k field.Kind) (field.Range, bool) {
	r, ok := integerFieldRanges[k]
	return r, ok
}

// DeferrableSQL returns the clause appended to deferrable constraints.
func (o *Operations) DeferrableSQL() string { return DeferrableSQL }

// AdaptDateTimeValue returns v unchanged: the driver sends time.Time values
// as TIMESTAMPTZ and NaiveTime values as TIMESTAMP.
func (o *Operations) AdaptDateTimeValue(v any) any { return v }

// QuoteName quotes an identifier. Names that are already quoted are returned as is.
func (o *Operations) QuoteName(name string) string {
	return QuoteName(name)
}

// QuoteName quotes a PostgreSQL identifier, doubling embedded quotes.
func QuoteName(name string) string {
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// column returns the sequence column, defaulting to "id".
func column(s schema.Sequence) string {
	if s.Column == "" {
		return "id"
	}
	return s.Column
}

// SequenceResetByNameSQL returns statements restarting the given sequences at 1.
func (o *Operations) SequenceResetByNameSQL(seqs []schema.Sequence) []string {
	stmts := make([]string, 0, len(seqs))
	for _, s := range seqs {
		stmts = append(stmts, fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s','%s'), 1, false);",
			o.QuoteName(s.Table), column(s),
		))
	}
	return stmts
}

// SequenceResetSQL returns statements moving the given sequences past the
// current maximum value of their columns.
func (o *Operations) SequenceResetSQL(seqs []schema.Sequence) []string {
	stmts := make([]string, 0, len(seqs))
	for _, s := range seqs {
		col := column(s)
		stmts = append(stmts, fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s','%s'), coalesce(max(%s), 1), max(%s) IS NOT null) FROM %s;",
			o.QuoteName(s.Table), col, o.QuoteName(col), o.QuoteName(col), o.QuoteName(s.Table),
		))
	}
	return stmts
}

// ExplainQueryPrefix returns the EXPLAIN prefix for the given output format
// and options, e.g. "EXPLAIN (FORMAT JSON, ANALYZE true)". Option names are
// upper-cased and sorted.
func (o *Operations) ExplainQueryPrefix(format string, options map[string]bool) (string, error) {
	var extra []string
	if format != "" {
		f := strings.ToUpper(format)
		if !slices.Contains(ExplainFormats, f) {
			return "", veloxcrdb.NewUnsupportedError(dialect.Postgres, "EXPLAIN format "+format,
				fmt.Sprintf("%s is not a recognized format. Allowed formats: %s", format, strings.Join(ExplainFormats, ", ")))
		}
		extra = append(extra, "FORMAT "+f)
	}
	for _, name := range sortedKeys(options) {
		extra = append(extra, strings.ToUpper(name)+" "+strconv.FormatBool(options[name]))
	}
	return withOptions("EXPLAIN", extra), nil
}

// withOptions appends the parenthesized option list to prefix, if any.
func withOptions(prefix string, opts []string) string {
	if len(opts) == 0 {
		return prefix
	}
	return prefix + " (" + strings.Join(opts, ", ") + ")"
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SQLFlush returns the TRUNCATE statement removing all rows from tables.
func (o *Operations) SQLFlush(tables []string, opts schema.FlushOptions) []string {
	if len(tables) == 0 {
		return nil
	}
	quoted := make([]string, len(tables))
	for i, t := range tables {
		quoted[i] = o.QuoteName(t)
	}
	var b strings.Builder
	b.WriteString("TRUNCATE ")
	b.WriteString(strings.Join(quoted, ", "))
	if opts.ResetSequences {
		b.WriteString(" RESTART IDENTITY")
	}
	if opts.AllowCascade {
		b.WriteString(" CASCADE")
	}
	b.WriteString(";")
	return []string{b.String()}
}

// ExecuteSQLFlush executes the flush statements in a single transaction.
// The transaction is rolled back if any statement fails.
func (o *Operations) ExecuteSQLFlush(ctx context.Context, stmts []string) error {
	if len(stmts) == 0 {
		return nil
	}
	tx, err := o.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("dialect/postgres: flush: begin: %w", err)
	}
	for _, stmt := range stmts {
		if err := tx.Exec(ctx, stmt, []any{}, nil); err != nil {
			return rollback(tx, fmt.Errorf("dialect/postgres: flush: %w", err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dialect/postgres: flush: commit: %w", err)
	}
	o.log.DebugContext(ctx, "flushed tables", "statements", len(stmts))
	return nil
}

// rollback calls tx.Rollback and joins its error, if any, to err.
func rollback(tx dialect.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		return errors.Join(err, &veloxcrdb.RollbackError{Err: rerr})
	}
	return err
}

// Features returns the capabilities of PostgreSQL.
func (o *Operations) Features() schema.Features {
	return schema.Features{
		CanDeferConstraintChecks:            true,
		SupportsDeferrableUniqueConstraints: true,
		SupportsSequenceReset:               true,
		SupportsExplainFormats:              true,
		ExplainFormats:                      slices.Clone(ExplainFormats),
		SupportsTimezones:                   true,
		SupportsGIS:                         true,
	}
}

var _ schema.Operations = (*Operations)(nil)
