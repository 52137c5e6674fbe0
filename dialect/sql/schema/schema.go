// Package schema defines the introspection and operations contracts a SQL
// dialect implements, together with the value types they exchange.
package schema

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/veloxcrdb/schema/field"
)

// TableType classifies an introspected relation.
type TableType byte

// Relation types reported by TableList.
const (
	TypeTable     TableType = 't'
	TypeView      TableType = 'v'
	TypePartition TableType = 'p'
)

// String implements fmt.Stringer.
func (t TableType) String() string { return string(t) }

// TableInfo describes a relation returned by TableList.
type TableInfo struct {
	Name string
	Type TableType
}

// ColumnInfo describes a column returned by TableDescription.
type ColumnInfo struct {
	Name     string
	TypeOID  uint32
	Nullable bool
	// Default is the column default expression, or "" if there is none.
	Default string
}

// Sequence identifies the sequence backing a table column.
type Sequence struct {
	Table string
	// Column defaults to "id" when empty.
	Column string
}

// FlushOptions controls the statements SQLFlush generates.
type FlushOptions struct {
	// ResetSequences restarts the identity sequences of the flushed tables.
	ResetSequences bool
	// AllowCascade also truncates tables referencing the flushed tables.
	AllowCascade bool
}

// Version is a server component version, such as the PostGIS version.
type Version struct {
	Major, Minor, Patch int
}

// String returns the version in major.minor[.patch] form.
func (v Version) String() string {
	if v.Patch == 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion parses the leading major[.minor[.patch]] of s. Trailing text,
// such as build options, is ignored.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		s = s[:i]
	}
	parts := strings.SplitN(s, ".", 3)
	var nums [3]int
	for i, p := range parts {
		// Drop suffixes such as "dev" or "rc1".
		end := 0
		for end < len(p) && p[end] >= '0' && p[end] <= '9' {
			end++
		}
		n, err := strconv.Atoi(p[:end])
		if err != nil {
			return Version{}, fmt.Errorf("dialect/sql/schema: invalid version %q", s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// Introspector is implemented by dialects to read the database schema.
type Introspector interface {
	// TableList returns the tables and views visible to the connection.
	TableList(ctx context.Context) ([]TableInfo, error)
	// TableDescription returns the columns of the given table.
	TableDescription(ctx context.Context, table string) ([]ColumnInfo, error)
	// FieldKind maps a column to the field kind it is read as. It returns
	// false for column types the dialect does not know.
	FieldKind(col ColumnInfo) (field.Kind, bool)
}

// Operations is implemented by dialects to translate values and generate
// dialect specific SQL fragments.
type Operations interface {
	// IntegerFieldRange returns the range of values an integer kind accepts.
	IntegerFieldRange(field.Kind) (field.Range, bool)
	// DeferrableSQL returns the clause appended to deferrable constraints.
	DeferrableSQL() string
	// AdaptDateTimeValue converts a timestamp argument before it is sent to the driver.
	AdaptDateTimeValue(v any) any
	// QuoteName quotes an identifier.
	QuoteName(name string) string
	// SequenceResetByNameSQL returns the statements resetting the given sequences.
	SequenceResetByNameSQL(seqs []Sequence) []string
	// SequenceResetSQL returns the statements moving the given sequences past
	// the current maximum of their columns.
	SequenceResetSQL(seqs []Sequence) []string
	// ExplainQueryPrefix returns the EXPLAIN prefix for the given output
	// format and options.
	ExplainQueryPrefix(format string, options map[string]bool) (string, error)
	// SQLFlush returns the statements removing all rows from the given tables.
	SQLFlush(tables []string, opts FlushOptions) []string
	// ExecuteSQLFlush executes the statements returned by SQLFlush.
	ExecuteSQLFlush(ctx context.Context, stmts []string) error
}

// GISOperator describes how a spatial lookup is rendered: either as an
// operator (Op) or as a function call (Func).
type GISOperator struct {
	Op   string
	Func string
}

// GISOperations is implemented by dialects with spatial support.
type GISOperations interface {
	// GISOperators returns the spatial lookups the dialect supports.
	GISOperators() map[string]GISOperator
	// UnsupportedFunctions returns the sorted names of unsupported spatial functions.
	UnsupportedFunctions() []string
	// SupportsFunction reports whether the named spatial function is available.
	SupportsFunction(name string) bool
	// PostGISLibVersion returns the version of the spatial library.
	PostGISLibVersion(ctx context.Context) (string, error)
	// PostGISVersion returns the PostGIS version the dialect emulates.
	PostGISVersion(ctx context.Context) (Version, error)
}

// Features lists the optional capabilities of a dialect.
type Features struct {
	CanDeferConstraintChecks            bool
	SupportsDeferrableUniqueConstraints bool
	SupportsSequenceReset               bool
	SupportsExplainFormats              bool
	// ExplainFormats lists the accepted EXPLAIN output formats.
	ExplainFormats    []string
	SupportsTimezones bool
	SupportsGIS       bool
}
