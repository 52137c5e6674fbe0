package postgres

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/syssam/veloxcrdb/dialect"
	"github.com/syssam/veloxcrdb/dialect/sql"
	"github.com/syssam/veloxcrdb/dialect/sql/schema"
	"github.com/syssam/veloxcrdb/schema/field"
)

// IndexDefaultAccessMethod is the access method of indexes created without USING.
const IndexDefaultAccessMethod = "btree"

// DataTypesReverse maps column type OIDs to field kinds.
var DataTypesReverse = map[uint32]field.Kind{
	16:   field.BooleanField,
	17:   field.BinaryField,
	20:   field.BigIntegerField,
	21:   field.SmallIntegerField,
	23:   field.IntegerField,
	25:   field.TextField,
	700:  field.FloatField,
	701:  field.FloatField,
	869:  field.GenericIPAddressField,
	1042: field.CharField,
	1043: field.CharField,
	1082: field.DateField,
	1083: field.TimeField,
	1114: field.DateTimeField,
	1184: field.DateTimeField,
	1186: field.DurationField,
	1266: field.TimeField,
	1700: field.DecimalField,
	2950: field.UUIDField,
	3802: field.JSONField,
}

// Queries used by Introspection.
const (
	tableListQuery = `SELECT c.relname,
	CASE WHEN c.relispartition THEN 'p' WHEN c.relkind IN ('m', 'v') THEN 'v' ELSE 't' END
FROM pg_catalog.pg_class c
LEFT JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
WHERE c.relkind IN ('f', 'm', 'p', 'r', 'v')
	AND n.nspname NOT IN ('pg_catalog', 'pg_toast')
	AND pg_catalog.pg_table_is_visible(c.oid)`

	tableDescriptionQuery = `SELECT a.attname, a.atttypid, NOT a.attnotnull, pg_get_expr(ad.adbin, ad.adrelid)
FROM pg_attribute a
LEFT JOIN pg_attrdef ad ON a.attrelid = ad.adrelid AND a.attnum = ad.adnum
JOIN pg_class c ON a.attrelid = c.oid
WHERE c.relname = $1
	AND a.attnum > 0
	AND NOT a.attisdropped
	AND pg_catalog.pg_table_is_visible(c.oid)
ORDER BY a.attnum`
)

// Introspection implements schema.Introspector for PostgreSQL.
type Introspection struct {
	drv          dialect.Driver
	types        map[uint32]field.Kind
	autoDefaults []string
	indexMethod  string
}

// IntrospectionOption configures Introspection.
type IntrospectionOption func(*Introspection)

// WithDataTypes replaces the OID to field kind table.
func WithDataTypes(types map[uint32]field.Kind) IntrospectionOption {
	return func(i *Introspection) {
		i.types = maps.Clone(types)
	}
}

// WithAutoDefaults adds column default prefixes marking an auto field.
func WithAutoDefaults(prefixes ...string) IntrospectionOption {
	return func(i *Introspection) {
		i.autoDefaults = append(i.autoDefaults, prefixes...)
	}
}

// WithIndexAccessMethod sets the default index access method.
func WithIndexAccessMethod(method string) IntrospectionOption {
	return func(i *Introspection) {
		i.indexMethod = method
	}
}

// NewIntrospection returns the PostgreSQL introspection reading from drv.
func NewIntrospection(drv dialect.Driver, opts ...IntrospectionOption) *Introspection {
	i := &Introspection{
		drv:          drv,
		types:        maps.Clone(DataTypesReverse),
		autoDefaults: []string{"nextval("},
		indexMethod:  IndexDefaultAccessMethod,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Driver returns the underlying driver.
func (i *Introspection) Driver() dialect.Driver { return i.drv }

// DataTypesReverse returns a copy of the OID to field kind table.
func (i *Introspection) DataTypesReverse() map[uint32]field.Kind {
	return maps.Clone(i.types)
}

// IndexDefaultAccessMethod returns the access method of indexes created without USING.
func (i *Introspection) IndexDefaultAccessMethod() string { return i.indexMethod }

// TableList returns the tables, views and partitions visible in the search path.
func (i *Introspection) TableList(ctx context.Context) ([]schema.TableInfo, error) {
	rows := &sql.Rows{}
	if err := i.drv.Query(ctx, tableListQuery, []any{}, rows); err != nil {
		return nil, fmt.Errorf("dialect/postgres: table list: %w", err)
	}
	defer rows.Close()
	var tables []schema.TableInfo
	for rows.Next() {
		var (
			name string
			typ  string
		)
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, fmt.Errorf("dialect/postgres: scan table: %w", err)
		}
		t := schema.TypeTable
		if typ != "" {
			t = schema.TableType(typ[0])
		}
		tables = append(tables, schema.TableInfo{Name: name, Type: t})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dialect/postgres: table list: %w", err)
	}
	return tables, nil
}

// TableDescription returns the columns of table in ordinal order.
func (i *Introspection) TableDescription(ctx context.Context, table string) ([]schema.ColumnInfo, error) {
	rows := &sql.Rows{}
	if err := i.drv.Query(ctx, tableDescriptionQuery, []any{table}, rows); err != nil {
		return nil, fmt.Errorf("dialect/postgres: describe %q: %w", table, err)
	}
	defer rows.Close()
	var columns []schema.ColumnInfo
	for rows.Next() {
		var (
			c   schema.ColumnInfo
			def stdsql.NullString
		)
		if err := rows.Scan(&c.Name, &c.TypeOID, &c.Nullable, &def); err != nil {
			return nil, fmt.Errorf("dialect/postgres: scan column: %w", err)
		}
		c.Default = def.String
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dialect/postgres: describe %q: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("dialect/postgres: table %q does not exist", table)
	}
	return columns, nil
}

// FieldKind returns the field kind of col. Integer columns whose default
// generates values are reported as auto fields.
func (i *Introspection) FieldKind(col schema.ColumnInfo) (field.Kind, bool) {
	k, ok := i.types[col.TypeOID]
	if !ok {
		return "", false
	}
	if k.IsInteger() && i.isAutoDefault(col.Default) {
		k = k.AutoKind()
	}
	return k, true
}

func (i *Introspection) isAutoDefault(def string) bool {
	def = strings.ToLower(def)
	return def != "" && slices.ContainsFunc(i.autoDefaults, func(p string) bool {
		return strings.HasPrefix(def, p)
	})
}

var _ schema.Introspector = (*Introspection)(nil)
