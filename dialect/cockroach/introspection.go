package cockroach

import (
	"context"
	"fmt"
	"maps"

	"github.com/syssam/veloxcrdb/dialect"
	"github.com/syssam/veloxcrdb/dialect/postgres"
	"github.com/syssam/veloxcrdb/dialect/sql"
	"github.com/syssam/veloxcrdb/dialect/sql/schema"
	"github.com/syssam/veloxcrdb/schema/field"
)

// IndexDefaultAccessMethod is the access method CockroachDB reports for
// indexes created without USING.
const IndexDefaultAccessMethod = "prefix"

const tableListQuery = "SELECT table_name FROM [SHOW TABLES]"

// DataTypesReverse returns the OID to field kind table of CockroachDB.
func DataTypesReverse() map[uint32]field.Kind {
	types := maps.Clone(postgres.DataTypesReverse)
	types[1184] = field.DateTimeField // TIMESTAMPTZ
	return types
}

// Introspection implements schema.Introspector for CockroachDB.
type Introspection struct {
	*postgres.Introspection
}

// NewIntrospection returns the CockroachDB introspection reading from drv.
// Integer columns defaulting to unique_rowid() are reported as auto fields.
func NewIntrospection(drv dialect.Driver) *Introspection {
	return &Introspection{
		Introspection: postgres.NewIntrospection(drv,
			postgres.WithDataTypes(DataTypesReverse()),
			postgres.WithAutoDefaults("unique_rowid()"),
			postgres.WithIndexAccessMethod(IndexDefaultAccessMethod),
		),
	}
}

// TableList returns the tables of the current database. SHOW TABLES does
// not distinguish views, so every entry is reported as a table.
func (i *Introspection) TableList(ctx context.Context) ([]schema.TableInfo, error) {
	rows := &sql.Rows{}
	if err := i.Driver().Query(ctx, tableListQuery, []any{}, rows); err != nil {
		return nil, fmt.Errorf("dialect/cockroach: table list: %w", err)
	}
	defer rows.Close()
	var tables []schema.TableInfo
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("dialect/cockroach: scan table: %w", err)
		}
		tables = append(tables, schema.TableInfo{Name: name, Type: schema.TypeTable})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dialect/cockroach: table list: %w", err)
	}
	return tables, nil
}

var _ schema.Introspector = (*Introspection)(nil)
