package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxcrdb/dialect/sql/schema"
)

func TestGISOperators(t *testing.T) {
	ops := NewOperations(nil)
	got := ops.GISOperators()
	assert.Equal(t, schema.GISOperator{Op: "|>>"}, got["strictly_above"])
	assert.Equal(t, schema.GISOperator{Op: "<<|"}, got["strictly_below"])
	assert.Equal(t, schema.GISOperator{Op: "~"}, got["bbcontains"])
	assert.Equal(t, schema.GISOperator{Func: "ST_Contains"}, got["contains"])

	delete(got, "bbcontains")
	assert.Contains(t, ops.GISOperators(), "bbcontains", "returned operators must be a copy")
}

func TestGISFunctions(t *testing.T) {
	ops := NewOperations(nil)
	assert.Empty(t, ops.UnsupportedFunctions())
	for _, name := range GISFunctions {
		assert.True(t, ops.SupportsFunction(name), name)
	}
	assert.False(t, ops.SupportsFunction("NoSuchFunction"))
}

func TestPostGISVersion(t *testing.T) {
	ctx := context.Background()
	ops, mock := mockOperations(t)

	mock.ExpectQuery("SELECT postgis_lib_version()").
		WillReturnRows(sqlmock.NewRows([]string{"postgis_lib_version"}).AddRow("3.4.2"))
	lib, err := ops.PostGISLibVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3.4.2", lib)

	mock.ExpectQuery("SELECT postgis_version()").
		WillReturnRows(sqlmock.NewRows([]string{"postgis_version"}).AddRow("3.4 USE_GEOS=1 USE_PROJ=1 USE_STATS=1"))
	v, err := ops.PostGISVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, schema.Version{Major: 3, Minor: 4}, v)

	mock.ExpectQuery("SELECT postgis_version()").
		WillReturnError(errors.New(`function postgis_version() does not exist`))
	_, err = ops.PostGISVersion(ctx)
	require.Error(t, err)

	mock.ExpectQuery("SELECT postgis_lib_version()").
		WillReturnRows(sqlmock.NewRows([]string{"postgis_lib_version"}))
	_, err = ops.PostGISLibVersion(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned no rows")
	require.NoError(t, mock.ExpectationsWereMet())
}
