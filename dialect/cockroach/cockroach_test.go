package cockroach

import (
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxcrdb/dialect"
)

func TestOpen(t *testing.T) {
	drv, err := Open("postgres", "postgresql://root@localhost:26257/defaultdb?sslmode=disable")
	require.NoError(t, err)
	defer drv.Close()
	assert.Equal(t, dialect.CockroachDB, drv.Dialect())

	_, err = Open("unknown", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dialect/sql: open unknown")
}

func TestOpenWithStats(t *testing.T) {
	drv, stats, err := OpenWithStats("postgres", "postgresql://root@localhost:26257/defaultdb?sslmode=disable")
	require.NoError(t, err)
	defer drv.Close()
	assert.Equal(t, dialect.CockroachDB, drv.Dialect())
	assert.Zero(t, stats.Stats().TotalQueries)
}
