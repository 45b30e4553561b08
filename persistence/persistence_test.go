package persistence

import (
	"context"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		dsn     string
		dialect string
		driver  string
		source  string
	}{
		{dsn: "postgres://u:p@localhost:5432/leadnest?sslmode=disable", dialect: DialectPostgres, driver: "postgres", source: "postgres://u:p@localhost:5432/leadnest?sslmode=disable"},
		{dsn: "postgresql://localhost/leadnest", dialect: DialectPostgres, driver: "postgres", source: "postgresql://localhost/leadnest"},
		{dsn: "sqlite:file::memory:?cache=shared", dialect: DialectSQLite, driver: sqliteshim.ShimName, source: "file::memory:?cache=shared"},
		{dsn: "sqlite://leadnest.db", dialect: DialectSQLite, driver: sqliteshim.ShimName, source: "leadnest.db"},
		{dsn: "file:leadnest.db", dialect: DialectSQLite, driver: sqliteshim.ShimName, source: "file:leadnest.db"},
		{dsn: ":memory:", dialect: DialectSQLite, driver: sqliteshim.ShimName, source: ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			target, err := Resolve(tt.dsn)
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, target.Name)
			assert.Equal(t, tt.driver, target.Driver)
			assert.Equal(t, tt.source, target.Source)
			assert.NotNil(t, target.Dialect)
		})
	}
}

func TestResolveUnsupported(t *testing.T) {
	_, err := Resolve("mysql://localhost/leadnest")
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, "UNSUPPORTED_DSN", richErr.TextCode)
	assert.Equal(t, "mysql", richErr.Metadata["scheme"])
}

func TestOpenSQLiteMemory(t *testing.T) {
	db, err := Open(context.Background(), "sqlite:file::memory:?cache=shared", WithDebug(false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var one int
	require.NoError(t, db.NewSelect().ColumnExpr("1").Scan(context.Background(), &one))
	assert.Equal(t, 1, one)
}
