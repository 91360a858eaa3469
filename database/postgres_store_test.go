package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postgresTestStore connects to TEST_DATABASE_URL, migrates and empties the
// tables. Tests skip when the variable is unset or the server is unreachable.
func postgresTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := Connect(ctx, dbURL)
	if err != nil {
		t.Skipf("database not reachable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	_, err = db.ExecContext(ctx, `TRUNCATE countries, refresh_metadata`)
	require.NoError(t, err)

	return NewPostgresStore(db)
}

func TestPostgresStore_Contract(t *testing.T) {
	runStoreContract(t, postgresTestStore(t))
}

func TestPostgresStore_MigrateIsIdempotent(t *testing.T) {
	store := postgresTestStore(t)

	assert.NoError(t, Migrate(context.Background(), store.DB))
}

func TestSchemaValidator_AfterMigrate(t *testing.T) {
	store := postgresTestStore(t)

	results, err := NewSchemaValidator(store.DB).Validate(context.Background())

	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, result := range results {
		assert.True(t, result.IsValid, "%s: missing columns %v, missing indexes %v", result.TableName, result.MissingColumns, result.MissingIndexes)
	}
}

func TestPostgresOrderBy(t *testing.T) {
	assert.Contains(t, postgresOrderBy("gdp_desc"), "estimated_gdp DESC NULLS LAST")
	assert.Contains(t, postgresOrderBy("gdp_asc"), "estimated_gdp ASC NULLS FIRST")
	assert.Contains(t, postgresOrderBy("population_desc"), "population DESC")
	assert.Contains(t, postgresOrderBy("population_asc"), "population ASC")
	assert.Empty(t, postgresOrderBy(""))
}
