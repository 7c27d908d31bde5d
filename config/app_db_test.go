package config

import (
	"testing"

	"github.com/akeren/cv99x-waitlist/internal/log"
	"github.com/akeren/cv99x-waitlist/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN_PrefersDatabaseURL(t *testing.T) {
	t.Setenv("APP_DATABASE_URL", "'postgres://u:p@db:5432/waitlist'")

	dsn, err := buildPostgresDSN(log.NewDiscardLogger(), (&DBConfig{}).withDefaults())
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/waitlist", dsn)
}

func TestBuildPostgresDSN_MissingParams(t *testing.T) {
	t.Setenv("APP_DATABASE_URL", "")
	t.Setenv("POSTGRES_HOST", "")
	t.Setenv("POSTGRES_PORT", "")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_DB_NAME", "")

	_, err := buildPostgresDSN(log.NewDiscardLogger(), (&DBConfig{}).withDefaults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_HOST")
	assert.Contains(t, err.Error(), "POSTGRES_DB_NAME")
	assert.NotContains(t, err.Error(), "POSTGRES_USER")
}

func TestBuildPostgresDSN_FromParams(t *testing.T) {
	t.Setenv("APP_DATABASE_URL", "")
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_PORT", "5432")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB_NAME", "waitlist")
	t.Setenv("POSTGRES_SSLMODE", "")

	dsn, err := buildPostgresDSN(log.NewDiscardLogger(), (&DBConfig{}).withDefaults())
	require.NoError(t, err)
	assert.Equal(t, "host=localhost port=5432 user=app password=secret dbname=waitlist sslmode=require", dsn)
}

func TestNewSQLiteDatabase_InMemoryMigrates(t *testing.T) {
	logger := log.NewDiscardLogger()

	db, err := NewSQLiteDatabase(logger, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { CloseDatabase(db, logger) })

	require.NoError(t, AutoMigrate(logger, db, models.ModelRegistry...))
	assert.True(t, db.Migrator().HasTable(models.WaitlistTableName))
}
