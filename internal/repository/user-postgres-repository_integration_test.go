package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostgresUserRepository_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	db, err := OpenPostgres(dsn)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(context.Background(), db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	runUserRepositoryContract(t, func(t *testing.T) UserRepository {
		require.NoError(t, db.Exec("TRUNCATE users").Error)
		return NewUserRepository(db)
	})
}
