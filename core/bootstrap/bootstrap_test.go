package bootstrap

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/vtubot/core/config"
	coredatabase "github.com/m3rciful/vtubot/core/database"
)

func noopLogger(*coreconfig.Config) error { return nil }

func TestRunClosesDBWhenMigrationsFail(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	_, err = Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noopLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			return sqlx.NewDb(raw, "postgres"), nil
		},
		Migrate: func(coredatabase.Config) error { return errors.New("dirty") },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunReturnsHandle(t *testing.T) {
	raw, _, err := sqlmock.New()
	require.NoError(t, err)

	migrated := false
	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noopLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			return sqlx.NewDb(raw, "postgres"), nil
		},
		Migrate: func(coredatabase.Config) error { migrated = true; return nil },
	})
	require.NoError(t, err)
	assert.True(t, migrated)
	assert.NotNil(t, res.DB)
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(Options{})
	require.Error(t, err)
}
