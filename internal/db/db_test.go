package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmcmillan34/edge-journal/internal/config"
	"github.com/rmcmillan34/edge-journal/internal/db"
	"github.com/rmcmillan34/edge-journal/internal/db/dbtest"
	"github.com/rmcmillan34/edge-journal/internal/models"
)

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := db.Open(config.DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	d := dbtest.Open(t)
	assert.Equal(t, "sqlite", d.Dialect)
	require.NoError(t, db.Ping(d))
	for _, m := range []any{&models.Breach{}, &models.PlaybookTemplate{}, &models.PlaybookResponse{}, &models.Trade{}} {
		assert.True(t, d.Gorm.Migrator().HasTable(m))
	}
	assert.True(t, d.Gorm.Migrator().HasIndex(&models.Breach{}, "uq_breach_key"))
}

func TestSetTimezone_SkipsSQLiteAndRejectsInjection(t *testing.T) {
	d := dbtest.Open(t)
	assert.NoError(t, db.SetTimezone(d, "UTC"))
	d.Dialect = "postgres"
	assert.Error(t, db.SetTimezone(d, "UTC'; DROP TABLE breaches; --"))
}
