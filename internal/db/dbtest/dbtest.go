// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rmcmillan34/edge-journal/internal/config"
	"github.com/rmcmillan34/edge-journal/internal/db"
)

var seq atomic.Int64

// Open returns a migrated in-memory database private to t.
func Open(t testing.TB) *db.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))
	d, err := db.Open(config.DBConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(d))
	t.Cleanup(func() { _ = db.Close(d) })
	return d
}
