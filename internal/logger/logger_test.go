package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmcmillan34/edge-journal/internal/config"
)

func TestNew_ConsoleDefault(t *testing.T) {
	log, err := New(config.LogConfig{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	log, err := New(config.LogConfig{Level: "loud", Encoding: "json"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(-1))
	assert.True(t, log.Core().Enabled(0))
}

func TestNew_TeesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "journal.log")
	log, err := New(config.LogConfig{Level: "info", Encoding: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	log.Info("breach recorded")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "breach recorded")
}
