package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("", true)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "@every 15m", cfg.Cron.GuardrailScan)
	assert.Equal(t, 3, cfg.Guardrail.DefaultRules.MaxLossesRowDay)
	assert.Equal(t, "off", cfg.Guardrail.DefaultRules.EnforcementMode)
	assert.Equal(t, 2*time.Minute, cfg.Guardrail.ScanTimeout)
	found := false
	for k, v := range cfg.Playbook.GradeThresholds {
		if strings.EqualFold(k, "B") {
			found = true
			assert.InDelta(t, 0.75, v, 1e-9)
		}
	}
	assert.True(t, found)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db:
  driver: sqlite
  dsn: "file::memory:"
guardrail:
  timezone: Europe/London
  default_rules:
    max_losses_row_day: 4
`), 0o600))
	t.Setenv("EJ_SERVER_HTTP_ADDR", ":9999")

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 4, cfg.Guardrail.DefaultRules.MaxLossesRowDay)
	assert.Equal(t, 2, cfg.Guardrail.DefaultRules.MaxLosingDaysStreakWeek)
	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
	assert.Equal(t, "Europe/London", cfg.Guardrail.Location().String())
}

func TestGuardrailLocation_FallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, GuardrailConfig{Timezone: "Nowhere/Special"}.Location())
	assert.Equal(t, time.UTC, GuardrailConfig{}.Location())
}
