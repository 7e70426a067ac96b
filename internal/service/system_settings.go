package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/rmcmillan34/edge-journal/internal/models"
	"github.com/rmcmillan34/edge-journal/internal/repository"
)

const (
	FeatureGuardrailScan = "feature.guardrail_scan"
	FeatureBreachAlerts  = "feature.breach_alerts"
	FeatureScanOnTrade   = "feature.scan_on_trade"
)

func DefaultFeatureSwitches() map[string]bool {
	return map[string]bool{
		FeatureGuardrailScan: true,
		FeatureBreachAlerts:  true,
		FeatureScanOnTrade:   true,
	}
}

// SystemSettingsService keeps process-wide feature switches in the settings table
// so operators can pause the scheduled scan or alerts without a restart.
type SystemSettingsService struct {
	Repo repository.SettingsRepository
}

// EnsureDefaultSwitches creates missing switches. Existing values are left alone.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for key, enabled := range DefaultFeatureSwitches() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "feature switch",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil || len(item.Value) == 0 {
		return fallback
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		return fallback
	}
	return enabled
}

func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	raw, _ := json.Marshal(enabled)
	now := time.Now().UTC()
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: "feature switch",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.Repo.UpsertSystemSetting(ctx, item)
}

// Switches lists every known switch with its current value.
func (s *SystemSettingsService) Switches(ctx context.Context) map[string]bool {
	out := DefaultFeatureSwitches()
	for key, fallback := range out {
		out[key] = s.IsEnabled(ctx, key, fallback)
	}
	return out
}
