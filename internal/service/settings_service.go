package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
	"github.com/rmcmillan34/edge-journal/internal/config"
	"github.com/rmcmillan34/edge-journal/internal/guardrail"
	"github.com/rmcmillan34/edge-journal/internal/models"
	"github.com/rmcmillan34/edge-journal/internal/repository"
)

type TradingRules struct {
	MaxLossesRowDay           int    `json:"max_losses_row_day"`
	MaxLosingDaysStreakWeek   int    `json:"max_losing_days_streak_week"`
	MaxLosingWeeksStreakMonth int    `json:"max_losing_weeks_streak_month"`
	AlertsEnabled             bool   `json:"alerts_enabled"`
	EnforcementMode           string `json:"enforcement_mode"`

	// Stored is false while the user still runs on defaults.
	Stored bool `json:"stored"`
}

func (r TradingRules) Streak() guardrail.Rules {
	return guardrail.Rules{
		MaxLossesInRowDay:        r.MaxLossesRowDay,
		MaxLosingDaysInRowWeek:   r.MaxLosingDaysStreakWeek,
		MaxLosingWeeksInRowMonth: r.MaxLosingWeeksStreakMonth,
	}
}

// SettingsService owns the per-user trading rules.
type SettingsService struct {
	Repo     repository.LedgerRepository
	Defaults config.RulesDefault
}

func (s *SettingsService) defaults() TradingRules {
	mode := strings.ToLower(strings.TrimSpace(s.Defaults.EnforcementMode))
	if !validMode(mode) {
		mode = models.EnforcementOff
	}
	return TradingRules{
		MaxLossesRowDay:           s.Defaults.MaxLossesRowDay,
		MaxLosingDaysStreakWeek:   s.Defaults.MaxLosingDaysStreakWeek,
		MaxLosingWeeksStreakMonth: s.Defaults.MaxLosingWeeksStreakMonth,
		AlertsEnabled:             s.Defaults.AlertsEnabled,
		EnforcementMode:           mode,
	}
}

func (s *SettingsService) Rules(ctx context.Context, userID uint64) (TradingRules, error) {
	item, err := s.Repo.GetTradingRules(ctx, userID)
	if err != nil {
		return TradingRules{}, err
	}
	if item == nil {
		return s.defaults(), nil
	}
	return TradingRules{
		MaxLossesRowDay:           item.MaxLossesRowDay,
		MaxLosingDaysStreakWeek:   item.MaxLosingDaysStreakWeek,
		MaxLosingWeeksStreakMonth: item.MaxLosingWeeksStreakMonth,
		AlertsEnabled:             item.AlertsEnabled,
		EnforcementMode:           item.EnforcementMode,
		Stored:                    true,
	}, nil
}

func (s *SettingsService) PutRules(ctx context.Context, userID uint64, in TradingRules) (TradingRules, error) {
	in.EnforcementMode = strings.ToLower(strings.TrimSpace(in.EnforcementMode))
	var problems []string
	if in.MaxLossesRowDay < 0 {
		problems = append(problems, "max_losses_row_day must be >= 0")
	}
	if in.MaxLosingDaysStreakWeek < 0 {
		problems = append(problems, "max_losing_days_streak_week must be >= 0")
	}
	if in.MaxLosingWeeksStreakMonth < 0 {
		problems = append(problems, "max_losing_weeks_streak_month must be >= 0")
	}
	if !validMode(in.EnforcementMode) {
		problems = append(problems, fmt.Sprintf("enforcement_mode must be one of off, warn, block (got %q)", in.EnforcementMode))
	}
	if err := apperr.Validation(problems...); err != nil {
		return TradingRules{}, err
	}
	item := &models.TradingRules{
		UserID:                    userID,
		MaxLossesRowDay:           in.MaxLossesRowDay,
		MaxLosingDaysStreakWeek:   in.MaxLosingDaysStreakWeek,
		MaxLosingWeeksStreakMonth: in.MaxLosingWeeksStreakMonth,
		AlertsEnabled:             in.AlertsEnabled,
		EnforcementMode:           in.EnforcementMode,
	}
	if err := s.Repo.UpsertTradingRules(ctx, item); err != nil {
		return TradingRules{}, err
	}
	in.Stored = true
	return in, nil
}

func validMode(mode string) bool {
	switch mode {
	case models.EnforcementOff, models.EnforcementWarn, models.EnforcementBlock:
		return true
	}
	return false
}
