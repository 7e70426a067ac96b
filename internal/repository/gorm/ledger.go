package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rmcmillan34/edge-journal/internal/models"
	"github.com/rmcmillan34/edge-journal/internal/repository"
)

func (s *Store) GetTradingRules(ctx context.Context, userID uint64) (*models.TradingRules, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.TradingRules
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertTradingRules(ctx context.Context, item *models.TradingRules) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"max_losses_row_day",
			"max_losing_days_streak_week",
			"max_losing_weeks_streak_month",
			"alerts_enabled",
			"enforcement_mode",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) ListRuleUserIDs(ctx context.Context) ([]uint64, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []uint64
	err := s.db.WithContext(ctx).Model(&models.TradingRules{}).Order("user_id asc").Pluck("user_id", &ids).Error
	return ids, err
}

var breachKey = []clause.Column{
	{Name: "user_id"},
	{Name: "rule_key"},
	{Name: "scope"},
	{Name: "date_or_week"},
	{Name: "subject"},
}

// UpsertBreach reports true only when this call inserted the row. A key inserted
// by a concurrent scan between the lookup and the insert is refreshed instead.
func (s *Store) UpsertBreach(ctx context.Context, item *models.Breach) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	item.PeriodStart = item.PeriodStart.UTC()
	item.PeriodEnd = item.PeriodEnd.UTC()
	item.Acknowledged = false
	item.AcknowledgedAt = nil

	created := false
	err := s.inTx(ctx, func(tx *gorm.DB) error {
		existing, err := findBreach(tx, item)
		if err != nil {
			return err
		}
		if existing == nil {
			res := tx.Clauses(clause.OnConflict{Columns: breachKey, DoNothing: true}).Create(item)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				created = true
				return nil
			}
			if existing, err = findBreach(tx, item); err != nil {
				return err
			}
			if existing == nil {
				return errors.New("breach key conflicted but no row found")
			}
		}
		return refreshBreach(tx, existing, item)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func findBreach(tx *gorm.DB, item *models.Breach) (*models.Breach, error) {
	var existing models.Breach
	err := tx.Where("user_id = ? AND rule_key = ? AND scope = ? AND date_or_week = ? AND subject = ?",
		item.UserID, item.RuleKey, item.Scope, item.DateOrWeek, item.Subject).
		Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// refreshBreach rewrites what a re-scan may change; acknowledgment is not among it.
func refreshBreach(tx *gorm.DB, existing, item *models.Breach) error {
	now := time.Now().UTC()
	if err := tx.Model(existing).Updates(map[string]any{
		"details":      item.Details,
		"period_start": item.PeriodStart,
		"period_end":   item.PeriodEnd,
		"account_id":   item.AccountID,
		"scan_run_id":  item.ScanRunID,
		"updated_at":   now,
	}).Error; err != nil {
		return err
	}
	item.ID = existing.ID
	item.Acknowledged = existing.Acknowledged
	item.AcknowledgedAt = existing.AcknowledgedAt
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = now
	return nil
}

func (s *Store) GetBreach(ctx context.Context, userID, id uint64) (*models.Breach, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Breach
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBreaches(ctx context.Context, params repository.ListBreachesParams) ([]models.Breach, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Breach{}).Where("user_id = ?", params.UserID)
	if params.Start != nil && !params.Start.IsZero() {
		query = query.Where("period_end > ?", params.Start.UTC())
	}
	if params.End != nil && !params.End.IsZero() {
		query = query.Where("period_start < ?", params.End.UTC())
	}
	if scopes := cleanStrings(params.Scopes); len(scopes) > 0 {
		query = query.Where("scope IN ?", scopes)
	}
	if params.RuleKey != nil && strings.TrimSpace(*params.RuleKey) != "" {
		query = query.Where("rule_key = ?", strings.TrimSpace(*params.RuleKey))
	}
	if params.Acknowledged != nil {
		query = query.Where("acknowledged = ?", *params.Acknowledged)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.Breach
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// AcknowledgeBreach flips acknowledged false→true once. It returns nil, nil when the
// breach does not exist for the user; an already acknowledged breach is returned as is.
func (s *Store) AcknowledgeBreach(ctx context.Context, userID, id uint64, at time.Time) (*models.Breach, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if at.IsZero() {
		at = time.Now()
	}
	err := s.db.WithContext(ctx).Model(&models.Breach{}).
		Where("id = ? AND user_id = ? AND acknowledged = ?", id, userID, false).
		Updates(map[string]any{"acknowledged": true, "acknowledged_at": at.UTC()}).Error
	if err != nil {
		return nil, err
	}
	return s.GetBreach(ctx, userID, id)
}
