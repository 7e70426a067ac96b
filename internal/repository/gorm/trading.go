package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/rmcmillan34/edge-journal/internal/models"
	"github.com/rmcmillan34/edge-journal/internal/repository"
)

func (s *Store) CreateAccount(ctx context.Context, item *models.Account) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Name = strings.TrimSpace(item.Name)
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetAccount(ctx context.Context, userID, id uint64) (*models.Account, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Account
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID uint64) ([]models.Account, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Account
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// SetAccountRiskCap writes the cap (nil clears it) and reports whether the account exists.
func (s *Store) SetAccountRiskCap(ctx context.Context, userID, id uint64, pct *float64) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"account_max_risk_pct": pct})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) CreateTrade(ctx context.Context, item *models.Trade) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Symbol = strings.ToUpper(strings.TrimSpace(item.Symbol))
	item.ClosedAt = item.ClosedAt.UTC()
	item.OpenedAt = utcPtr(item.OpenedAt)
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetTrade(ctx context.Context, userID, id uint64) (*models.Trade, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Trade
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Trade{}).Where("user_id = ?", params.UserID)
	if params.AccountID != nil {
		query = query.Where("account_id = ?", *params.AccountID)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("closed_at >= ?", params.Since.UTC())
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("closed_at < ?", params.Until.UTC())
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "closed_at")
	// scans pass no limit: a streak needs every trade in the window
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	var items []models.Trade
	if err := query.Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
