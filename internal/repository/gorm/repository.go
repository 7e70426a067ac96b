package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
	"github.com/rmcmillan34/edge-journal/internal/models"
	"github.com/rmcmillan34/edge-journal/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// inTx runs fn in one transaction. fn must use tx only: sqlite runs on a single
// connection and a second query outside tx would wait on it.
func (s *Store) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store not configured")
	}
	sqldb, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqldb.PingContext(ctx)
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		pattern := strings.TrimSpace(*params.Prefix) + "%"
		query = query.Where("key LIKE ?", pattern)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.SystemSetting
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

var orderColumns = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"closed_at":    true,
	"period_start": true,
	"name":         true,
	"version":      true,
	"key":          true,
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.ToLower(strings.TrimSpace(orderBy))
	if column == "" || !orderColumns[column] {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	// id breaks ties so equal timestamps keep insertion order
	return query.Order(column + " " + direction).Order("id " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}

func cleanIDs(items []uint64) []uint64 {
	out := make([]uint64, 0, len(items))
	seen := map[uint64]struct{}{}
	for _, id := range items {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func conflict(err error, what string) error {
	return fmt.Errorf("%w: %s: %v", apperr.ErrConflict, what, err)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

var _ repository.Repository = (*Store)(nil)
