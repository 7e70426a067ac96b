package gormrepository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/rmcmillan34/edge-journal/internal/models"
	"github.com/rmcmillan34/edge-journal/internal/repository"
)

func (s *Store) CreateTemplate(ctx context.Context, item *models.PlaybookTemplate) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Name = strings.TrimSpace(item.Name)
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		if isDuplicate(err) {
			return conflict(err, "template version exists")
		}
		return err
	}
	return nil
}

func (s *Store) GetTemplate(ctx context.Context, userID, id uint64) (*models.PlaybookTemplate, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.PlaybookTemplate
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetTemplateVersion(ctx context.Context, userID uint64, name string, version int) (*models.PlaybookTemplate, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PlaybookTemplate
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND name = ? AND version = ?", userID, strings.TrimSpace(name), version).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) MaxTemplateVersion(ctx context.Context, userID uint64, name string) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var latest int
	err := s.db.WithContext(ctx).Model(&models.PlaybookTemplate{}).
		Select("COALESCE(MAX(version), 0)").
		Where("user_id = ? AND name = ?", userID, strings.TrimSpace(name)).
		Scan(&latest).Error
	return latest, err
}

func (s *Store) ListTemplates(ctx context.Context, params repository.ListTemplatesParams) ([]models.PlaybookTemplate, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.PlaybookTemplate{}).Where("user_id = ?", params.UserID)
	if params.Purpose != nil && strings.TrimSpace(*params.Purpose) != "" {
		query = query.Where("purpose = ?", strings.TrimSpace(*params.Purpose))
	}
	if params.Active != nil {
		query = query.Where("is_active = ?", *params.Active)
	}
	if params.Name != nil && strings.TrimSpace(*params.Name) != "" {
		query = query.Where("name = ?", strings.TrimSpace(*params.Name))
	}
	var items []models.PlaybookTemplate
	err := query.Order("name asc").Order("version desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SetTemplateActive(ctx context.Context, userID, id uint64, active bool) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).Model(&models.PlaybookTemplate{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_active", active)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	// unchanged value still counts as found
	existing, err := s.GetTemplate(ctx, userID, id)
	return existing != nil, err
}

func (s *Store) InsertResponse(ctx context.Context, item *models.PlaybookResponse) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetResponse(ctx context.Context, userID, id uint64) (*models.PlaybookResponse, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.PlaybookResponse
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListResponses(ctx context.Context, params repository.ListResponsesParams) ([]models.PlaybookResponse, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.PlaybookResponse{}).Where("user_id = ?", params.UserID)
	if params.TradeID != nil {
		query = query.Where("trade_id = ?", *params.TradeID)
	}
	if params.JournalDate != nil {
		query = query.Where("journal_date = ?", strings.TrimSpace(*params.JournalDate))
	}
	if params.Symbol != nil {
		query = query.Where("symbol = ?", strings.ToUpper(strings.TrimSpace(*params.Symbol)))
	}
	if params.TemplateID != nil {
		query = query.Where("template_id = ?", *params.TemplateID)
	}
	if params.Exceeded != nil {
		query = query.Where("exceeded = ?", *params.Exceeded)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", params.Since.UTC())
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("created_at < ?", params.Until.UTC())
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.PlaybookResponse
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// LatestResponsesByTrade returns at most one response per trade: the newest.
func (s *Store) LatestResponsesByTrade(ctx context.Context, userID uint64, tradeIDs []uint64) ([]models.PlaybookResponse, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	ids := cleanIDs(tradeIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.PlaybookResponse
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND trade_id IN ?", userID, ids).
		Order("trade_id asc").Order("created_at desc").Order("id desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.PlaybookResponse, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, r := range rows {
		if r.TradeID == nil {
			continue
		}
		if _, ok := seen[*r.TradeID]; ok {
			continue
		}
		seen[*r.TradeID] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) InsertEvidence(ctx context.Context, item *models.PlaybookEvidence) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListEvidence(ctx context.Context, userID, responseID uint64) ([]models.PlaybookEvidence, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PlaybookEvidence
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND response_id = ?", userID, responseID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteEvidence(ctx context.Context, userID, responseID, id uint64) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND response_id = ?", id, userID, responseID).
		Delete(&models.PlaybookEvidence{})
	return res.RowsAffected > 0, res.Error
}
