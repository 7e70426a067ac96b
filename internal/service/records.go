package service

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
	"github.com/rmcmillan34/edge-journal/internal/models"
	"github.com/rmcmillan34/edge-journal/internal/playbook"
)

// TemplateRecord is one stored template version.
type TemplateRecord struct {
	ID        uint64    `json:"id"`
	Version   int       `json:"version"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`

	playbook.Template
}

type ResponseRecord struct {
	ID              uint64                `json:"id"`
	TemplateID      uint64                `json:"template_id"`
	TemplateVersion int                   `json:"template_version"`
	EntryType       string                `json:"entry_type"`
	TradeID         *uint64               `json:"trade_id,omitempty"`
	JournalDate     *string               `json:"journal_date,omitempty"`
	Symbol          *string               `json:"symbol,omitempty"`
	AccountID       *uint64               `json:"account_id,omitempty"`
	Values          map[string]any        `json:"values"`
	Comments        map[string]string     `json:"comments"`
	ComplianceScore float64               `json:"compliance_score"`
	Grade           playbook.Grade        `json:"grade"`
	IntendedRiskPct *float64              `json:"intended_risk_pct"`
	RiskCapPct      *float64              `json:"risk_cap_pct"`
	CapBreakdown    playbook.CapBreakdown `json:"cap_breakdown"`
	Exceeded        bool                  `json:"exceeded"`
	CreatedAt       time.Time             `json:"created_at"`
}

type BreachRecord struct {
	ID             uint64         `json:"id"`
	RuleKey        string         `json:"rule_key"`
	Scope          string         `json:"scope"`
	DateOrWeek     string         `json:"date_or_week"`
	Subject        string         `json:"subject,omitempty"`
	PeriodStart    time.Time      `json:"period_start"`
	PeriodEnd      time.Time      `json:"period_end"`
	AccountID      *uint64        `json:"account_id,omitempty"`
	Details        map[string]any `json:"details"`
	Acknowledged   bool           `json:"acknowledged"`
	AcknowledgedAt *time.Time     `json:"acknowledged_at,omitempty"`
	ScanRunID      string         `json:"scan_run_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func toJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func fromJSON(raw datatypes.JSON, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func templateToModel(userID uint64, t playbook.Template, version int) (*models.PlaybookTemplate, error) {
	schema, err := toJSON(t.Schema)
	if err != nil {
		return nil, err
	}
	item := &models.PlaybookTemplate{
		UserID:             userID,
		Name:               t.Name,
		Version:            version,
		Purpose:            string(t.Purpose),
		Description:        t.Description,
		Schema:             schema,
		TemplateMaxRiskPct: t.TemplateMaxRiskPct,
		IsActive:           true,
	}
	if len(t.GradeThresholds) > 0 {
		if item.GradeThresholds, err = toJSON(t.GradeThresholds); err != nil {
			return nil, err
		}
	}
	if len(t.RiskSchedule) > 0 {
		if item.RiskSchedule, err = toJSON(t.RiskSchedule); err != nil {
			return nil, err
		}
	}
	return item, nil
}

// templateFromModel decodes a stored row. A row that no longer decodes means the
// stored data bypassed validation, which is a defect rather than bad input.
func templateFromModel(item *models.PlaybookTemplate) (TemplateRecord, error) {
	rec := TemplateRecord{
		ID:        item.ID,
		Version:   item.Version,
		IsActive:  item.IsActive,
		CreatedAt: item.CreatedAt,
		Template: playbook.Template{
			Name:               item.Name,
			Purpose:            playbook.Purpose(item.Purpose),
			Description:        item.Description,
			TemplateMaxRiskPct: item.TemplateMaxRiskPct,
		},
	}
	if err := fromJSON(item.Schema, &rec.Schema); err != nil {
		return TemplateRecord{}, apperr.Computation("decode template schema", err)
	}
	if err := fromJSON(item.GradeThresholds, &rec.GradeThresholds); err != nil {
		return TemplateRecord{}, apperr.Computation("decode grade thresholds", err)
	}
	if err := fromJSON(item.RiskSchedule, &rec.RiskSchedule); err != nil {
		return TemplateRecord{}, apperr.Computation("decode risk schedule", err)
	}
	if rec.Schema == nil {
		rec.Schema = playbook.Schema{}
	}
	return rec, nil
}

func responseFromModel(item *models.PlaybookResponse) (ResponseRecord, error) {
	rec := ResponseRecord{
		ID:              item.ID,
		TemplateID:      item.TemplateID,
		TemplateVersion: item.TemplateVersion,
		EntryType:       item.EntryType,
		TradeID:         item.TradeID,
		JournalDate:     item.JournalDate,
		Symbol:          item.Symbol,
		AccountID:       item.AccountID,
		Values:          map[string]any{},
		Comments:        map[string]string{},
		ComplianceScore: item.ComplianceScore,
		Grade:           playbook.Grade(item.Grade),
		IntendedRiskPct: item.IntendedRiskPct,
		RiskCapPct:      item.RiskCapPct,
		Exceeded:        item.Exceeded,
		CreatedAt:       item.CreatedAt,
	}
	if err := fromJSON(item.Values, &rec.Values); err != nil {
		return ResponseRecord{}, fmt.Errorf("decode response %d values: %w", item.ID, err)
	}
	if err := fromJSON(item.Comments, &rec.Comments); err != nil {
		return ResponseRecord{}, fmt.Errorf("decode response %d comments: %w", item.ID, err)
	}
	if err := fromJSON(item.CapBreakdown, &rec.CapBreakdown); err != nil {
		return ResponseRecord{}, fmt.Errorf("decode response %d cap breakdown: %w", item.ID, err)
	}
	return rec, nil
}

func responsesFromModels(items []models.PlaybookResponse) ([]ResponseRecord, error) {
	out := make([]ResponseRecord, 0, len(items))
	for i := range items {
		rec, err := responseFromModel(&items[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func breachFromModel(item *models.Breach) BreachRecord {
	rec := BreachRecord{
		ID:             item.ID,
		RuleKey:        item.RuleKey,
		Scope:          item.Scope,
		DateOrWeek:     item.DateOrWeek,
		Subject:        item.Subject,
		PeriodStart:    item.PeriodStart,
		PeriodEnd:      item.PeriodEnd,
		AccountID:      item.AccountID,
		Details:        map[string]any{},
		Acknowledged:   item.Acknowledged,
		AcknowledgedAt: item.AcknowledgedAt,
		ScanRunID:      item.ScanRunID,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
	// details are informational; a bad payload still lists the breach
	_ = fromJSON(item.Details, &rec.Details)
	return rec
}

func ptrTo[T any](v T) *T { return &v }
