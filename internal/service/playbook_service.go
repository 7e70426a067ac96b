package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
	"github.com/rmcmillan34/edge-journal/internal/models"
	"github.com/rmcmillan34/edge-journal/internal/playbook"
	"github.com/rmcmillan34/edge-journal/internal/repository"
	"github.com/rmcmillan34/edge-journal/internal/trace"
)

// PlaybookService manages template versions and turns submitted checklists into
// stored, graded responses.
type PlaybookService struct {
	Repo      repository.Repository
	Guardrail *GuardrailService
	Settings  *SettingsService
	Logger    *zap.Logger

	DefaultThresholds playbook.Thresholds
	DefaultSchedule   playbook.RiskSchedule
	MaxVersionRetry   int
}

// TemplatePatch carries the fields a new version changes; nil fields inherit.
type TemplatePatch struct {
	Purpose            *playbook.Purpose     `json:"purpose,omitempty"`
	Description        *string               `json:"description,omitempty"`
	Schema             playbook.Schema       `json:"schema,omitempty"`
	GradeThresholds    playbook.Thresholds   `json:"grade_thresholds,omitempty"`
	RiskSchedule       playbook.RiskSchedule `json:"risk_schedule,omitempty"`
	TemplateMaxRiskPct *float64              `json:"template_max_risk_pct,omitempty"`
	ClearMaxRiskPct    bool                  `json:"clear_template_max_risk_pct,omitempty"`
}

func (p TemplatePatch) apply(t playbook.Template) playbook.Template {
	out := t.Clone()
	if p.Purpose != nil {
		out.Purpose = *p.Purpose
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Schema != nil {
		out.Schema = p.Schema
	}
	if p.GradeThresholds != nil {
		out.GradeThresholds = p.GradeThresholds
	}
	if p.RiskSchedule != nil {
		out.RiskSchedule = p.RiskSchedule
	}
	if p.TemplateMaxRiskPct != nil {
		out.TemplateMaxRiskPct = p.TemplateMaxRiskPct
	}
	if p.ClearMaxRiskPct {
		out.TemplateMaxRiskPct = nil
	}
	return out
}

func normalizeTemplate(t playbook.Template) playbook.Template {
	t.Name = strings.TrimSpace(t.Name)
	t.Description = strings.TrimSpace(t.Description)
	t.Purpose = playbook.Purpose(strings.ToLower(strings.TrimSpace(string(t.Purpose))))
	for i := range t.Schema {
		t.Schema[i].Key = strings.TrimSpace(t.Schema[i].Key)
	}
	return t
}

// CreateTemplate stores version 1 of a new template name.
func (s *PlaybookService) CreateTemplate(ctx context.Context, userID uint64, t playbook.Template) (TemplateRecord, error) {
	t = normalizeTemplate(t)
	if err := playbook.ValidateTemplate(t); err != nil {
		return TemplateRecord{}, err
	}
	latest, err := s.Repo.MaxTemplateVersion(ctx, userID, t.Name)
	if err != nil {
		return TemplateRecord{}, err
	}
	if latest > 0 {
		return TemplateRecord{}, fmt.Errorf("%w: template %q already exists; publish a new version instead", apperr.ErrConflict, t.Name)
	}
	return s.insertVersion(ctx, userID, t, 1)
}

func (s *PlaybookService) insertVersion(ctx context.Context, userID uint64, t playbook.Template, version int) (TemplateRecord, error) {
	item, err := templateToModel(userID, t, version)
	if err != nil {
		return TemplateRecord{}, apperr.Computation("encode template", err)
	}
	if err := s.Repo.CreateTemplate(ctx, item); err != nil {
		return TemplateRecord{}, err
	}
	if s.Logger != nil {
		s.Logger.Info("playbook template stored",
			zap.Uint64("user_id", userID),
			zap.Uint64("template_id", item.ID),
			zap.String("name", item.Name),
			zap.Int("version", item.Version),
		)
	}
	return templateFromModel(item)
}

// PublishVersion appends max(version)+1 for the template's name. Concurrent
// publishers race on the unique (user, name, version) key; the loser re-reads the
// max and retries.
func (s *PlaybookService) PublishVersion(ctx context.Context, userID, templateID uint64, patch TemplatePatch) (TemplateRecord, error) {
	src, err := s.GetTemplate(ctx, userID, templateID)
	if err != nil {
		return TemplateRecord{}, err
	}
	next := normalizeTemplate(patch.apply(src.Template))
	if err := playbook.ValidateTemplate(next); err != nil {
		return TemplateRecord{}, err
	}
	retries := s.MaxVersionRetry
	if retries <= 0 {
		retries = 5
	}
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		latest, err := s.Repo.MaxTemplateVersion(ctx, userID, next.Name)
		if err != nil {
			return TemplateRecord{}, err
		}
		rec, err := s.insertVersion(ctx, userID, next, latest+1)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, apperr.ErrConflict) {
			return TemplateRecord{}, err
		}
		lastErr = err
		if s.Logger != nil {
			s.Logger.Debug("template version race, retrying",
				zap.String("name", next.Name), zap.Int("attempt", attempt+1))
		}
	}
	return TemplateRecord{}, fmt.Errorf("publish %q after %d attempts: %w", next.Name, retries, lastErr)
}

func (s *PlaybookService) GetTemplate(ctx context.Context, userID, id uint64) (TemplateRecord, error) {
	item, err := s.Repo.GetTemplate(ctx, userID, id)
	if err != nil {
		return TemplateRecord{}, err
	}
	if item == nil {
		return TemplateRecord{}, apperr.NotFound("template", id)
	}
	return templateFromModel(item)
}

func (s *PlaybookService) GetTemplateVersion(ctx context.Context, userID uint64, name string, version int) (TemplateRecord, error) {
	item, err := s.Repo.GetTemplateVersion(ctx, userID, name, version)
	if err != nil {
		return TemplateRecord{}, err
	}
	if item == nil {
		return TemplateRecord{}, apperr.NotFound("template version", fmt.Sprintf("%s@%d", name, version))
	}
	return templateFromModel(item)
}

func (s *PlaybookService) ListTemplates(ctx context.Context, userID uint64, purpose *string, active *bool) ([]TemplateRecord, error) {
	items, err := s.Repo.ListTemplates(ctx, repository.ListTemplatesParams{UserID: userID, Purpose: purpose, Active: active})
	if err != nil {
		return nil, err
	}
	out := make([]TemplateRecord, 0, len(items))
	for i := range items {
		rec, err := templateFromModel(&items[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ArchiveTemplate deactivates one version. Responses pinned to it stay readable.
func (s *PlaybookService) ArchiveTemplate(ctx context.Context, userID, id uint64) (TemplateRecord, error) {
	found, err := s.Repo.SetTemplateActive(ctx, userID, id, false)
	if err != nil {
		return TemplateRecord{}, err
	}
	if !found {
		return TemplateRecord{}, apperr.NotFound("template", id)
	}
	return s.GetTemplate(ctx, userID, id)
}

// CloneTemplate copies a version under a new name at version 1.
func (s *PlaybookService) CloneTemplate(ctx context.Context, userID, id uint64, name string, purpose *playbook.Purpose) (TemplateRecord, error) {
	src, err := s.GetTemplate(ctx, userID, id)
	if err != nil {
		return TemplateRecord{}, err
	}
	t := src.Template.Clone()
	t.Name = strings.TrimSpace(name)
	if t.Name == "" {
		t.Name = src.Name + " (Copy)"
	}
	if purpose != nil {
		t.Purpose = *purpose
	}
	return s.CreateTemplate(ctx, userID, t)
}

func (s *PlaybookService) ExportTemplate(ctx context.Context, userID, id uint64) ([]byte, error) {
	rec, err := s.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return playbook.EncodeYAML(rec.Template, rec.Version)
}

// ImportTemplate creates version 1 from an exported document; the document's own
// version number is informational.
func (s *PlaybookService) ImportTemplate(ctx context.Context, userID uint64, data []byte) (TemplateRecord, error) {
	doc, err := playbook.DecodeYAML(data)
	if err != nil {
		return TemplateRecord{}, err
	}
	return s.CreateTemplate(ctx, userID, doc.Template)
}

func (s *PlaybookService) ListQuickstarts() ([]playbook.Quickstart, error) {
	return playbook.Quickstarts()
}

func (s *PlaybookService) CreateFromQuickstart(ctx context.Context, userID uint64, slug string) (TemplateRecord, error) {
	q, ok, err := playbook.QuickstartBySlug(strings.TrimSpace(slug))
	if err != nil {
		return TemplateRecord{}, apperr.Computation("load quickstarts", err)
	}
	if !ok {
		return TemplateRecord{}, apperr.NotFound("quickstart", slug)
	}
	return s.CreateTemplate(ctx, userID, q.Template)
}

// EvaluateRequest is a preview: either a stored template or an inline schema.
type EvaluateRequest struct {
	TemplateID         *uint64               `json:"template_id,omitempty"`
	Schema             playbook.Schema       `json:"schema,omitempty"`
	GradeThresholds    playbook.Thresholds   `json:"grade_thresholds,omitempty"`
	RiskSchedule       playbook.RiskSchedule `json:"risk_schedule,omitempty"`
	TemplateMaxRiskPct *float64              `json:"template_max_risk_pct,omitempty"`
	AccountID          *uint64               `json:"account_id,omitempty"`
	AccountMaxRiskPct  *float64              `json:"account_max_risk_pct,omitempty"`
	IntendedRiskPct    *float64              `json:"intended_risk_pct,omitempty"`
	Values             map[string]any        `json:"values"`
}

// Evaluate scores values without persisting anything.
func (s *PlaybookService) Evaluate(ctx context.Context, userID uint64, req EvaluateRequest) (playbook.Evaluation, error) {
	ctx, span := trace.StartSpan(ctx, "playbook.evaluate")
	defer span.End()

	var tpl playbook.Template
	if req.TemplateID != nil {
		rec, err := s.GetTemplate(ctx, userID, *req.TemplateID)
		if err != nil {
			return playbook.Evaluation{}, err
		}
		tpl = rec.Template
		if req.TemplateMaxRiskPct != nil {
			tpl.TemplateMaxRiskPct = req.TemplateMaxRiskPct
		}
	} else {
		tpl = playbook.Template{
			Schema:             req.Schema,
			GradeThresholds:    req.GradeThresholds,
			RiskSchedule:       req.RiskSchedule,
			TemplateMaxRiskPct: req.TemplateMaxRiskPct,
		}
		// inline input never went through a save, so check it here
		var problems []string
		problems = append(problems, playbook.SchemaProblems(tpl.Schema)...)
		problems = append(problems, playbook.ThresholdProblems(tpl.GradeThresholds)...)
		problems = append(problems, playbook.ScheduleProblems(tpl.RiskSchedule)...)
		if err := apperr.Validation(problems...); err != nil {
			return playbook.Evaluation{}, err
		}
	}
	if req.TemplateMaxRiskPct != nil && !(*req.TemplateMaxRiskPct > 0) {
		return playbook.Evaluation{}, apperr.Validation("template_max_risk_pct must be > 0")
	}

	accountCap := req.AccountMaxRiskPct
	if accountCap == nil && req.AccountID != nil {
		acct, err := s.Repo.GetAccount(ctx, userID, *req.AccountID)
		if err != nil {
			return playbook.Evaluation{}, err
		}
		if acct == nil {
			return playbook.Evaluation{}, apperr.NotFound("account", *req.AccountID)
		}
		accountCap = acct.AccountMaxRiskPct
	}
	return s.evaluate(tpl, req.Values, accountCap, req.IntendedRiskPct)
}

func (s *PlaybookService) evaluate(t playbook.Template, values map[string]any, accountCap, intended *float64) (playbook.Evaluation, error) {
	thresholds := t.GradeThresholds
	if len(thresholds) == 0 {
		thresholds = s.DefaultThresholds
	}
	schedule := t.RiskSchedule
	if len(schedule) == 0 {
		schedule = s.DefaultSchedule
	}
	return playbook.Evaluate(playbook.EvaluateInput{
		Schema:             t.Schema,
		Values:             values,
		Thresholds:         thresholds,
		Schedule:           schedule,
		TemplateMaxRiskPct: t.TemplateMaxRiskPct,
		AccountMaxRiskPct:  accountCap,
		IntendedRiskPct:    intended,
	})
}

// Subject names what a response is about: a trade, or an instrument on a journal day.
type Subject struct {
	TradeID     *uint64 `json:"trade_id,omitempty"`
	JournalDate string  `json:"journal_date,omitempty"`
	Symbol      string  `json:"symbol,omitempty"`
}

type SaveResponseInput struct {
	TemplateID      uint64            `json:"template_id"`
	TemplateVersion int               `json:"template_version,omitempty"`
	Subject         Subject           `json:"subject"`
	Values          map[string]any    `json:"values"`
	Comments        map[string]string `json:"comments,omitempty"`
	IntendedRiskPct *float64          `json:"intended_risk_pct,omitempty"`
	AccountID       *uint64           `json:"account_id,omitempty"`
}

type SaveResult struct {
	Response   ResponseRecord      `json:"response"`
	Evaluation playbook.Evaluation `json:"evaluation"`
	BreachID   *uint64             `json:"breach_id,omitempty"`
	Warnings   []string            `json:"warnings"`
}

// SaveResponse pins the template version, evaluates, and appends a response row.
// An exceeded cap is always written to the ledger; in block mode the response is
// rejected with a BlockedError after the breach is recorded.
func (s *PlaybookService) SaveResponse(ctx context.Context, userID uint64, in SaveResponseInput) (SaveResult, error) {
	ctx, span := trace.StartSpan(ctx, "playbook.save_response")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", int64(userID)), attribute.Int64("template_id", int64(in.TemplateID)))

	tpl, err := s.pinTemplate(ctx, userID, in.TemplateID, in.TemplateVersion)
	if err != nil {
		return SaveResult{}, err
	}

	item := &models.PlaybookResponse{
		UserID:          userID,
		TemplateID:      tpl.ID,
		TemplateVersion: tpl.Version,
	}
	var trade *models.Trade
	switch sub := in.Subject; {
	case sub.TradeID != nil && (sub.JournalDate != "" || sub.Symbol != ""):
		return SaveResult{}, apperr.Validation("subject must be a trade or a journal instrument, not both")
	case sub.TradeID != nil:
		if trade, err = s.Repo.GetTrade(ctx, userID, *sub.TradeID); err != nil {
			return SaveResult{}, err
		}
		if trade == nil {
			return SaveResult{}, apperr.NotFound("trade", *sub.TradeID)
		}
		item.EntryType = models.EntryTypeTrade
		item.TradeID = ptrTo(trade.ID)
		item.Symbol = ptrTo(trade.Symbol)
		item.AccountID = trade.AccountID
	default:
		date, symbol, err := normalizeJournalSubject(sub.JournalDate, sub.Symbol)
		if err != nil {
			return SaveResult{}, err
		}
		item.EntryType = models.EntryTypeJournal
		item.JournalDate = &date
		item.Symbol = &symbol
	}

	if err := commentProblems(tpl.Schema, in.Comments); err != nil {
		return SaveResult{}, err
	}

	if in.AccountID != nil {
		item.AccountID = in.AccountID
	}
	var accountCap *float64
	if item.AccountID != nil {
		acct, err := s.Repo.GetAccount(ctx, userID, *item.AccountID)
		if err != nil {
			return SaveResult{}, err
		}
		if acct == nil {
			return SaveResult{}, apperr.NotFound("account", *item.AccountID)
		}
		accountCap = acct.AccountMaxRiskPct
	}

	values := in.Values
	if values == nil {
		values = map[string]any{}
	}
	intended := in.IntendedRiskPct
	if intended == nil {
		intended = playbook.IntendedFromValues(values)
	}
	eval, err := s.evaluate(tpl.Template, values, accountCap, intended)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error("playbook evaluation failed on a stored template",
				zap.Uint64("template_id", tpl.ID), zap.Int("version", tpl.Version), zap.Error(err))
		}
		return SaveResult{}, err
	}

	item.ComplianceScore = eval.ComplianceScore
	item.Grade = string(eval.Grade)
	item.IntendedRiskPct = intended
	item.RiskCapPct = eval.RiskCapPct
	item.Exceeded = eval.Exceeded
	if item.Values, err = toJSON(values); err != nil {
		return SaveResult{}, apperr.Validation(fmt.Sprintf("values are not serializable: %v", err))
	}
	comments := in.Comments
	if comments == nil {
		comments = map[string]string{}
	}
	if item.Comments, err = toJSON(comments); err != nil {
		return SaveResult{}, apperr.Computation("encode comments", err)
	}
	if item.CapBreakdown, err = toJSON(eval.CapBreakdown); err != nil {
		return SaveResult{}, apperr.Computation("encode cap breakdown", err)
	}

	result := SaveResult{Evaluation: eval, Warnings: []string{}}
	mode := models.EnforcementOff
	if eval.Exceeded && s.Settings != nil {
		rules, err := s.Settings.Rules(ctx, userID)
		if err != nil {
			return SaveResult{}, err
		}
		mode = rules.EnforcementMode
	}

	if eval.Exceeded && mode == models.EnforcementBlock {
		// nothing is stored for the response; the breach still is
		item.CreatedAt = time.Now().UTC()
		if _, err := s.recordBreach(ctx, userID, item, trade); err != nil {
			return SaveResult{}, err
		}
		return SaveResult{}, &apperr.BlockedError{Rule: "risk_cap_exceeded", Message: eval.Messages[0]}
	}

	if err := s.Repo.InsertResponse(ctx, item); err != nil {
		return SaveResult{}, err
	}
	if result.Response, err = responseFromModel(item); err != nil {
		return SaveResult{}, apperr.Computation("decode stored response", err)
	}

	if eval.Exceeded {
		b, err := s.recordBreach(ctx, userID, item, trade)
		if err != nil {
			// the response is stored; the next scan replays it into the ledger
			if s.Logger != nil {
				s.Logger.Warn("risk cap breach not recorded", zap.Uint64("response_id", item.ID), zap.Error(err))
			}
		} else if b != nil {
			result.BreachID = ptrTo(b.ID)
		}
		if mode == models.EnforcementWarn {
			result.Warnings = append(result.Warnings, eval.Messages[0])
		}
	}
	return result, nil
}

func (s *PlaybookService) recordBreach(ctx context.Context, userID uint64, item *models.PlaybookResponse, trade *models.Trade) (*models.Breach, error) {
	if s.Guardrail == nil {
		return nil, nil
	}
	return s.Guardrail.RecordRiskCap(ctx, userID, violationFor(item, trade))
}

// pinTemplate resolves the template row a response is scored against. A version
// other than the row's own selects that version of the same name.
func (s *PlaybookService) pinTemplate(ctx context.Context, userID, templateID uint64, version int) (TemplateRecord, error) {
	if templateID == 0 {
		return TemplateRecord{}, apperr.Validation("template_id is required")
	}
	rec, err := s.GetTemplate(ctx, userID, templateID)
	if err != nil {
		return TemplateRecord{}, err
	}
	if version == 0 || version == rec.Version {
		return rec, nil
	}
	if version < 0 {
		return TemplateRecord{}, apperr.Validation("template_version must be positive")
	}
	return s.GetTemplateVersion(ctx, userID, rec.Name, version)
}

func normalizeJournalSubject(date, symbol string) (string, string, error) {
	date = strings.TrimSpace(date)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	var problems []string
	if date == "" {
		problems = append(problems, "subject needs a trade_id or a journal_date")
	} else if _, err := time.Parse(time.DateOnly, date); err != nil {
		problems = append(problems, fmt.Sprintf("journal_date %q is not YYYY-MM-DD", date))
	}
	if symbol == "" {
		problems = append(problems, "journal subject needs a symbol")
	}
	if err := apperr.Validation(problems...); err != nil {
		return "", "", err
	}
	return date, symbol, nil
}

// commentProblems accepts comments only on fields that allow them.
func commentProblems(schema playbook.Schema, comments map[string]string) error {
	if len(comments) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(schema))
	for _, f := range schema {
		allowed[f.Key] = f.AllowComment
	}
	var problems []string
	for key := range comments {
		ok, known := allowed[key]
		switch {
		case !known:
			problems = append(problems, fmt.Sprintf("comment for unknown field %q", key))
		case !ok:
			problems = append(problems, fmt.Sprintf("field %q does not allow comments", key))
		}
	}
	slices.Sort(problems)
	return apperr.Validation(problems...)
}

func (s *PlaybookService) ListTradeResponses(ctx context.Context, userID, tradeID uint64) ([]ResponseRecord, error) {
	items, err := s.Repo.ListResponses(ctx, repository.ListResponsesParams{UserID: userID, TradeID: &tradeID})
	if err != nil {
		return nil, err
	}
	return responsesFromModels(items)
}

func (s *PlaybookService) ListJournalResponses(ctx context.Context, userID uint64, date, symbol string) ([]ResponseRecord, error) {
	date, symbol, err := normalizeJournalSubject(date, symbol)
	if err != nil {
		return nil, err
	}
	items, err := s.Repo.ListResponses(ctx, repository.ListResponsesParams{UserID: userID, JournalDate: &date, Symbol: &symbol})
	if err != nil {
		return nil, err
	}
	return responsesFromModels(items)
}

func (s *PlaybookService) LatestJournalResponse(ctx context.Context, userID uint64, date, symbol string) (ResponseRecord, error) {
	date, symbol, err := normalizeJournalSubject(date, symbol)
	if err != nil {
		return ResponseRecord{}, err
	}
	items, err := s.Repo.ListResponses(ctx, repository.ListResponsesParams{UserID: userID, JournalDate: &date, Symbol: &symbol, Limit: 1})
	if err != nil {
		return ResponseRecord{}, err
	}
	if len(items) == 0 {
		return ResponseRecord{}, apperr.NotFound("playbook response", date+" "+symbol)
	}
	return responseFromModel(&items[0])
}

// LatestGrades maps each trade id to the grade of its newest response. Trades
// without a response are absent.
func (s *PlaybookService) LatestGrades(ctx context.Context, userID uint64, tradeIDs []uint64) (map[uint64]playbook.Grade, error) {
	items, err := s.Repo.LatestResponsesByTrade(ctx, userID, tradeIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]playbook.Grade, len(items))
	for _, r := range items {
		if r.TradeID != nil {
			out[*r.TradeID] = playbook.Grade(r.Grade)
		}
	}
	return out, nil
}
