package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
	"github.com/rmcmillan34/edge-journal/internal/guardrail"
	"github.com/rmcmillan34/edge-journal/internal/models"
	"github.com/rmcmillan34/edge-journal/internal/notify"
	"github.com/rmcmillan34/edge-journal/internal/repository"
	"github.com/rmcmillan34/edge-journal/internal/trace"
)

// GuardrailService turns trade history and exceeded responses into ledger rows and
// answers whether trading is currently allowed.
type GuardrailService struct {
	Repo     repository.Repository
	Settings *SettingsService
	Switches *SystemSettingsService
	Notifier notify.Publisher
	Logger   *zap.Logger

	Location     *time.Location
	LookbackDays int
	ScanTimeout  time.Duration
	Now          func() time.Time
}

type UnitFailure struct {
	Unit  string `json:"unit"`
	Error string `json:"error"`
}

type ScanReport struct {
	RunID    string        `json:"run_id"`
	UserID   uint64        `json:"user_id"`
	From     string        `json:"from"`
	To       string        `json:"to"`
	Trades   int           `json:"trades"`
	Days     int           `json:"days"`
	Findings int           `json:"findings"`
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Failures []UnitFailure `json:"failures"`

	errs []error
}

// Err joins the per-unit failures; nil when every unit succeeded.
func (r ScanReport) Err() error {
	return errors.Join(r.errs...)
}

func (r *ScanReport) fail(unit string, err error) {
	r.Failures = append(r.Failures, UnitFailure{Unit: unit, Error: err.Error()})
	r.errs = append(r.errs, fmt.Errorf("%s: %w", unit, err))
}

func (s *GuardrailService) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *GuardrailService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RunScan evaluates every streak rule over the whole months touching r and the
// whole weeks touching those months, replays exceeded responses in that window
// into risk-cap breaches and upserts the results. A failing unit is reported and the scan continues.
func (s *GuardrailService) RunScan(ctx context.Context, userID uint64, r guardrail.DateRange) (ScanReport, error) {
	if r.From.IsZero() || r.To.IsZero() {
		return ScanReport{}, apperr.Validation("from and to are required")
	}
	if r.To.Before(r.From) {
		return ScanReport{}, apperr.Validation("to must not be before from")
	}
	ctx, span := trace.StartSpan(ctx, "guardrail.scan")
	defer span.End()

	loc := s.location()
	window := r.Expand(loc)
	from, to := window.Bounds(loc)
	report := ScanReport{
		RunID:    ulid.Make().String(),
		UserID:   userID,
		From:     guardrail.DayID(guardrail.StartOfDay(r.From, loc)),
		To:       guardrail.DayID(guardrail.StartOfDay(r.To, loc)),
		Failures: []UnitFailure{},
	}
	span.SetAttributes(
		attribute.Int64("user_id", int64(userID)),
		attribute.String("run_id", report.RunID),
		attribute.String("window", guardrail.DayID(from)+".."+guardrail.DayID(to)),
	)

	rules, err := s.Settings.Rules(ctx, userID)
	if err != nil {
		return report, fmt.Errorf("load trading rules: %w", err)
	}
	asc := true
	trades, err := s.Repo.ListTrades(ctx, repository.ListTradesParams{
		UserID:  userID,
		Since:   &from,
		Until:   &to,
		OrderBy: "closed_at",
		Asc:     &asc,
	})
	if err != nil {
		return report, fmt.Errorf("load trades: %w", err)
	}
	report.Trades = len(trades)

	series := make([]guardrail.Trade, 0, len(trades))
	byID := make(map[uint64]*models.Trade, len(trades))
	for i := range trades {
		t := &trades[i]
		byID[t.ID] = t
		series = append(series, guardrail.Trade{ID: t.ID, Symbol: t.Symbol, NetPnL: t.NetPnL, ClosedAt: t.ClosedAt})
	}
	days := guardrail.GroupDays(series, loc)
	report.Days = len(days)
	streak := rules.Streak()

	var created []*models.Breach
	for _, d := range days {
		if b := s.scanUnit(ctx, &report, from, to, "day "+d.ID, func() *guardrail.Finding {
			return guardrail.EvaluateDay(d, streak.MaxLossesInRowDay)
		}); b != nil {
			created = append(created, b)
		}
	}
	for _, w := range guardrail.GroupWeeks(days) {
		if b := s.scanUnit(ctx, &report, from, to, "week "+w.ID, func() *guardrail.Finding {
			return guardrail.EvaluateWeek(w, streak.MaxLosingDaysInRowWeek)
		}); b != nil {
			created = append(created, b)
		}
	}
	for _, m := range guardrail.GroupMonths(days) {
		if b := s.scanUnit(ctx, &report, from, to, "month "+m.ID, func() *guardrail.Finding {
			return guardrail.EvaluateMonth(m, streak.MaxLosingWeeksInRowMonth)
		}); b != nil {
			created = append(created, b)
		}
	}

	created = append(created, s.replayRiskCaps(ctx, &report, userID, from, to, byID)...)

	if rules.AlertsEnabled {
		for _, b := range created {
			s.alert(ctx, b)
		}
	}

	if s.Logger != nil {
		fields := []zap.Field{
			zap.String("run_id", report.RunID),
			zap.Uint64("user_id", userID),
			zap.String("from", report.From),
			zap.String("to", report.To),
			zap.Int("trades", report.Trades),
			zap.Int("findings", report.Findings),
			zap.Int("created", report.Created),
			zap.Int("updated", report.Updated),
		}
		if len(report.Failures) > 0 {
			s.Logger.Warn("guardrail scan finished with failures", append(fields, zap.Error(report.Err()))...)
		} else {
			s.Logger.Info("guardrail scan finished", fields...)
		}
	}
	return report, nil
}

// scanUnit evaluates and records one period. Periods not wholly inside [from, to)
// are skipped so a partial view never overwrites a stored breach. It returns the
// breach when a new row was created.
func (s *GuardrailService) scanUnit(ctx context.Context, report *ScanReport, from, to time.Time, unit string, eval func() *guardrail.Finding) (out *models.Breach) {
	defer func() {
		if p := recover(); p != nil {
			report.fail(unit, apperr.Computation("evaluate "+unit, fmt.Errorf("panic: %v", p)))
			out = nil
		}
	}()
	f := eval()
	if f == nil || !f.Within(from, to) {
		return nil
	}
	report.Findings++
	b, isNew, err := s.record(ctx, report.UserID, *f, report.RunID, nil)
	if err != nil {
		report.fail(unit, err)
		return nil
	}
	if isNew {
		report.Created++
		return b
	}
	report.Updated++
	return nil
}

func (s *GuardrailService) replayRiskCaps(ctx context.Context, report *ScanReport, userID uint64, from, to time.Time, trades map[uint64]*models.Trade) []*models.Breach {
	const page = 500
	exceeded := true
	asc := true
	var created []*models.Breach
	for offset := 0; ; offset += page {
		items, err := s.Repo.ListResponses(ctx, repository.ListResponsesParams{
			UserID:   userID,
			Exceeded: &exceeded,
			Since:    &from,
			Until:    &to,
			OrderBy:  "created_at",
			Asc:      &asc,
			Limit:    page,
			Offset:   offset,
		})
		if err != nil {
			report.fail("risk caps", err)
			return created
		}
		for i := range items {
			resp := &items[i]
			unit := fmt.Sprintf("response %d", resp.ID)
			var trade *models.Trade
			if resp.TradeID != nil {
				if trade = trades[*resp.TradeID]; trade == nil {
					if trade, err = s.Repo.GetTrade(ctx, userID, *resp.TradeID); err != nil {
						report.fail(unit, err)
						continue
					}
				}
			}
			report.Findings++
			b, isNew, err := s.recordRiskCap(ctx, userID, violationFor(resp, trade), report.RunID)
			if err != nil {
				report.fail(unit, err)
				continue
			}
			if isNew {
				report.Created++
				created = append(created, b)
			} else {
				report.Updated++
			}
		}
		if len(items) < page {
			return created
		}
	}
}

// violationFor keys a trade response by the trade's close day and a journal response
// by its journal date, so save-time and scan-time recording hit the same row.
func violationFor(resp *models.PlaybookResponse, trade *models.Trade) guardrail.RiskCapViolation {
	v := guardrail.RiskCapViolation{
		TradeID:    resp.TradeID,
		AccountID:  resp.AccountID,
		Grade:      resp.Grade,
		ResponseID: resp.ID,
		At:         resp.CreatedAt,
	}
	if resp.IntendedRiskPct != nil {
		v.IntendedPct = *resp.IntendedRiskPct
	}
	if resp.RiskCapPct != nil {
		v.CapPct = *resp.RiskCapPct
	}
	if resp.JournalDate != nil {
		v.JournalDate = *resp.JournalDate
	}
	if resp.Symbol != nil {
		v.Symbol = *resp.Symbol
	}
	if trade != nil {
		v.At = trade.ClosedAt
		v.Symbol = trade.Symbol
		if v.AccountID == nil {
			v.AccountID = trade.AccountID
		}
	}
	return v
}

// RecordRiskCap writes the risk_cap_exceeded breach for an exceeded response and
// alerts on first sight.
func (s *GuardrailService) RecordRiskCap(ctx context.Context, userID uint64, v guardrail.RiskCapViolation) (*models.Breach, error) {
	b, isNew, err := s.recordRiskCap(ctx, userID, v, "")
	if err != nil {
		return nil, err
	}
	if isNew {
		rules, err := s.Settings.Rules(ctx, userID)
		if err == nil && rules.AlertsEnabled {
			s.alert(ctx, b)
		}
	}
	return b, nil
}

func (s *GuardrailService) recordRiskCap(ctx context.Context, userID uint64, v guardrail.RiskCapViolation, runID string) (*models.Breach, bool, error) {
	return s.record(ctx, userID, guardrail.RiskCapFinding(v, s.location()), runID, v.AccountID)
}

func (s *GuardrailService) record(ctx context.Context, userID uint64, f guardrail.Finding, runID string, accountID *uint64) (*models.Breach, bool, error) {
	details, err := toJSON(f.Details)
	if err != nil {
		return nil, false, apperr.Computation("encode breach details", err)
	}
	item := &models.Breach{
		UserID:      userID,
		RuleKey:     string(f.RuleKey),
		Scope:       string(f.Scope),
		DateOrWeek:  f.Period,
		Subject:     f.Subject,
		PeriodStart: f.PeriodStart,
		PeriodEnd:   f.PeriodEnd,
		AccountID:   accountID,
		Details:     details,
		ScanRunID:   runID,
	}
	isNew, err := s.Repo.UpsertBreach(ctx, item)
	if err != nil {
		return nil, false, err
	}
	return item, isNew, nil
}

func (s *GuardrailService) alert(ctx context.Context, b *models.Breach) {
	if s.Notifier == nil || b == nil {
		return
	}
	if s.Switches != nil && !s.Switches.IsEnabled(ctx, FeatureBreachAlerts, true) {
		return
	}
	rec := breachFromModel(b)
	err := s.Notifier.Publish(ctx, notify.Alert{
		BreachID:   b.ID,
		UserID:     b.UserID,
		RuleKey:    b.RuleKey,
		Scope:      b.Scope,
		DateOrWeek: b.DateOrWeek,
		Subject:    b.Subject,
		Details:    rec.Details,
		CreatedAt:  b.CreatedAt,
	})
	if err != nil && s.Logger != nil {
		s.Logger.Warn("breach alert publish failed", zap.Uint64("breach_id", b.ID), zap.Error(err))
	}
}

type GateDecision struct {
	Date     string         `json:"date"`
	Mode     string         `json:"mode"`
	Allowed  bool           `json:"allowed"`
	Warnings []string       `json:"warnings"`
	Breaches []BreachRecord `json:"breaches"`
}

// Err is a BlockedError when the decision denies trading.
func (d GateDecision) Err() error {
	if d.Allowed {
		return nil
	}
	rule := "guardrail"
	if len(d.Breaches) > 0 {
		rule = d.Breaches[0].RuleKey
	}
	return &apperr.BlockedError{Rule: rule, Message: strings.Join(d.Warnings, "; ")}
}

// Gate reports whether new trading is allowed on day. Unacknowledged streak breaches
// whose period covers the day warn or block depending on the enforcement mode.
func (s *GuardrailService) Gate(ctx context.Context, userID uint64, day time.Time) (GateDecision, error) {
	loc := s.location()
	start := guardrail.StartOfDay(day, loc)
	rules, err := s.Settings.Rules(ctx, userID)
	if err != nil {
		return GateDecision{}, err
	}
	out := GateDecision{
		Date:     guardrail.DayID(start),
		Mode:     rules.EnforcementMode,
		Allowed:  true,
		Warnings: []string{},
		Breaches: []BreachRecord{},
	}
	if rules.EnforcementMode == models.EnforcementOff {
		return out, nil
	}
	end := start.AddDate(0, 0, 1)
	unacked := false
	items, err := s.Repo.ListBreaches(ctx, repository.ListBreachesParams{
		UserID:       userID,
		Start:        &start,
		End:          &end,
		Scopes:       []string{string(guardrail.ScopeDay), string(guardrail.ScopeWeek), string(guardrail.ScopeMonth)},
		Acknowledged: &unacked,
		OrderBy:      "period_start",
	})
	if err != nil {
		return GateDecision{}, err
	}
	for i := range items {
		b := breachFromModel(&items[i])
		out.Breaches = append(out.Breaches, b)
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s breach for %s is unacknowledged", b.RuleKey, b.DateOrWeek))
	}
	if len(items) > 0 && rules.EnforcementMode == models.EnforcementBlock {
		out.Allowed = false
	}
	return out, nil
}

// ScanAll is the scheduled job: every user with stored rules is scanned over the
// lookback window ending today.
func (s *GuardrailService) ScanAll(ctx context.Context) error {
	if s.Switches != nil && !s.Switches.IsEnabled(ctx, FeatureGuardrailScan, true) {
		if s.Logger != nil {
			s.Logger.Debug("guardrail scan disabled by switch")
		}
		return nil
	}
	users, err := s.Repo.ListRuleUserIDs(ctx)
	if err != nil {
		return err
	}
	lookback := s.LookbackDays
	if lookback <= 0 {
		lookback = 45
	}
	loc := s.location()
	today := guardrail.StartOfDay(s.now(), loc)
	r := guardrail.DateRange{From: today.AddDate(0, 0, -(lookback - 1)), To: today}

	var errs []error
	for _, userID := range users {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		userCtx, cancel := ctx, context.CancelFunc(func() {})
		if s.ScanTimeout > 0 {
			userCtx, cancel = context.WithTimeout(ctx, s.ScanTimeout)
		}
		report, err := s.RunScan(userCtx, userID, r)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", userID, err))
			continue
		}
		if err := report.Err(); err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", userID, err))
		}
	}
	return errors.Join(errs...)
}
