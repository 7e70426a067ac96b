package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
	"github.com/rmcmillan34/edge-journal/internal/guardrail"
	"github.com/rmcmillan34/edge-journal/internal/models"
	"github.com/rmcmillan34/edge-journal/internal/repository"
)

type TradeInput struct {
	AccountID *uint64
	Symbol    string
	Side      string
	NetPnL    decimal.Decimal
	OpenedAt  *time.Time
	ClosedAt  time.Time
	Notes     string
}

type TradeResult struct {
	Trade    *models.Trade
	Gate     GateDecision
	Warnings []string
	Scan     *ScanReport
}

// TradeService is the trade intake that feeds the guardrail scan.
type TradeService struct {
	Repo      repository.TradingRepository
	Guardrail *GuardrailService
	Switches  *SystemSettingsService
	Logger    *zap.Logger
}

// Record stores a closed trade after checking the gate for its close day, then
// rescans that day so new streaks land in the ledger right away.
func (s *TradeService) Record(ctx context.Context, userID uint64, in TradeInput) (TradeResult, error) {
	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	in.Side = strings.ToLower(strings.TrimSpace(in.Side))
	var problems []string
	if in.Symbol == "" {
		problems = append(problems, "symbol is required")
	}
	if in.ClosedAt.IsZero() {
		problems = append(problems, "closed_at is required")
	}
	if in.OpenedAt != nil && !in.ClosedAt.IsZero() && in.OpenedAt.After(in.ClosedAt) {
		problems = append(problems, "opened_at must not be after closed_at")
	}
	switch in.Side {
	case "", "long", "short":
	default:
		problems = append(problems, "side must be long or short")
	}
	if err := apperr.Validation(problems...); err != nil {
		return TradeResult{}, err
	}
	if in.AccountID != nil {
		acct, err := s.Repo.GetAccount(ctx, userID, *in.AccountID)
		if err != nil {
			return TradeResult{}, err
		}
		if acct == nil {
			return TradeResult{}, apperr.NotFound("account", *in.AccountID)
		}
	}

	out := TradeResult{Warnings: []string{}}
	if s.Guardrail != nil {
		gate, err := s.Guardrail.Gate(ctx, userID, in.ClosedAt)
		if err != nil {
			return TradeResult{}, err
		}
		if err := gate.Err(); err != nil {
			return TradeResult{}, err
		}
		out.Gate = gate
		out.Warnings = append(out.Warnings, gate.Warnings...)
	}

	item := &models.Trade{
		UserID:    userID,
		AccountID: in.AccountID,
		Symbol:    in.Symbol,
		Side:      in.Side,
		NetPnL:    in.NetPnL,
		OpenedAt:  in.OpenedAt,
		ClosedAt:  in.ClosedAt,
		Notes:     strings.TrimSpace(in.Notes),
	}
	if err := s.Repo.CreateTrade(ctx, item); err != nil {
		return TradeResult{}, err
	}
	out.Trade = item

	if s.Guardrail != nil && (s.Switches == nil || s.Switches.IsEnabled(ctx, FeatureScanOnTrade, true)) {
		report, err := s.Guardrail.RunScan(ctx, userID, guardrail.DateRange{From: item.ClosedAt, To: item.ClosedAt})
		if err != nil {
			// the trade is stored; the scheduled scan will pick it up
			if s.Logger != nil {
				s.Logger.Warn("post-intake scan failed", zap.Uint64("trade_id", item.ID), zap.Error(err))
			}
		} else {
			out.Scan = &report
		}
	}
	return out, nil
}

func (s *TradeService) List(ctx context.Context, userID uint64, accountID *uint64, from, to *time.Time, limit, offset int) ([]models.Trade, error) {
	items, err := s.Repo.ListTrades(ctx, repository.ListTradesParams{
		UserID:    userID,
		AccountID: accountID,
		Since:     from,
		Until:     to,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Trade{}
	}
	return items, nil
}
