package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rmcmillan34/edge-journal/internal/models"
)

type accountDTO struct {
	ID                uint64    `json:"id"`
	Name              string    `json:"name"`
	AccountMaxRiskPct *float64  `json:"account_max_risk_pct"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toAccountDTO(a *models.Account) accountDTO {
	return accountDTO{
		ID:                a.ID,
		Name:              a.Name,
		AccountMaxRiskPct: a.AccountMaxRiskPct,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

type tradeDTO struct {
	ID        uint64          `json:"id"`
	AccountID *uint64         `json:"account_id,omitempty"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side,omitempty"`
	NetPnL    decimal.Decimal `json:"net_pnl"`
	OpenedAt  *time.Time      `json:"opened_at,omitempty"`
	ClosedAt  time.Time       `json:"closed_at"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func toTradeDTO(t *models.Trade) tradeDTO {
	return tradeDTO{
		ID:        t.ID,
		AccountID: t.AccountID,
		Symbol:    t.Symbol,
		Side:      t.Side,
		NetPnL:    t.NetPnL,
		OpenedAt:  t.OpenedAt,
		ClosedAt:  t.ClosedAt,
		Notes:     t.Notes,
		CreatedAt: t.CreatedAt,
	}
}

type evidenceDTO struct {
	ID         uint64    `json:"id"`
	ResponseID uint64    `json:"response_id"`
	FieldKey   string    `json:"field_key"`
	SourceKind string    `json:"source_kind"`
	SourceID   *uint64   `json:"source_id,omitempty"`
	URL        *string   `json:"url,omitempty"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toEvidenceDTO(e *models.PlaybookEvidence) evidenceDTO {
	return evidenceDTO{
		ID:         e.ID,
		ResponseID: e.ResponseID,
		FieldKey:   e.FieldKey,
		SourceKind: e.SourceKind,
		SourceID:   e.SourceID,
		URL:        e.URL,
		Note:       e.Note,
		CreatedAt:  e.CreatedAt,
	}
}
