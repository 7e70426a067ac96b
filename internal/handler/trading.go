package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rmcmillan34/edge-journal/internal/service"
)

// TradingHandler is the account and trade intake the guardrail scan reads from.
type TradingHandler struct {
	Accounts *service.AccountService
	Trades   *service.TradeService
	Location *time.Location
}

func (h *TradingHandler) Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.GET("/accounts", h.listAccounts)
	v1.POST("/accounts", h.createAccount)
	v1.GET("/accounts/:id/risk-cap", h.getRiskCap)
	v1.PUT("/accounts/:id/risk-cap", h.putRiskCap)
	v1.GET("/trades", h.listTrades)
	v1.POST("/trades", h.recordTrade)
}

func (h *TradingHandler) listAccounts(c *gin.Context) {
	items, err := h.Accounts.List(c.Request.Context(), userID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	out := make([]accountDTO, 0, len(items))
	for i := range items {
		out = append(out, toAccountDTO(&items[i]))
	}
	Ok(c, out, nil)
}

type createAccountRequest struct {
	Name              string   `json:"name"`
	AccountMaxRiskPct *float64 `json:"account_max_risk_pct"`
}

func (h *TradingHandler) createAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Accounts.Create(c.Request.Context(), userID(c), req.Name, req.AccountMaxRiskPct)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, toAccountDTO(item))
}

func (h *TradingHandler) getRiskCap(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	pct, err := h.Accounts.RiskCap(c.Request.Context(), userID(c), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"account_id": id, "account_max_risk_pct": pct}, nil)
}

type riskCapRequest struct {
	AccountMaxRiskPct *float64 `json:"account_max_risk_pct"`
}

// @Summary Set or clear an account risk cap
// @Tags accounts
// @Accept json
// @Param id path int true "account id"
// @Param body body riskCapRequest true "null clears the cap"
// @Success 200 {object} apiResponse
// @Router /api/v1/accounts/{id}/risk-cap [put]
func (h *TradingHandler) putRiskCap(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req riskCapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Accounts.SetRiskCap(c.Request.Context(), userID(c), id, req.AccountMaxRiskPct)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, toAccountDTO(item), nil)
}

func (h *TradingHandler) listTrades(c *gin.Context) {
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	from, err := dayQuery(c, "from", loc)
	if err != nil {
		Fail(c, err)
		return
	}
	to, err := dayQuery(c, "to", loc)
	if err != nil {
		Fail(c, err)
		return
	}
	if to != nil {
		// to is an inclusive day
		next := to.AddDate(0, 0, 1)
		to = &next
	}
	limit := intQuery(c, "limit", 200)
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	offset := intQuery(c, "offset", 0)
	items, err := h.Trades.List(c.Request.Context(), userID(c), uint64QueryPtr(c, "account_id"), from, to, limit, offset)
	if err != nil {
		Fail(c, err)
		return
	}
	out := make([]tradeDTO, 0, len(items))
	for i := range items {
		out = append(out, toTradeDTO(&items[i]))
	}
	Ok(c, out, paginationMeta(limit, offset, len(out)))
}

type recordTradeRequest struct {
	AccountID *uint64         `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"`
	NetPnL    decimal.Decimal `json:"net_pnl"`
	OpenedAt  *time.Time      `json:"opened_at"`
	ClosedAt  time.Time       `json:"closed_at"`
	Notes     string          `json:"notes"`
}

// @Summary Record a closed trade
// @Description Checks the trading gate for the close day first; block mode with an unacknowledged streak breach answers 403.
// @Tags trades
// @Accept json
// @Param body body recordTradeRequest true "trade"
// @Success 201 {object} apiResponse
// @Failure 403 {object} apiResponse
// @Router /api/v1/trades [post]
func (h *TradingHandler) recordTrade(c *gin.Context) {
	var req recordTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	res, err := h.Trades.Record(c.Request.Context(), userID(c), service.TradeInput{
		AccountID: req.AccountID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		NetPnL:    req.NetPnL,
		OpenedAt:  req.OpenedAt,
		ClosedAt:  req.ClosedAt,
		Notes:     req.Notes,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, gin.H{
		"trade":    toTradeDTO(res.Trade),
		"gate":     res.Gate,
		"warnings": res.Warnings,
		"scan":     res.Scan,
	})
}
