package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
	"github.com/rmcmillan34/edge-journal/internal/guardrail"
	"github.com/rmcmillan34/edge-journal/internal/notify"
	"github.com/rmcmillan34/edge-journal/internal/service"
)

const (
	streamBuffer       = 16
	streamWriteTimeout = 5 * time.Second
	streamPingEvery    = 30 * time.Second
)

// GuardrailHandler exposes the breach ledger, manual scans, the trading gate and
// the live breach stream.
type GuardrailHandler struct {
	Ledger    *service.BreachLedger
	Guardrail *service.GuardrailService
	Hub       *notify.Hub
	Logger    *zap.Logger
	Location  *time.Location

	// OriginPatterns are the cross-origin hosts allowed to open the stream.
	OriginPatterns []string
}

func (h *GuardrailHandler) Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.GET("/breaches", h.listBreaches)
	v1.GET("/breaches/stream", h.stream)
	v1.POST("/breaches/:id/ack", h.acknowledge)
	v1.POST("/guardrails/scan", h.scan)
	v1.GET("/guardrails/gate", h.gate)
}

func (h *GuardrailHandler) location() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

// @Summary List breaches
// @Tags guardrails
// @Param start query string false "first day, YYYY-MM-DD"
// @Param end query string false "last day (inclusive), YYYY-MM-DD"
// @Param scope query string false "comma separated: day,week,month,trade"
// @Param rule_key query string false "rule key"
// @Param acknowledged query bool false "acknowledgment state"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/breaches [get]
func (h *GuardrailHandler) listBreaches(c *gin.Context) {
	loc := h.location()
	start, err := dayQuery(c, "start", loc)
	if err != nil {
		Fail(c, err)
		return
	}
	end, err := dayQuery(c, "end", loc)
	if err != nil {
		Fail(c, err)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	rk := ""
	if v := strQueryPtr(c, "rule_key"); v != nil {
		rk = *v
	}
	items, err := h.Ledger.List(c.Request.Context(), userID(c), service.BreachFilter{
		Start:        start,
		End:          end,
		Scopes:       csvQuery(c, "scope"),
		RuleKey:      rk,
		Acknowledged: boolQueryPtr(c, "acknowledged"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

// @Summary Acknowledge a breach
// @Tags guardrails
// @Param id path int true "breach id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/breaches/{id}/ack [post]
func (h *GuardrailHandler) acknowledge(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rec, err := h.Ledger.Acknowledge(c.Request.Context(), userID(c), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, rec, nil)
}

type scanRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// @Summary Run a guardrail scan
// @Tags guardrails
// @Accept json
// @Param body body scanRequest true "inclusive day range"
// @Success 200 {object} apiResponse
// @Router /api/v1/guardrails/scan [post]
func (h *GuardrailHandler) scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	loc := h.location()
	var problems []string
	from, err := guardrail.ParseDay(strings.TrimSpace(req.From), loc)
	if err != nil {
		problems = append(problems, "from must be YYYY-MM-DD")
	}
	to, err := guardrail.ParseDay(strings.TrimSpace(req.To), loc)
	if err != nil {
		problems = append(problems, "to must be YYYY-MM-DD")
	}
	if err := apperr.Validation(problems...); err != nil {
		Fail(c, err)
		return
	}
	report, err := h.Guardrail.RunScan(c.Request.Context(), userID(c), guardrail.DateRange{From: from, To: to})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, report, map[string]any{"partial": len(report.Failures) > 0})
}

// @Summary Trading gate for a day
// @Tags guardrails
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} apiResponse
// @Router /api/v1/guardrails/gate [get]
func (h *GuardrailHandler) gate(c *gin.Context) {
	day, err := dayQuery(c, "date", h.location())
	if err != nil {
		Fail(c, err)
		return
	}
	at := time.Now()
	if day != nil {
		at = *day
	}
	decision, err := h.Guardrail.Gate(c.Request.Context(), userID(c), at)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, decision, nil)
}

// stream upgrades to a websocket and forwards the caller's breach alerts as JSON
// until either side goes away.
func (h *GuardrailHandler) stream(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusServiceUnavailable, "alert stream unavailable", nil)
		return
	}
	uid := userID(c)
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		// Accept has already written the failure response
		if h.Logger != nil {
			h.Logger.Debug("breach stream upgrade failed", zap.Error(err))
		}
		return
	}
	defer conn.CloseNow()

	alerts, cancel := h.Hub.Subscribe(uid, streamBuffer)
	defer cancel()
	// the client never sends; CloseRead handles control frames and cancels on close
	ctx := conn.CloseRead(c.Request.Context())

	if h.Logger != nil {
		h.Logger.Info("breach stream opened", zap.Uint64("user_id", uid))
	}
	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closed(uid, ctx.Err())
			return
		case alert, ok := <-alerts:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			if err := h.write(ctx, conn, alert); err != nil {
				h.closed(uid, err)
				return
			}
		case <-ticker.C:
			pingCtx, done := context.WithTimeout(ctx, streamWriteTimeout)
			err := conn.Ping(pingCtx)
			done()
			if err != nil {
				h.closed(uid, err)
				return
			}
		}
	}
}

func (h *GuardrailHandler) write(ctx context.Context, conn *websocket.Conn, alert notify.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, alert)
}

func (h *GuardrailHandler) closed(uid uint64, err error) {
	if h.Logger == nil {
		return
	}
	if err == nil || errors.Is(err, context.Canceled) || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		h.Logger.Info("breach stream closed", zap.Uint64("user_id", uid))
		return
	}
	h.Logger.Debug("breach stream ended", zap.Uint64("user_id", uid), zap.Error(err))
}
