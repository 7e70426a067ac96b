package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rmcmillan34/edge-journal/internal/service"
)

// ResponseHandler serves checklist responses for trades and journal instruments,
// plus their evidence.
type ResponseHandler struct {
	Service *service.PlaybookService
}

func (h *ResponseHandler) Register(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.GET("/trades/:id/playbook-responses", h.listTrade)
	v1.POST("/trades/:id/playbook-responses", h.saveTrade)

	j := v1.Group("/journal/:date/instrument/:symbol")
	j.GET("/playbook-responses", h.listJournal)
	j.POST("/playbook-responses", h.saveJournal)
	j.GET("/playbook-response", h.latestJournal)

	e := v1.Group("/playbook-responses/:id/evidence")
	e.GET("", h.listEvidence)
	e.POST("", h.addEvidence)
	e.DELETE("/:eid", h.removeEvidence)
}

type saveResponseRequest struct {
	TemplateID      uint64            `json:"template_id"`
	TemplateVersion int               `json:"template_version"`
	Values          map[string]any    `json:"values"`
	Comments        map[string]string `json:"comments"`
	IntendedRiskPct *float64          `json:"intended_risk_pct"`
	AccountID       *uint64           `json:"account_id"`
}

func (r saveResponseRequest) input(subject service.Subject) service.SaveResponseInput {
	return service.SaveResponseInput{
		TemplateID:      r.TemplateID,
		TemplateVersion: r.TemplateVersion,
		Subject:         subject,
		Values:          r.Values,
		Comments:        r.Comments,
		IntendedRiskPct: r.IntendedRiskPct,
		AccountID:       r.AccountID,
	}
}

func (h *ResponseHandler) listTrade(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	items, err := h.Service.ListTradeResponses(c.Request.Context(), userID(c), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

// @Summary Save a trade checklist response
// @Description Evaluates and appends a response pinned to the template version. In block mode an exceeded risk cap answers 403 after the breach is recorded.
// @Tags responses
// @Accept json
// @Param id path int true "trade id"
// @Param body body saveResponseRequest true "response"
// @Success 201 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 403 {object} apiResponse
// @Router /api/v1/trades/{id}/playbook-responses [post]
func (h *ResponseHandler) saveTrade(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req saveResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	h.save(c, req.input(service.Subject{TradeID: &id}))
}

func (h *ResponseHandler) listJournal(c *gin.Context) {
	items, err := h.Service.ListJournalResponses(c.Request.Context(), userID(c), c.Param("date"), c.Param("symbol"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func (h *ResponseHandler) saveJournal(c *gin.Context) {
	var req saveResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	h.save(c, req.input(service.Subject{JournalDate: c.Param("date"), Symbol: c.Param("symbol")}))
}

func (h *ResponseHandler) latestJournal(c *gin.Context) {
	rec, err := h.Service.LatestJournalResponse(c.Request.Context(), userID(c), c.Param("date"), c.Param("symbol"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, rec, nil)
}

func (h *ResponseHandler) save(c *gin.Context, in service.SaveResponseInput) {
	res, err := h.Service.SaveResponse(c.Request.Context(), userID(c), in)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, res)
}

func (h *ResponseHandler) listEvidence(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	items, err := h.Service.ListEvidence(c.Request.Context(), userID(c), id)
	if err != nil {
		Fail(c, err)
		return
	}
	out := make([]evidenceDTO, 0, len(items))
	for i := range items {
		out = append(out, toEvidenceDTO(&items[i]))
	}
	Ok(c, out, nil)
}

func (h *ResponseHandler) addEvidence(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.EvidenceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item, err := h.Service.AddEvidence(c.Request.Context(), userID(c), id, req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, toEvidenceDTO(item))
}

func (h *ResponseHandler) removeEvidence(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	eid, ok := idParam(c, "eid")
	if !ok {
		return
	}
	if err := h.Service.RemoveEvidence(c.Request.Context(), userID(c), id, eid); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"deleted": eid}, nil)
}
