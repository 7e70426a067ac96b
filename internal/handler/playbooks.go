package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
	"github.com/rmcmillan34/edge-journal/internal/playbook"
	"github.com/rmcmillan34/edge-journal/internal/service"
)

// maxImportBytes bounds an uploaded template document.
const maxImportBytes = 1 << 20

type PlaybookHandler struct {
	Service *service.PlaybookService
	Logger  *zap.Logger
}

func (h *PlaybookHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/playbooks")
	g.GET("/quickstarts", h.listQuickstarts)
	g.POST("/quickstarts/:slug", h.createFromQuickstart)

	g.GET("/templates", h.listTemplates)
	g.POST("/templates", h.createTemplate)
	g.POST("/templates/import", h.importTemplate)
	g.GET("/templates/:id", h.getTemplate)
	g.PATCH("/templates/:id", h.publishVersion)
	g.DELETE("/templates/:id", h.archiveTemplate)
	g.POST("/templates/:id/clone", h.cloneTemplate)
	g.GET("/templates/:id/export", h.exportTemplate)

	g.POST("/evaluate", h.evaluate)
	g.GET("/grades", h.grades)
}

// @Summary List quickstart templates
// @Tags playbooks
// @Success 200 {object} apiResponse
// @Router /api/v1/playbooks/quickstarts [get]
func (h *PlaybookHandler) listQuickstarts(c *gin.Context) {
	items, err := h.Service.ListQuickstarts()
	if err != nil {
		Fail(c, apperr.Computation("load quickstarts", err))
		return
	}
	Ok(c, items, nil)
}

func (h *PlaybookHandler) createFromQuickstart(c *gin.Context) {
	rec, err := h.Service.CreateFromQuickstart(c.Request.Context(), userID(c), c.Param("slug"))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, rec)
}

// @Summary List template versions
// @Tags playbooks
// @Param purpose query string false "pre | in | post | generic"
// @Param active query bool false "filter on is_active"
// @Success 200 {object} apiResponse
// @Router /api/v1/playbooks/templates [get]
func (h *PlaybookHandler) listTemplates(c *gin.Context) {
	items, err := h.Service.ListTemplates(c.Request.Context(), userID(c), strQueryPtr(c, "purpose"), boolQueryPtr(c, "active"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

// @Summary Create a template (version 1)
// @Tags playbooks
// @Accept json
// @Param body body playbook.Template true "template"
// @Success 201 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v1/playbooks/templates [post]
func (h *PlaybookHandler) createTemplate(c *gin.Context) {
	var req playbook.Template
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	rec, err := h.Service.CreateTemplate(c.Request.Context(), userID(c), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, rec)
}

func (h *PlaybookHandler) getTemplate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rec, err := h.Service.GetTemplate(c.Request.Context(), userID(c), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, rec, nil)
}

// @Summary Publish a new template version
// @Description Fields left out of the body inherit from the addressed version.
// @Tags playbooks
// @Accept json
// @Param id path int true "template id"
// @Param body body service.TemplatePatch true "changes"
// @Success 201 {object} apiResponse
// @Router /api/v1/playbooks/templates/{id} [patch]
func (h *PlaybookHandler) publishVersion(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.TemplatePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	rec, err := h.Service.PublishVersion(c.Request.Context(), userID(c), id, req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, rec)
}

func (h *PlaybookHandler) archiveTemplate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rec, err := h.Service.ArchiveTemplate(c.Request.Context(), userID(c), id)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, rec, nil)
}

type cloneRequest struct {
	Name    string            `json:"name"`
	Purpose *playbook.Purpose `json:"purpose"`
}

func (h *PlaybookHandler) cloneTemplate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req cloneRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid body", nil)
			return
		}
	}
	rec, err := h.Service.CloneTemplate(c.Request.Context(), userID(c), id, req.Name, req.Purpose)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, rec)
}

// @Summary Export a template version as YAML
// @Tags playbooks
// @Produce application/yaml
// @Param id path int true "template id"
// @Success 200 {string} string
// @Router /api/v1/playbooks/templates/{id}/export [get]
func (h *PlaybookHandler) exportTemplate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.Service.ExportTemplate(c.Request.Context(), userID(c), id)
	if err != nil {
		Fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=template-%d.yaml", id))
	c.Data(http.StatusOK, "application/yaml", doc)
}

// importTemplate takes the exported YAML document as the raw request body.
func (h *PlaybookHandler) importTemplate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	raw, err := c.GetRawData()
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		Error(c, http.StatusBadRequest, "empty document", nil)
		return
	}
	rec, err := h.Service.ImportTemplate(c.Request.Context(), userID(c), raw)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, rec)
}

// @Summary Evaluate values without saving
// @Tags playbooks
// @Accept json
// @Param body body service.EvaluateRequest true "template id or inline schema, plus values"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/v1/playbooks/evaluate [post]
func (h *PlaybookHandler) evaluate(c *gin.Context) {
	var req service.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	eval, err := h.Service.Evaluate(c.Request.Context(), userID(c), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, eval, nil)
}

func (h *PlaybookHandler) grades(c *gin.Context) {
	raw := csvQuery(c, "trade_ids")
	ids := make([]uint64, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid trade_ids", nil)
			return
		}
		ids = append(ids, id)
	}
	grades, err := h.Service.LatestGrades(c.Request.Context(), userID(c), ids)
	if err != nil {
		Fail(c, err)
		return
	}
	out := make(map[string]playbook.Grade, len(grades))
	for id, g := range grades {
		out[strconv.FormatUint(id, 10)] = g
	}
	Ok(c, out, nil)
}
