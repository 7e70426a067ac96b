package handler

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rmcmillan34/edge-journal/internal/service"
)

type SettingsHandler struct {
	Rules    *service.SettingsService
	Switches *service.SystemSettingsService
}

func (h *SettingsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/settings")
	g.GET("/trading-rules", h.getRules)
	g.PUT("/trading-rules", h.putRules)
	g.GET("/switches", h.listSwitches)
	g.GET("/switches/:name", h.getSwitch)
	g.PUT("/switches/:name", h.putSwitch)
}

// @Summary Get trading rules
// @Description Stored rules, or the configured defaults with stored=false.
// @Tags settings
// @Success 200 {object} apiResponse
// @Router /api/v1/settings/trading-rules [get]
func (h *SettingsHandler) getRules(c *gin.Context) {
	rules, err := h.Rules.Rules(c.Request.Context(), userID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, rules, nil)
}

// @Summary Replace trading rules
// @Tags settings
// @Accept json
// @Param body body service.TradingRules true "rules; a threshold of 0 disables the rule"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/v1/settings/trading-rules [put]
func (h *SettingsHandler) putRules(c *gin.Context) {
	var req service.TradingRules
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	rules, err := h.Rules.PutRules(c.Request.Context(), userID(c), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, rules, nil)
}

func (h *SettingsHandler) listSwitches(c *gin.Context) {
	switches := h.Switches.Switches(c.Request.Context())
	keys := make([]string, 0, len(switches))
	for key := range switches {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		out = append(out, map[string]any{
			"name":    strings.TrimPrefix(key, "feature."),
			"key":     key,
			"enabled": switches[key],
		})
	}
	Ok(c, out, nil)
}

func (h *SettingsHandler) switchKey(c *gin.Context) (string, bool) {
	name := strings.TrimSpace(c.Param("name"))
	key := "feature." + name
	if _, known := service.DefaultFeatureSwitches()[key]; !known {
		Error(c, http.StatusNotFound, "unknown switch", nil)
		return "", false
	}
	return key, true
}

func (h *SettingsHandler) getSwitch(c *gin.Context) {
	key, ok := h.switchKey(c)
	if !ok {
		return
	}
	fallback := service.DefaultFeatureSwitches()[key]
	Ok(c, map[string]any{
		"name":    strings.TrimPrefix(key, "feature."),
		"key":     key,
		"enabled": h.Switches.IsEnabled(c.Request.Context(), key, fallback),
	}, nil)
}

type putSwitchRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *SettingsHandler) putSwitch(c *gin.Context) {
	key, ok := h.switchKey(c)
	if !ok {
		return
	}
	var req putSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Switches.SetEnabled(c.Request.Context(), key, req.Enabled); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, map[string]any{
		"name":    strings.TrimPrefix(key, "feature."),
		"key":     key,
		"enabled": req.Enabled,
	}, nil)
}
