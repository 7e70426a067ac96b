package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rmcmillan34/edge-journal/internal/apperr"
	"github.com/rmcmillan34/edge-journal/internal/auth"
	"github.com/rmcmillan34/edge-journal/internal/guardrail"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, apiResponse{
		Code:    0,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// Fail answers with the status apperr maps err to. Validation problems and the
// blocking rule travel in meta so clients can render them.
func Fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	var meta map[string]any
	var verr *apperr.ValidationError
	var blocked *apperr.BlockedError
	switch {
	case errors.As(err, &verr):
		meta = map[string]any{"problems": verr.Problems}
	case errors.As(err, &blocked):
		meta = map[string]any{"rule": blocked.Rule}
	}
	if id := c.GetString(requestIDKey); id != "" {
		if meta == nil {
			meta = map[string]any{}
		}
		meta["request_id"] = id
	}
	Error(c, status, err.Error(), meta)
}

func userID(c *gin.Context) uint64 {
	id, _ := auth.UserIDFromGin(c)
	return id
}

func idParam(c *gin.Context, key string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param(key)), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid "+key, nil)
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func boolQueryPtr(c *gin.Context, key string) *bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return &b
		}
	}
	return nil
}

func strQueryPtr(c *gin.Context, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

func uint64QueryPtr(c *gin.Context, key string) *uint64 {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if id, err := strconv.ParseUint(val, 10, 64); err == nil {
			return &id
		}
	}
	return nil
}

// dayQuery reads YYYY-MM-DD (midnight in loc) or RFC3339. A malformed value is
// reported, not ignored.
func dayQuery(c *gin.Context, key string, loc *time.Location) (*time.Time, error) {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil, nil
	}
	if t, err := guardrail.ParseDay(val, loc); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return &t, nil
	}
	return nil, apperr.Validation(key + " must be YYYY-MM-DD or RFC3339")
}

func csvQuery(c *gin.Context, key string) []string {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	out := []string{}
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func paginationMeta(limit, offset, count int) map[string]any {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return map[string]any{
		"limit":    limit,
		"offset":   offset,
		"count":    count,
		"has_next": limit > 0 && count == limit,
	}
}

func boolPtr(v bool) *bool { return &v }
