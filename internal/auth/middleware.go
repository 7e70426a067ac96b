package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rmcmillan34/edge-journal/internal/config"
)

const (
	HeaderUserID = "X-User-ID"
	// DevUserID is used when auth is disabled and no X-User-ID is sent.
	DevUserID uint64 = 1
)

// Middleware resolves the caller for every /api/ request. With auth disabled the
// user comes from X-User-ID; otherwise a bearer token (or access_token query
// parameter, for websocket upgrades) must verify.
func Middleware(cfg config.AuthConfig, logger *zap.Logger) gin.HandlerFunc {
	verifier := JWT{Secret: []byte(cfg.JWTSecret), Issuer: cfg.Issuer}
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Next()
			return
		}
		if cfg.Disabled {
			userID := DevUserID
			if raw := strings.TrimSpace(c.GetHeader(HeaderUserID)); raw != "" {
				id, err := strconv.ParseUint(raw, 10, 64)
				if err != nil || id == 0 {
					abort(c, "invalid "+HeaderUserID)
					return
				}
				userID = id
			}
			c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), userID))
			c.Next()
			return
		}

		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			tok = strings.TrimSpace(c.Query("access_token"))
		}
		if tok == "" {
			abort(c, "missing bearer token")
			return
		}
		claims, err := verifier.Verify(tok)
		if err != nil {
			if logger != nil {
				logger.Debug("token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			}
			abort(c, "invalid token")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			abort(c, err.Error())
			return
		}
		c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": msg})
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
