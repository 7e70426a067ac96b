package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmcmillan34/edge-journal/internal/config"
)

func newEngine(cfg config.AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(cfg, nil))
	r.GET("/api/v1/me", func(c *gin.Context) {
		id, ok := UserIDFromGin(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id, "ok": ok})
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareVerifiesBearer(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "s3cret", Issuer: "edge-journal"}
	r := newEngine(cfg)

	tok, _, err := JWT{Secret: []byte("s3cret"), Issuer: "edge-journal"}.Sign(42)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":42,"ok":true}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me?access_token="+tok, nil)
	assert.Equal(t, http.StatusOK, do(r, req).Code)
}

func TestMiddlewareRejects(t *testing.T) {
	r := newEngine(config.AuthConfig{JWTSecret: "s3cret", Issuer: "edge-journal"})

	assert.Equal(t, http.StatusUnauthorized, do(r, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)).Code)

	wrongKey, _, err := JWT{Secret: []byte("other"), Issuer: "edge-journal"}.Sign(42)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+wrongKey)
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)

	wrongIssuer, _, err := JWT{Secret: []byte("s3cret"), Issuer: "someone-else"}.Sign(42)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+wrongIssuer)
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "42",
		Issuer:    "edge-journal",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	signed, err := expired.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)

	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestMiddlewareDisabledUsesHeader(t *testing.T) {
	r := newEngine(config.AuthConfig{Disabled: true})

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.JSONEq(t, `{"user_id":1,"ok":true}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set(HeaderUserID, "7")
	w = do(r, req)
	assert.JSONEq(t, `{"user_id":7,"ok":true}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set(HeaderUserID, "abc")
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
}

func TestClaimsUserID(t *testing.T) {
	_, err := Claims{}.UserID()
	assert.Error(t, err)
	var c Claims
	c.Subject = "0"
	_, err = c.UserID()
	assert.Error(t, err)
	c.Subject = "15"
	id, err := c.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint64(15), id)
}
