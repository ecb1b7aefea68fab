package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reviewhub/config"
	"reviewhub/internal/auth"
	"reviewhub/internal/domain"
	"reviewhub/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jwtCfg = &config.JWTConfig{
	AccessSecret:  "access",
	RefreshSecret: "refresh",
	AccessExpiry:  time.Hour,
	RefreshExpiry: 24 * time.Hour,
}

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, id uint, role string) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken(jwtCfg, id, "u@example.com", role)
	require.NoError(t, err)
	return tok
}

func serve(r *gin.Engine, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthAndRoles(t *testing.T) {
	r := gin.New()
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)}) }
	r.GET("/me", AuthRequired(jwtCfg), ok)
	r.GET("/seller", AuthRequired(jwtCfg), RequireRole(domain.RoleSeller), ok)
	r.GET("/admin", AuthRequired(jwtCfg), AdminRequired(), ok)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "garbage").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/me", token(t, 7, domain.RoleUser)).Code)

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/seller", token(t, 7, domain.RoleUser)).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/seller", token(t, 8, domain.RoleSeller)).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/seller", token(t, 9, domain.RoleAdmin)).Code)

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", token(t, 8, domain.RoleSeller)).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/admin", token(t, 9, domain.RoleAdmin)).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Date(2026, 3, 11, 10, 0, 30, 0, time.UTC)
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.ClockFunc(func() time.Time { return now }), time.Minute)

	r := gin.New()
	r.POST("/login", RateLimit(limiter, "auth", 2), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/steps", AuthRequired(jwtCfg), RateLimit(limiter, "steps", 1), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/login", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/login", "").Code)
	w := serve(r, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded","retry_after":30}`, w.Body.String())

	// Authenticated callers are counted per user, not per IP.
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/steps", token(t, 1, domain.RoleUser)).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/steps", token(t, 2, domain.RoleUser)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/steps", token(t, 1, domain.RoleUser)).Code)

	now = now.Add(30 * time.Second)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/login", "").Code)
}
