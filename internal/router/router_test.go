package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reviewhub/config"
	"reviewhub/internal/auth"
	"reviewhub/internal/domain"
	"reviewhub/internal/ratelimit"
	"reviewhub/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t   *testing.T
	cfg *config.Config
	db  *gorm.DB
	h   http.Handler
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Env: "test", AllowedOrigins: []string{"https://app.test"}},
		JWT: config.JWTConfig{
			AccessSecret:  "access",
			RefreshSecret: "refresh",
			AccessExpiry:  time.Hour,
			RefreshExpiry: 24 * time.Hour,
			Issuer:        "reviewhub-test",
		},
		Payment:   config.PaymentConfig{Provider: "stub", KeySecret: "key", WebhookSecret: "hook", Currency: "INR"},
		RateLimit: config.RateLimitConfig{Window: time.Minute},
		App:       config.AppConfig{BaseURL: "https://rh.test/"},
	}
	if mutate != nil {
		mutate(cfg)
	}
	db := testutil.NewDB(t)
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.ClockFunc(time.Now), cfg.RateLimit.Window)
	return &testServer{t: t, cfg: cfg, db: db, h: Setup(cfg, db, NewServices(cfg, db), nil, limiter)}
}

func (s *testServer) do(method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)
	return w
}

func (s *testServer) token(id uint, role string) string {
	tok, err := auth.GenerateAccessToken(&s.cfg.JWT, id, "x@example.com", role)
	require.NoError(s.t, err)
	return tok
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestRegisterLoginAndProfile(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Asha", "email": "asha@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sess struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID    uint   `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	decode(t, w, &sess)
	require.NotEmpty(t, sess.AccessToken)

	w = s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Asha", "email": "asha@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"identifier": "asha@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"identifier": "asha@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/me/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/me/profile", sess.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Email string `json:"email"`
	}
	decode(t, w, &me)
	assert.Equal(t, "asha@example.com", me.Email)

	w = s.do(http.MethodGet, "/api/v1/me/referral-code", sess.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeepLinkCreateRedirectAndAnalytics(t *testing.T) {
	s := newTestServer(t, nil)
	u := testutil.CreateUser(t, s.db, "linker")
	tok := s.token(u.ID, domain.RoleUser)

	w := s.do(http.MethodPost, "/api/v1/deep-links/create", tok, gin.H{"destination_url": "ftp://nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/deep-links/create", tok, gin.H{
		"destination_url": "https://shop.test/p/1",
		"metadata":        gin.H{"campaign": "diwali"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID        uint   `json:"id"`
		ShortCode string `json:"short_code"`
		ShortURL  string `json:"short_url"`
	}
	decode(t, w, &created)
	assert.Equal(t, "https://rh.test/l/"+created.ShortCode, created.ShortURL)

	w = s.do(http.MethodGet, "/l/"+created.ShortCode, "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://shop.test/p/1", w.Header().Get("Location"))

	w = s.do(http.MethodGet, "/api/v1/deep-links/resolve/"+created.ShortCode, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resolved struct {
		Metadata map[string]string `json:"metadata"`
	}
	decode(t, w, &resolved)
	assert.Equal(t, "diwali", resolved.Metadata["campaign"])

	w = s.do(http.MethodGet, "/l/doesnotexist", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/deep-links/analytics/%d", created.ID), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		TotalClicks int64 `json:"total_clicks"`
	}
	decode(t, w, &stats)
	assert.Equal(t, int64(2), stats.TotalClicks)

	other := testutil.CreateUser(t, s.db, "other")
	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/deep-links/analytics/%d", created.ID), s.token(other.ID, domain.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	user := testutil.CreateUser(t, s.db, "plain")
	admin := testutil.CreateAdmin(t, s.db, "boss")
	adminTok := s.token(admin.ID, domain.RoleAdmin)

	w := s.do(http.MethodGet, "/api/v1/admin/dashboard", s.token(user.ID, domain.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/dashboard", adminTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPut, "/api/v1/admin/settings", adminTok, gin.H{"not_a_setting": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, fmt.Sprintf("/api/v1/admin/users/%d/kyc", user.ID), adminTok, gin.H{"verified": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/admin/audit-log?resource=users", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var audit struct {
		Entries []struct {
			Action string `json:"action"`
		} `json:"entries"`
	}
	decode(t, w, &audit)
	require.NotEmpty(t, audit.Entries)
	assert.Equal(t, "user.kyc", audit.Entries[0].Action)
}

func TestSellerOnlyAndWebhookSignature(t *testing.T) {
	s := newTestServer(t, nil)
	user := testutil.CreateUser(t, s.db, "buyer")

	w := s.do(http.MethodPost, "/api/v1/review-requests", s.token(user.ID, domain.RoleUser), gin.H{})
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewBufferString(`{"event":"payment.captured"}`))
	req.Header.Set("X-Webhook-Signature", "bogus")
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.RateLimit.Auth = 2 })

	body := gin.H{"identifier": "nobody@example.com", "password": "whatever1"}
	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/api/v1/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := s.do(http.MethodPost, "/api/v1/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Other groups keep their own counters.
	w = s.do(http.MethodGet, "/api/v1/badges", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthAndCORS(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/badges", nil)
	req.Header.Set("Origin", "https://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.test", rec.Header().Get("Access-Control-Allow-Origin"))
}
