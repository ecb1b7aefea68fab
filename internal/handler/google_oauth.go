package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"reviewhub/config"
	"reviewhub/internal/auth"
	"reviewhub/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
)

type GoogleOAuthHandler struct {
	cfg      *config.Config
	authSvc  *service.AuthService
	referral *service.ReferralService
	admin    *service.AdminService
	http     *http.Client
	// overridable in tests
	tokenInfoURL string
}

func NewGoogleOAuthHandler(cfg *config.Config, authSvc *service.AuthService, referral *service.ReferralService, admin *service.AdminService) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{
		cfg:          cfg,
		authSvc:      authSvc,
		referral:     referral,
		admin:        admin,
		http:         &http.Client{Timeout: 10 * time.Second},
		tokenInfoURL: googleTokenInfoURL,
	}
}

func (h *GoogleOAuthHandler) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.OAuth.GoogleClientID,
		ClientSecret: h.cfg.OAuth.GoogleClientSecret,
		RedirectURL:  h.cfg.OAuth.GoogleRedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

func (h *GoogleOAuthHandler) configured(c *gin.Context) bool {
	if h.cfg.OAuth.GoogleClientID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
		return false
	}
	return true
}

// Redirect sends the browser to the Google consent screen.
func (h *GoogleOAuthHandler) Redirect(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	state, err := auth.GenerateStateToken(&h.cfg.JWT)
	if err != nil {
		respondError(c, err, "start google sign-in")
		return
	}
	c.Redirect(http.StatusFound, h.OAuth2Config().AuthCodeURL(state, oauth2.AccessTypeOnline))
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Callback exchanges the code, fetches the profile and signs the user in.
func (h *GoogleOAuthHandler) Callback(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	if err := auth.ValidateStateToken(&h.cfg.JWT, c.Query("state")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	ctx := c.Request.Context()
	conf := h.OAuth2Config()
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		log.Warn().Err(err).Str("component", "oauth").Msg("google code exchange failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "exchange failed"})
		return
	}
	resp, err := conf.Client(ctx, tok).Get(googleUserInfoURL)
	if err != nil {
		respondError(c, err, "get google user info")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respondError(c, fmt.Errorf("google userinfo status %d", resp.StatusCode), "get google user info")
		return
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.ID == "" || info.Email == "" {
		c.JSON(http.StatusBadGateway, gin.H{"error": "invalid user info"})
		return
	}
	sess, err := h.authSvc.LoginWithGoogle(ctx, info.ID, info.Email, info.Name, info.Picture)
	if err != nil {
		respondError(c, err, "sign in with google")
		return
	}
	h.audit(c, sess, "auth.google_callback")
	c.JSON(http.StatusOK, sess)
}

// tokenInfo is the response of the tokeninfo endpoint for an ID token.
type tokenInfo struct {
	Sub     string `json:"sub"`
	Aud     string `json:"aud"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

var errGoogleToken = errors.New("invalid id_token")

func (h *GoogleOAuthHandler) verifyIDToken(ctx context.Context, idToken string) (*tokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.tokenInfoURL+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn().Str("component", "oauth").Int("status", resp.StatusCode).Str("body", string(body)).Msg("id_token rejected")
		return nil, errGoogleToken
	}
	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	if info.Sub == "" || info.Email == "" || info.Aud != h.cfg.OAuth.GoogleClientID {
		return nil, errGoogleToken
	}
	return &info, nil
}

// Token signs in a mobile client holding a Google ID token. referral_code is
// applied only when the account is new.
func (h *GoogleOAuthHandler) Token(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	var req struct {
		IDToken      string `json:"id_token" binding:"required"`
		ReferralCode string `json:"referral_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id_token required"})
		return
	}
	ctx := c.Request.Context()
	info, err := h.verifyIDToken(ctx, req.IDToken)
	if errors.Is(err, errGoogleToken) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondError(c, err, "verify id_token")
		return
	}
	sess, err := h.authSvc.LoginWithGoogle(ctx, info.Sub, info.Email, info.Name, info.Picture)
	if err != nil {
		respondError(c, err, "sign in with google")
		return
	}
	if sess.IsNew && req.ReferralCode != "" && h.referral != nil {
		if _, err := h.referral.ClaimCode(ctx, sess.User.ID, req.ReferralCode); err != nil {
			log.Warn().Err(err).Str("component", "oauth").Uint("user_id", sess.User.ID).Msg("referral claim after google signup failed")
		}
	}
	h.audit(c, sess, "auth.google_token")
	c.JSON(http.StatusOK, sess)
}

func (h *GoogleOAuthHandler) audit(c *gin.Context, sess *service.Session, action string) {
	if h.admin == nil {
		return
	}
	a := actor(c)
	a.UserID = sess.User.ID
	h.admin.Record(c.Request.Context(), a, action, "auth", sess.User.ID, map[string]bool{"is_new": sess.IsNew})
}
