package auth

import (
	"testing"
	"time"

	"reviewhub/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.JWTConfig {
	return &config.JWTConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
		Issuer:        "reviewhub-test",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	tok, err := GenerateAccessToken(cfg, 42, "a@example.com", "SELLER")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "SELLER", claims.Role)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	cfg := testConfig()
	refresh, err := GenerateRefreshToken(cfg, 7)
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	id, err := ParseRefreshToken(cfg, refresh)
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)
}

func TestExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.AccessExpiry = -time.Minute
	tok, err := GenerateAccessToken(cfg, 1, "x@example.com", "USER")
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStateToken(t *testing.T) {
	cfg := testConfig()
	state, err := GenerateStateToken(cfg)
	require.NoError(t, err)
	assert.NoError(t, ValidateStateToken(cfg, state))
	assert.ErrorIs(t, ValidateStateToken(cfg, "state"), ErrInvalidToken)

	// An access token is not a valid state.
	access, err := GenerateAccessToken(cfg, 1, "a@example.com", "USER")
	require.NoError(t, err)
	assert.ErrorIs(t, ValidateStateToken(cfg, access), ErrInvalidToken)
}
