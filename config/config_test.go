package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8099", cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
	assert.Equal(t, 100, cfg.RateLimit.Default)
	assert.Equal(t, "stub", cfg.Payment.Provider)
	assert.Equal(t, int64(5<<20), cfg.Cloudinary.MaxUploadBytes)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("server:\n  port: \"9000\"\napp:\n  base_url: https://rh.example\n  timezone: UTC\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("JWT_ACCESS_SECRET", "from-env")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "https://rh.example", cfg.App.BaseURL)
	assert.Equal(t, "from-env", cfg.JWT.AccessSecret)
	assert.Equal(t, time.UTC, cfg.App.Location())
}

func TestLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, AppConfig{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, time.UTC, AppConfig{}.Location())
}
