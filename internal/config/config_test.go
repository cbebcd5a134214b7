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
	t.Setenv("DATABASE_URL", "postgres://localhost/storyquest")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "3333", cfg.Port)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 6, cfg.FeaturedLimit)
	assert.Equal(t, time.Hour, cfg.ChallengeSweepInterval)
	assert.False(t, cfg.TrustProxy)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadReadsEnvFile(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "PORT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_URL=postgres://db/sq\nPORT=9000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/sq", cfg.DatabaseURL)
	assert.Equal(t, "9000", cfg.Port)
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: "http://a.test, http://b.test"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())

	cfg.CORSAllowedOrigins = ""
	assert.Nil(t, cfg.AllowedOrigins())
}
