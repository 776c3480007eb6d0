package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv unsets keys for the test and restores them afterwards.
func clearEnv(t *testing.T, keys ...string) {
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

var configKeys = []string{
	"PUSHHUB_ADDR", "PUSHHUB_WS_ENDPOINT", "PUSHHUB_TOKEN_SECRET", "PUSHHUB_TOKEN_TTL",
	"PUSHHUB_KEYS", "PUSHHUB_AUTOCREATE", "PUSHHUB_SEED_CHANNELS", "PUSHHUB_ALLOWED_ORIGINS",
	"PUSHHUB_METRICS_TICK", "PUSHHUB_READ_LIMIT", "PUSHHUB_SEND_BUFFER",
	"PUSHHUB_SHUTDOWN_TIMEOUT", "PUSHHUB_DEV_LOG",
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t, configKeys...)
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"), nil)
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfigLayers(t *testing.T) {
	req := require.New(t)
	clearEnv(t, configKeys...)

	envFile := filepath.Join(t.TempDir(), ".env")
	req.NoError(os.WriteFile(envFile, []byte("PUSHHUB_ADDR=:4000\nPUSHHUB_TOKEN_TTL=5m\nPUSHHUB_SEED_CHANNELS=news\n"), 0o600))
	// The process environment wins over the file.
	t.Setenv("PUSHHUB_SEED_CHANNELS", "alerts:Alerts")
	t.Setenv("PUSHHUB_AUTOCREATE", "false")

	cfg, err := loadConfig(envFile, []string{"-addr=:5000", "-ws.sendbuffer=8"})
	req.NoError(err)
	req.Equal(":5000", cfg.Addr, "flags win over everything")
	req.Equal(5*time.Minute, cfg.TokenTTL)
	req.Equal("alerts:Alerts", cfg.SeedChannels)
	req.False(cfg.AutoCreate)
	req.Equal(8, cfg.SendBuffer)
}

func TestLoadConfigBadFlag(t *testing.T) {
	clearEnv(t, configKeys...)
	_, err := loadConfig("", []string{"-banana"})
	require.Error(t, err)
}

func TestSanitizeConfig(t *testing.T) {
	cfg := sanitizeConfig(Config{AllowedOrigins: " , ", SendBuffer: -1})
	def := defaultConfig()
	require.Equal(t, def.Addr, cfg.Addr)
	require.Equal(t, def.TokenTTL, cfg.TokenTTL)
	require.Equal(t, def.ReadLimit, cfg.ReadLimit)
	require.Equal(t, def.SendBuffer, cfg.SendBuffer)
	require.Equal(t, def.ShutdownTimeout, cfg.ShutdownTimeout)
	require.Equal(t, "*", cfg.AllowedOrigins)
	// Zero means off for these.
	require.Zero(t, cfg.MetricsTick)
	require.False(t, cfg.AutoCreate)
}

func TestSplitList(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, splitList(" a,,b , "))
	require.Empty(t, splitList(""))
}
