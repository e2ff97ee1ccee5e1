package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	conf, err := Load(writeConfig(t, "log-level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", conf.LogLevel)
	assert.Equal(t, ":8080", conf.HTTPAddr)
	assert.Equal(t, TransportPolling, conf.Transport)
	assert.Equal(t, 500*time.Millisecond, conf.AIDelay)
	assert.Equal(t, time.Second, conf.PollInterval)
	assert.Equal(t, time.Hour, conf.SessionTTL)
	assert.False(t, conf.UseRedis())
	assert.False(t, conf.Telemetry.Enabled)
}

func TestLoadFile(t *testing.T) {
	conf, err := Load(writeConfig(t, `
transport: relay
redis:
  addr: redis:6379
ai-delay: 250ms
telemetry:
  enabled: true
  endpoint: collector:4317
`))
	require.NoError(t, err)

	assert.Equal(t, TransportRelay, conf.Transport)
	assert.True(t, conf.UseRedis())
	assert.Equal(t, 250*time.Millisecond, conf.AIDelay)
	assert.True(t, conf.Telemetry.Enabled)
	assert.Equal(t, "collector:4317", conf.Telemetry.Endpoint)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SESSION_TTL", "30m")

	conf, err := Load(writeConfig(t, "http-addr: \":7070\"\n"))
	require.NoError(t, err)
	assert.Equal(t, ":9090", conf.HTTPAddr)
	assert.Equal(t, 30*time.Minute, conf.SessionTTL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "transport: carrier-pigeon\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "transport: relay\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yml")) })
}
