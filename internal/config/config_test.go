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

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestMustLoadPath_Defaults(t *testing.T) {
	path := writeConfig(t, `
env: dev
auth:
  jwt_secret: "test-secret"
database:
  driver: sqlite
  dsn: ":memory:"
`)

	cfg := MustLoadPath(path)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":3001", cfg.HTTP.Address)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 256, cfg.Relay.SendBuffer)
	assert.Equal(t, 4000, cfg.Relay.MaxMessageLength)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Less(t, cfg.Relay.PingPeriod, cfg.Relay.PongWait)
	assert.NotEmpty(t, cfg.WebRTC.STUNServers)
	for _, s := range cfg.WebRTC.STUNServers {
		assert.NotEmpty(t, s)
	}
}

func TestMustLoadPath_PingPeriodClamped(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "test-secret"
relay:
  pong_wait: 10s
  ping_period: 30s
`)

	cfg := MustLoadPath(path)

	assert.Equal(t, 9*time.Second, cfg.Relay.PingPeriod)
}

func TestMustLoadPath_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := writeConfig(t, `
env: prod
`)

	assert.Panics(t, func() { MustLoadPath(path) })
}

func TestMustLoadPath_MissingFile(t *testing.T) {
	assert.Panics(t, func() { MustLoadPath(filepath.Join(t.TempDir(), "nope.yaml")) })
}
