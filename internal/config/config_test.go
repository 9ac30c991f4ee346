package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, time.Duration(0), cfg.IdleTimeout)
	assert.Equal(t, "drop", cfg.SlowConsumer)
	require.Len(t, cfg.ICEServers, 2)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.ICEServers[0].URLs)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
mode: debug
port: 9000
idle_timeout: 10m
slow_consumer: kick
ice_servers:
  - urls: ["turn:turn.example.org:3478"]
    username: alice
    credential: secret
`), 0o644))
	t.Setenv("PORT", "8123")
	t.Setenv("PINRELAY_JOIN_BURST", "9")

	cfg, err := load(file)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 8123, cfg.Port, "PORT env wins over the file")
	assert.Equal(t, 9, cfg.JoinBurst)
	assert.Equal(t, 10*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, "kick", cfg.SlowConsumer)
	require.Len(t, cfg.ICEServers, 1)
	assert.Equal(t, "alice", cfg.ICEServers[0].Username)
}

func TestLoadRejectsBadTimings(t *testing.T) {
	t.Setenv("PINRELAY_PING_PERIOD", "2m")
	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
