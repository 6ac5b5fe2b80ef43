package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aesylwinn/tox-forward/internal/app"
	"github.com/Aesylwinn/tox-forward/internal/relay"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "forwarder.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := app.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, relay.DefaultResendInterval, time.Duration(cfg.ResendInterval))
	assert.Equal(t, uint32(relay.DefaultAckWindow), cfg.AckWindow)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	p := writeConfig(t, `{
		"data_dir": "/var/lib/forwarder",
		"resend_interval": "3s",
		"tick_interval": 20000000,
		"allowed_peers": ["`+string(testKey(1))+`"]
	}`)
	cfg, err := app.LoadConfig(p)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/var/lib/forwarder", cfg.DataDir)
	assert.Equal(t, 3*time.Second, time.Duration(cfg.ResendInterval))
	assert.Equal(t, 20*time.Millisecond, time.Duration(cfg.TickInterval))
	assert.Equal(t, "info", cfg.LogLevel)

	keys, err := cfg.AllowedKeys()
	require.NoError(t, err)
	assert.Equal(t, testKey(1), keys[0])
}

func TestLoadConfig_RejectsUnknownFields(t *testing.T) {
	_, err := app.LoadConfig(writeConfig(t, `{"datadir": "x"}`))
	assert.Error(t, err)
}

func TestLoadConfig_BadDuration(t *testing.T) {
	_, err := app.LoadConfig(writeConfig(t, `{"resend_interval": "soon"}`))
	assert.ErrorContains(t, err, "invalid duration")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.DataDir = ""
	cfg.HubURL = "not a url"
	cfg.TickInterval = 0
	cfg.LogLevel = "loud"
	cfg.AllowedPeers = []string{"abc"}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"data_dir", "hub_url", "tick_interval", "log_level", "allowed_peers"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestNewLogger(t *testing.T) {
	l, err := app.NewLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, l)

	_, err = app.NewLogger("loud")
	assert.Error(t, err)
}
