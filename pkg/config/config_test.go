package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 10*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Server.IOTimeout)
	assert.Equal(t, FramingLength, cfg.Server.Framing)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ftp.yaml")
	data := []byte(`
server:
  port: "9999"
  root: /srv/ftp
  framing: burst
  io_timeout: 3s
client:
  timeout: 4s
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "/srv/ftp", cfg.Server.Root)
	assert.Equal(t, FramingBurst, cfg.Server.Framing)
	assert.Equal(t, 3*time.Second, cfg.Server.IOTimeout)
	assert.Equal(t, 4*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched fields keep defaults
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoadRejectsUnknownFraming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  framing: carrier-pigeon\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
