package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"NSSaDS/ftp/pkg/config"
)

func TestApplyFlags(t *testing.T) {
	t.Run("config file level kept", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Log.Level = "debug"

		applyFlags(cfg, "client.yaml", "", "")
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, config.NewConfig().Client.Framing, cfg.Client.Framing)
	})

	t.Run("quiet without config file", func(t *testing.T) {
		cfg := config.NewConfig()

		applyFlags(cfg, "", "", "")
		assert.Equal(t, "warn", cfg.Log.Level)
	})

	t.Run("flags win", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Log.Level = "debug"

		applyFlags(cfg, "client.yaml", config.FramingBurst, "error")
		assert.Equal(t, "error", cfg.Log.Level)
		assert.Equal(t, config.FramingBurst, cfg.Client.Framing)
	})
}
