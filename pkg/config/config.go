package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	FramingLength = "length"
	FramingBurst  = "burst"
)

type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Client ClientConfig `json:"client" yaml:"client"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

type ServerConfig struct {
	Host           string        `json:"host" yaml:"host"`
	Port           string        `json:"port" yaml:"port"`
	Root           string        `json:"root" yaml:"root"`
	Greeting       string        `json:"greeting" yaml:"greeting"`
	KeepAlive      bool          `json:"keep_alive" yaml:"keep_alive"`
	KeepAliveIdle  time.Duration `json:"keep_alive_idle" yaml:"keep_alive_idle"`
	KeepAliveCount int           `json:"keep_alive_count" yaml:"keep_alive_count"`
	KeepAliveIntvl time.Duration `json:"keep_alive_intvl" yaml:"keep_alive_intvl"`
	SessionTimeout time.Duration `json:"session_timeout" yaml:"session_timeout"`
	IOTimeout      time.Duration `json:"io_timeout" yaml:"io_timeout"`
	Framing        string        `json:"framing" yaml:"framing"`
	ProbeInterval  time.Duration `json:"probe_interval" yaml:"probe_interval"`
	MaxConnections int           `json:"max_connections" yaml:"max_connections"`
	MetricsAddr    string        `json:"metrics_addr" yaml:"metrics_addr"`
	CredentialsDB  string        `json:"credentials_db" yaml:"credentials_db"`
}

type ClientConfig struct {
	KeepAlive      bool          `json:"keep_alive" yaml:"keep_alive"`
	KeepAliveIdle  time.Duration `json:"keep_alive_idle" yaml:"keep_alive_idle"`
	KeepAliveCount int           `json:"keep_alive_count" yaml:"keep_alive_count"`
	KeepAliveIntvl time.Duration `json:"keep_alive_intvl" yaml:"keep_alive_intvl"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
	Framing        string        `json:"framing" yaml:"framing"`
	ProbeInterval  time.Duration `json:"probe_interval" yaml:"probe_interval"`
	EventBuffer    int           `json:"event_buffer" yaml:"event_buffer"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "localhost",
			Port:           "8888",
			Root:           ".",
			Greeting:       "Welcome to the FTP server",
			KeepAlive:      true,
			KeepAliveIdle:  30 * time.Second,
			KeepAliveCount: 3,
			KeepAliveIntvl: 10 * time.Second,
			SessionTimeout: 5 * time.Minute,
			IOTimeout:      10 * time.Second,
			Framing:        FramingLength,
			ProbeInterval:  20 * time.Millisecond,
			MaxConnections: 0,
			MetricsAddr:    "",
			CredentialsDB:  "ftp_users.db",
		},
		Client: ClientConfig{
			KeepAlive:      true,
			KeepAliveIdle:  30 * time.Second,
			KeepAliveCount: 3,
			KeepAliveIntvl: 10 * time.Second,
			Timeout:        10 * time.Second,
			Framing:        FramingLength,
			ProbeInterval:  20 * time.Millisecond,
			EventBuffer:    256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path.
// An empty path yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	for _, framing := range []string{c.Server.Framing, c.Client.Framing} {
		if framing != FramingLength && framing != FramingBurst {
			return fmt.Errorf("unsupported framing %q", framing)
		}
	}
	if c.Server.IOTimeout <= 0 || c.Client.Timeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("max_connections must not be negative")
	}
	return nil
}
