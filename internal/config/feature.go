package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
)

// FeatureConfig holds user-facing tuning for the client.
// These are non-sensitive settings users can change without a rebuild.
// Source: TOML configuration file
type FeatureConfig struct {
	Client ClientConfig `toml:"client"`
	Load   LoadConfig   `toml:"load"`
	Push   PushConfig   `toml:"push"`
	Serve  ServeConfig  `toml:"serve"`
}

type ClientConfig struct {
	RequestTimeout Duration `toml:"request_timeout"`
}

// LoadConfig controls the initial fetch-all retry policy.
type LoadConfig struct {
	MaxAttempts   int      `toml:"max_attempts"`
	RetryInterval Duration `toml:"retry_interval"`
}

type PushConfig struct {
	ReconnectInterval Duration `toml:"reconnect_interval"`
	BufferSize        int      `toml:"buffer_size"`
}

type ServeConfig struct {
	Listen string `toml:"listen"`
}

// Duration decodes TOML strings such as "10s" or "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultFeatureConfig returns the settings used when no file is present.
func DefaultFeatureConfig() *FeatureConfig {
	return &FeatureConfig{
		Client: ClientConfig{RequestTimeout: Duration{10 * time.Second}},
		Load:   LoadConfig{MaxAttempts: 5, RetryInterval: Duration{2 * time.Second}},
		Push:   PushConfig{ReconnectInterval: Duration{3 * time.Second}, BufferSize: 64},
		Serve:  ServeConfig{Listen: "127.0.0.1:8088"},
	}
}

// LoadFeatureConfig loads feature configuration from a TOML file. A missing
// file yields the defaults; keys absent from the file keep their defaults.
func LoadFeatureConfig(path string) (*FeatureConfig, error) {
	cfg := DefaultFeatureConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to load feature config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that would stall the client.
func (c *FeatureConfig) Validate() error {
	if c.Client.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("client.request_timeout must be positive")
	}
	if c.Load.MaxAttempts < 1 {
		return fmt.Errorf("load.max_attempts must be at least 1")
	}
	if c.Load.RetryInterval.Duration < 0 {
		return fmt.Errorf("load.retry_interval must not be negative")
	}
	if c.Push.ReconnectInterval.Duration <= 0 {
		return fmt.Errorf("push.reconnect_interval must be positive")
	}
	if c.Push.BufferSize < 0 {
		return fmt.Errorf("push.buffer_size must not be negative")
	}
	if c.Serve.Listen == "" {
		return fmt.Errorf("serve.listen is required")
	}
	return nil
}
