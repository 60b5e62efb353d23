package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the infrastructure settings: where the booking service lives.
// Source: environment variables, optionally seeded from a .env file.
type Config struct {
	APIURL   string
	PushURL  string
	LogLevel string
}

// Load loads configuration from environment variables only.
func Load() (*Config, error) {
	return LoadWithFile("")
}

// LoadWithFile loads configuration from an optional .env file and environment variables.
func LoadWithFile(envFile string) (*Config, error) {
	// Attempt to load .env file if provided, but don't fail if it doesn't exist.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		APIURL:   strings.TrimRight(strings.TrimSpace(os.Getenv("BOOKING_API_URL")), "/"),
		PushURL:  strings.TrimSpace(os.Getenv("BOOKING_PUSH_URL")),
		LogLevel: os.Getenv("LOG_LEVEL"),
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.PushURL == "" {
		cfg.PushURL = derivePushURL(cfg.APIURL)
	}

	return cfg, nil
}

// Validate checks if all required fields are set.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("BOOKING_API_URL is required")
	}
	if err := checkScheme(c.APIURL, "http", "https"); err != nil {
		return fmt.Errorf("BOOKING_API_URL: %w", err)
	}
	if c.PushURL != "" {
		if err := checkScheme(c.PushURL, "ws", "wss"); err != nil {
			return fmt.Errorf("BOOKING_PUSH_URL: %w", err)
		}
	}
	return nil
}

func checkScheme(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%q must be an absolute %s URL", raw, strings.Join(schemes, "/"))
}

// derivePushURL maps http(s)://host/base to ws(s)://host/base/events.
func derivePushURL(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil {
		return ""
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/events"
	return u.String()
}
