// Package config loads environment variables and provides a typed Config
// used across the service. It applies sensible defaults so the binary can
// run locally with minimal setup; only the archive service base URL is
// mandatory. For Twitch chat credentials, use ValidateChatReady.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Archive service
	ArchiverAPIBase string

	// Access control
	EnableBlacklist bool

	// Policy state persistence
	StateBackend  string // file | env
	StateDir      string
	SeedAdmins    string // JSON array, env backend only
	SeedBlacklist string // JSON array, env backend only

	// Twitch chat
	TwitchChannel     string
	TwitchBotUsername string
	TwitchOAuthToken  string

	// HTTP
	HTTPAddr string

	// Polling schedule
	PollAttempts  int
	PollBaseDelay time.Duration
	PollStepDelay time.Duration
}

// Load reads environment variables and applies defaults. It fails only
// when ARCHIVER_API_BASE is missing; the process must not start without a
// target archive service.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ArchiverAPIBase = os.Getenv("ARCHIVER_API_BASE")
	if cfg.ArchiverAPIBase == "" {
		return nil, fmt.Errorf("ARCHIVER_API_BASE must be provided")
	}

	cfg.EnableBlacklist = os.Getenv("ENABLE_BLACKLIST") == "true"

	cfg.StateBackend = os.Getenv("STATE_BACKEND")
	if cfg.StateBackend == "" {
		// Without the admin/blacklist feature there is nothing worth
		// persisting, so default to the read-only backend.
		if cfg.EnableBlacklist {
			cfg.StateBackend = "file"
		} else {
			cfg.StateBackend = "env"
		}
	}
	cfg.StateDir = os.Getenv("STATE_DIR")
	if cfg.StateDir == "" {
		cfg.StateDir = "config"
	}
	cfg.SeedAdmins = os.Getenv("SEED_ADMINS")
	cfg.SeedBlacklist = os.Getenv("SEED_BLACKLIST")

	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")
	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.PollAttempts = 30
	if s := os.Getenv("POLL_ATTEMPTS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			cfg.PollAttempts = n
		}
	}
	cfg.PollBaseDelay = 28 * time.Second
	if s := os.Getenv("POLL_BASE_DELAY"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			cfg.PollBaseDelay = d
		}
	}
	cfg.PollStepDelay = 4500 * time.Millisecond
	if s := os.Getenv("POLL_STEP_DELAY"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d >= 0 {
			cfg.PollStepDelay = d
		}
	}

	return cfg, nil
}

// ValidateChatReady checks required fields for the Twitch chat front-end.
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" || c.TwitchBotUsername == "" || c.TwitchOAuthToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL, TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN")
	}
	return nil
}
