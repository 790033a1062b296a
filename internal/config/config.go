// Package config loads paper-trail settings from file, environment and flags.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/match"
)

// Config is the complete application configuration.
type Config struct {
	Database DatabaseConfig     `mapstructure:"database"`
	Logging  LoggingConfig      `mapstructure:"logging"`
	Gmail    GmailConfig        `mapstructure:"gmail"`
	OpenAI   OpenAIConfig       `mapstructure:"openai"`
	Server   ServerConfig       `mapstructure:"server"`
	Retry    common.RetryOptions `mapstructure:"retry"`
	Matching match.Config       `mapstructure:"matching"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GmailConfig configures the Gmail candidate source.
type GmailConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	TokenDir     string   `mapstructure:"token_dir"`
	Accounts     []string `mapstructure:"accounts"`
	MaxResults   int64    `mapstructure:"max_results"`
	Concurrency  int      `mapstructure:"concurrency"`
}

// Enabled reports whether Gmail search can be attempted at all.
func (g GmailConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && len(g.Accounts) > 0
}

// OpenAIConfig configures the AI query generator. An empty key disables it.
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ServerConfig configures `trail serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Path: "~/.local/share/trail/trail.db"},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Gmail: GmailConfig{
			TokenDir:    "~/.config/trail/tokens",
			MaxResults:  25,
			Concurrency: min(4, runtime.NumCPU()),
		},
		OpenAI: OpenAIConfig{
			Model:   "gpt-4o-mini",
			Timeout: 15 * time.Second,
		},
		Server: ServerConfig{Addr: ":8080"},
		Retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 250 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2,
		},
		Matching: match.DefaultConfig(),
	}
}

// SetDefaults registers every default on v so env vars and config files can
// override individual keys.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("gmail.token_dir", d.Gmail.TokenDir)
	v.SetDefault("gmail.max_results", d.Gmail.MaxResults)
	v.SetDefault("gmail.concurrency", d.Gmail.Concurrency)
	v.SetDefault("openai.model", d.OpenAI.Model)
	v.SetDefault("openai.timeout", d.OpenAI.Timeout)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.initial_delay", d.Retry.InitialDelay)
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay)
	v.SetDefault("retry.multiplier", d.Retry.Multiplier)
}

// Load decodes v into a Config, expands paths and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	// Lists from config replace the defaults instead of merging by index.
	if v.IsSet("matching.keywords") {
		cfg.Matching.Keywords = nil
	}
	if v.IsSet("matching.decay_bands") {
		cfg.Matching.DecayBands = nil
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg.Database.Path = ExpandPath(cfg.Database.Path)
	cfg.Gmail.TokenDir = ExpandPath(cfg.Gmail.TokenDir)
	for i, acct := range cfg.Gmail.Accounts {
		cfg.Gmail.Accounts[i] = strings.TrimSpace(acct)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", common.ErrMissingConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json", "text":
	default:
		return fmt.Errorf("%w: logging.format must be console or json, got %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	if c.Gmail.MaxResults < 1 {
		return fmt.Errorf("%w: gmail.max_results must be positive", common.ErrInvalidConfig)
	}
	if c.Gmail.Concurrency < 1 {
		return fmt.Errorf("%w: gmail.concurrency must be positive", common.ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Gmail.Accounts))
	for _, acct := range c.Gmail.Accounts {
		if acct == "" {
			return fmt.Errorf("%w: empty gmail account", common.ErrInvalidConfig)
		}
		if seen[acct] {
			return fmt.Errorf("%w: duplicate gmail account %q", common.ErrInvalidConfig, acct)
		}
		seen[acct] = true
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}
