package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix starts every environment override
	EnvPrefix = "SKILLMATCH_"
	// EnvConfigFile names a YAML file to load before the environment
	EnvConfigFile = "SKILLMATCH_CONFIG"
	// MinTokenSecretLen is the shortest accepted HS256 signing secret
	MinTokenSecretLen = 32
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Nested keys use a double underscore: SKILLMATCH_MATCHMAKING__TEAM_SIZE=5.
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the service cannot start without
func (c *Config) Validate() error {
	switch {
	case c.Matchmaking.TeamSize < 1:
		return fmt.Errorf("%w: matchmaking.team_size must be at least 1", ErrInvalidConfig)
	case c.Matchmaking.CycleInterval < 0:
		return fmt.Errorf("%w: matchmaking.cycle_interval must not be negative", ErrInvalidConfig)
	case c.Matchmaking.MaxConflictRetries < 0:
		return fmt.Errorf("%w: matchmaking.max_conflict_retries must not be negative", ErrInvalidConfig)
	case !(c.Rating.Tau > 0):
		return fmt.Errorf("%w: rating.tau must be positive", ErrInvalidConfig)
	case !(c.Rating.DefaultRD > 0) || !(c.Rating.DefaultVolatility > 0):
		return fmt.Errorf("%w: rating defaults must be positive", ErrInvalidConfig)
	case c.HTTP.Port < 1 || c.HTTP.Port > 65535:
		return fmt.Errorf("%w: http.port out of range", ErrInvalidConfig)
	}

	switch c.Storage.Type {
	case "memory":
	case "redis":
		if c.Storage.Redis.URL == "" {
			return fmt.Errorf("%w: storage.redis.url required for redis storage", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage.type %q", ErrInvalidConfig, c.Storage.Type)
	}

	if c.Auth.ClientID != "" && c.Auth.ClientSecretHash == "" {
		return fmt.Errorf("%w: auth.client_secret_hash required with auth.client_id", ErrInvalidConfig)
	}
	if s := c.Auth.PlayerTokenSecret; s != "" && len(s) < MinTokenSecretLen {
		return fmt.Errorf("%w: auth.player_token_secret must be at least %d bytes", ErrInvalidConfig, MinTokenSecretLen)
	}
	if c.Auth.PlayerTokenSecret != "" && c.Auth.ClientID == "" {
		return fmt.Errorf("%w: auth.player_token_secret needs auth.client_id to guard session issuing", ErrInvalidConfig)
	}
	if c.Auth.SessionDuration < 0 {
		return fmt.Errorf("%w: auth.session_duration must not be negative", ErrInvalidConfig)
	}
	return nil
}

// SlogLevel maps LogLevel onto slog, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// MatchSize is the number of players in one match
func (c *Config) MatchSize() int {
	return 2 * c.Matchmaking.TeamSize
}
