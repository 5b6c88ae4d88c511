// Package config loads service configuration from defaults, an optional YAML
// file and SKILLMATCH_ environment variables, in that order of precedence.
package config

import (
	"time"
)

// Config contains process configuration
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error
	LogLevel string `koanf:"log_level"`

	HTTP        HTTPConfig        `koanf:"http"`
	Storage     StorageConfig     `koanf:"storage"`
	Matchmaking MatchmakingConfig `koanf:"matchmaking"`
	Rating      RatingConfig      `koanf:"rating"`
	NATS        NATSConfig        `koanf:"nats"`
	Auth        AuthConfig        `koanf:"auth"`
}

type HTTPConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type StorageConfig struct {
	// Type is "memory" or "redis"
	Type  string      `koanf:"type"`
	Redis RedisConfig `koanf:"redis"`
}

type RedisConfig struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MatchTTL     time.Duration `koanf:"match_ttl"`
}

type MatchmakingConfig struct {
	// TeamSize is players per side; a match holds twice as many
	TeamSize int `koanf:"team_size"`
	// CycleInterval of zero disables the background scheduler
	CycleInterval      time.Duration `koanf:"cycle_interval"`
	CycleTimeout       time.Duration `koanf:"cycle_timeout"`
	MaxConflictRetries int           `koanf:"max_conflict_retries"`
}

type RatingConfig struct {
	Tau               float64 `koanf:"tau"`
	DefaultRating     float64 `koanf:"default_rating"`
	DefaultRD         float64 `koanf:"default_rd"`
	DefaultVolatility float64 `koanf:"default_volatility"`
}

type NATSConfig struct {
	// URL empty means matches are only logged, not published
	URL            string        `koanf:"url"`
	Name           string        `koanf:"name"`
	SubjectPrefix  string        `koanf:"subject_prefix"`
	OutcomeTimeout time.Duration `koanf:"outcome_timeout"`
}

type AuthConfig struct {
	// ClientID empty disables the game-server credential check
	ClientID         string `koanf:"client_id"`
	ClientSecretHash string `koanf:"client_secret_hash"`

	// PlayerTokenSecret empty disables player sessions and leaves the player
	// routes open
	PlayerTokenSecret string        `koanf:"player_token_secret"`
	TokenIssuer       string        `koanf:"token_issuer"`
	TokenAudience     string        `koanf:"token_audience"`
	SessionDuration   time.Duration `koanf:"session_duration"`
}

// New returns a Config populated with defaults
func New() *Config {
	return &Config{
		LogLevel: "info",
		HTTP: HTTPConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Type: "memory",
			Redis: RedisConfig{
				URL:          "redis://localhost:6379",
				PoolSize:     10,
				MinIdleConns: 2,
				MatchTTL:     6 * time.Hour,
			},
		},
		Matchmaking: MatchmakingConfig{
			TeamSize:           2,
			CycleInterval:      2 * time.Second,
			CycleTimeout:       5 * time.Second,
			MaxConflictRetries: 3,
		},
		Rating: RatingConfig{
			Tau:               0.5,
			DefaultRating:     1500,
			DefaultRD:         350,
			DefaultVolatility: 0.06,
		},
		NATS: NATSConfig{
			Name:           "skillmatch",
			SubjectPrefix:  "skillmatch",
			OutcomeTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			TokenIssuer:     "skillmatch",
			TokenAudience:   "skillmatch-api",
			SessionDuration: 24 * time.Hour,
		},
	}
}
