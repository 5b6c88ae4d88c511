package config_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/mcoot/skillmatch/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then the documented defaults apply", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.HTTP.Port, convey.ShouldEqual, 8080)
				convey.So(cfg.Storage.Type, convey.ShouldEqual, "memory")
				convey.So(cfg.Matchmaking.TeamSize, convey.ShouldEqual, 2)
				convey.So(cfg.MatchSize(), convey.ShouldEqual, 4)
				convey.So(cfg.Rating.Tau, convey.ShouldEqual, 0.5)
				convey.So(cfg.Rating.DefaultRating, convey.ShouldEqual, 1500)
				convey.So(cfg.Rating.DefaultRD, convey.ShouldEqual, 350)
				convey.So(cfg.Rating.DefaultVolatility, convey.ShouldEqual, 0.06)
				convey.So(cfg.NATS.URL, convey.ShouldBeEmpty)
				convey.So(cfg.Auth.ClientID, convey.ShouldBeEmpty)
				convey.So(cfg.Auth.PlayerTokenSecret, convey.ShouldBeEmpty)
				convey.So(cfg.Auth.SessionDuration, convey.ShouldEqual, 24*time.Hour)
			})
		})

		convey.Convey("When loading config with nested environment variables", func() {
			_ = os.Setenv("SKILLMATCH_LOG_LEVEL", "debug")
			_ = os.Setenv("SKILLMATCH_MATCHMAKING__TEAM_SIZE", "5")
			_ = os.Setenv("SKILLMATCH_MATCHMAKING__CYCLE_INTERVAL", "750ms")
			_ = os.Setenv("SKILLMATCH_RATING__TAU", "0.3")
			_ = os.Setenv("SKILLMATCH_HTTP__PORT", "9999")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SlogLevel(), convey.ShouldEqual, slog.LevelDebug)
				convey.So(cfg.Matchmaking.TeamSize, convey.ShouldEqual, 5)
				convey.So(cfg.Matchmaking.CycleInterval, convey.ShouldEqual, 750*time.Millisecond)
				convey.So(cfg.Rating.Tau, convey.ShouldEqual, 0.3)
				convey.So(cfg.HTTP.Port, convey.ShouldEqual, 9999)
				convey.So(cfg.Matchmaking.MaxConflictRetries, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with a YAML file and environment variables", func() {
			path := createTempConfigFile(t, `
storage:
  type: redis
  redis:
    url: redis://cache:6379/2
    match_ttl: 1h
matchmaking:
  team_size: 3
nats:
  url: nats://broker:4222
`)
			_ = os.Setenv("SKILLMATCH_CONFIG", path)
			_ = os.Setenv("SKILLMATCH_MATCHMAKING__TEAM_SIZE", "4")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the environment wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Storage.Type, convey.ShouldEqual, "redis")
				convey.So(cfg.Storage.Redis.URL, convey.ShouldEqual, "redis://cache:6379/2")
				convey.So(cfg.Storage.Redis.MatchTTL, convey.ShouldEqual, time.Hour)
				convey.So(cfg.Storage.Redis.PoolSize, convey.ShouldEqual, 10)
				convey.So(cfg.Matchmaking.TeamSize, convey.ShouldEqual, 4)
				convey.So(cfg.NATS.URL, convey.ShouldEqual, "nats://broker:4222")
				convey.So(cfg.NATS.SubjectPrefix, convey.ShouldEqual, "skillmatch")
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			_ = os.Setenv("SKILLMATCH_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			_ = os.Setenv("SKILLMATCH_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the team size is zero", func() {
			_ = os.Setenv("SKILLMATCH_MATCHMAKING__TEAM_SIZE", "0")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "team_size")
			})
		})

		convey.Convey("When the storage type is unknown", func() {
			_ = os.Setenv("SKILLMATCH_STORAGE__TYPE", "dynamo")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When player session settings come from the environment", func() {
			_ = os.Setenv("SKILLMATCH_AUTH__PLAYER_TOKEN_SECRET", strings.Repeat("k", 32))
			_ = os.Setenv("SKILLMATCH_AUTH__SESSION_DURATION", "2h")
			_ = os.Setenv("SKILLMATCH_AUTH__CLIENT_ID", "game-server")
			_ = os.Setenv("SKILLMATCH_AUTH__CLIENT_SECRET_HASH", "$2a$04$placeholder")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they are loaded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Auth.PlayerTokenSecret, convey.ShouldHaveLength, 32)
				convey.So(cfg.Auth.SessionDuration, convey.ShouldEqual, 2*time.Hour)
				convey.So(cfg.Auth.TokenIssuer, convey.ShouldEqual, "skillmatch")
			})
		})

		convey.Convey("When a client id is set without a secret hash", func() {
			_ = os.Setenv("SKILLMATCH_AUTH__CLIENT_ID", "fleet")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestValidate(t *testing.T) {
	convey.Convey("Given default config", t, func() {
		cfg := config.New()

		convey.Convey("It is valid", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("A non-positive tau is rejected", func() {
			cfg.Rating.Tau = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("An out of range port is rejected", func() {
			cfg.HTTP.Port = 70000
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("Redis storage needs a URL", func() {
			cfg.Storage.Type = "redis"
			cfg.Storage.Redis.URL = ""
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("A short player token secret is rejected", func() {
			cfg.Auth.PlayerTokenSecret = "short"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("Player tokens need client credentials to issue them", func() {
			cfg.Auth.PlayerTokenSecret = strings.Repeat("k", 32)
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("Unknown log levels fall back to info", func() {
			cfg.LogLevel = "verbose"
			convey.So(cfg.SlogLevel(), convey.ShouldEqual, slog.LevelInfo)
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, config.EnvPrefix) {
			_ = os.Unsetenv(strings.SplitN(kv, "=", 2)[0])
		}
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
