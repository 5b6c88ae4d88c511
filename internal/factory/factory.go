package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/skillmatch/internal/api"
	"github.com/mcoot/skillmatch/internal/config"
	"github.com/mcoot/skillmatch/internal/dependencies/clock"
	"github.com/mcoot/skillmatch/internal/dependencies/random"
	"github.com/mcoot/skillmatch/internal/dispatch"
	"github.com/mcoot/skillmatch/internal/metrics"
	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/rating"
	"github.com/mcoot/skillmatch/internal/services/auth"
	"github.com/mcoot/skillmatch/internal/services/match"
	"github.com/mcoot/skillmatch/internal/services/matchmaking"
	"github.com/mcoot/skillmatch/internal/services/queue"
	"github.com/mcoot/skillmatch/internal/storage"
	"github.com/mcoot/skillmatch/internal/storage/memory"
	redisstorage "github.com/mcoot/skillmatch/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Storage
	Storage storage.Storage

	// External dependencies
	Clock      clock.Clock
	Random     random.Random
	Metrics    *metrics.Manager
	Dispatcher dispatch.Dispatcher

	// Rating
	Engine      *rating.Engine
	TeamAdapter *rating.TeamAdapter

	// Services
	Assembler       *matchmaking.Assembler
	Cycle           *matchmaking.Cycle
	Scheduler       *matchmaking.Scheduler
	QueueController *queue.Controller
	MatchController *match.Controller

	// Auth is nil unless a player token secret is configured
	Auth *auth.Service

	// OutcomeFeed is nil unless NATS is configured
	OutcomeFeed *dispatch.OutcomeFeed

	closers []io.Closer
}

// New creates a new application with all dependencies wired from cfg.
// A nil logger discards output.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var closers []io.Closer

	var store storage.Storage
	switch cfg.Storage.Type {
	case StorageTypeMemory, "":
		store = memory.New()
	case StorageTypeRedis:
		redisStore, err := redisstorage.New(redisstorage.Config{
			URL:          cfg.Storage.Redis.URL,
			PoolSize:     cfg.Storage.Redis.PoolSize,
			MinIdleConns: cfg.Storage.Redis.MinIdleConns,
			MatchTTL:     cfg.Storage.Redis.MatchTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		store = redisStore
		closers = append(closers, redisStore)
	default:
		return nil, fmt.Errorf("invalid storage type %q: must be 'memory' or 'redis'", cfg.Storage.Type)
	}

	var (
		dispatcher dispatch.Dispatcher
		conn       *nats.Conn
	)
	if cfg.NATS.URL != "" {
		var err error
		conn, err = dispatch.Connect(cfg.NATS.URL, cfg.NATS.Name)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connect nats: %w", err), closeAll(closers))
		}
		closers = append(closers, natsCloser{conn})
		dispatcher = dispatch.NewPublisher(conn, cfg.NATS.SubjectPrefix, logger)
	} else {
		dispatcher = dispatch.NewLogDispatcher(logger)
	}

	app := newWithDependencies(cfg, store, clock.New(), random.New(), dispatcher, metrics.NewManager(), logger)
	app.closers = closers

	if conn != nil {
		app.OutcomeFeed = dispatch.NewOutcomeFeed(conn, cfg.NATS.SubjectPrefix, app.resolve, cfg.NATS.OutcomeTimeout, logger)
	}
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	cfg *config.Config,
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	dispatcher dispatch.Dispatcher,
	m *metrics.Manager,
	logger *slog.Logger,
) *App {
	engine := rating.NewEngine(rating.WithTau(cfg.Rating.Tau))
	adapter := rating.NewTeamAdapter(engine)
	assembler := matchmaking.NewAssembler(cfg.Matchmaking.TeamSize, rnd)
	cycle := matchmaking.NewCycle(store, assembler, dispatcher, clk, m, logger,
		matchmaking.WithMaxConflictRetries(cfg.Matchmaking.MaxConflictRetries),
	)
	enrollment := queue.Enrollment{
		Rating:     cfg.Rating.DefaultRating,
		RD:         cfg.Rating.DefaultRD,
		Volatility: cfg.Rating.DefaultVolatility,
	}

	var authService *auth.Service
	if cfg.Auth.PlayerTokenSecret != "" {
		authService = auth.New(clk, auth.Config{
			Secret:          cfg.Auth.PlayerTokenSecret,
			Issuer:          cfg.Auth.TokenIssuer,
			Audience:        cfg.Auth.TokenAudience,
			SessionDuration: cfg.Auth.SessionDuration,
		})
	}

	return &App{
		Config:          cfg,
		Logger:          logger,
		Storage:         store,
		Clock:           clk,
		Random:          rnd,
		Metrics:         m,
		Dispatcher:      dispatcher,
		Engine:          engine,
		TeamAdapter:     adapter,
		Assembler:       assembler,
		Cycle:           cycle,
		Scheduler:       matchmaking.NewScheduler(cycle, cfg.Matchmaking.CycleInterval, cfg.Matchmaking.CycleTimeout, logger),
		QueueController: queue.NewController(store, clk, m, logger, enrollment),
		MatchController: match.NewController(store, adapter, dispatcher, clk, m, logger),
		Auth:            authService,
	}
}

// Router builds the HTTP API for this app
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:           a.Logger,
		Metrics:          a.Metrics,
		QueueController:  a.QueueController,
		MatchController:  a.MatchController,
		Cycle:            a.Cycle,
		ClientID:         a.Config.Auth.ClientID,
		ClientSecretHash: a.Config.Auth.ClientSecretHash,
		AuthService:      a.Auth,
	})
}

// Close releases external connections
func (a *App) Close() error {
	var errs []error
	if a.OutcomeFeed != nil {
		errs = append(errs, a.OutcomeFeed.Close())
	}
	errs = append(errs, closeAll(a.closers))
	return errors.Join(errs...)
}

func (a *App) resolve(ctx context.Context, id model.MatchID, outcome model.Outcome) error {
	_, err := a.MatchController.Resolve(ctx, id, outcome)
	return err
}

type natsCloser struct {
	conn *nats.Conn
}

func (c natsCloser) Close() error {
	return c.conn.Drain()
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i].Close())
	}
	return errors.Join(errs...)
}
