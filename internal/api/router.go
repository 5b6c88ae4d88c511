package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/skillmatch/internal/api/handler"
	"github.com/mcoot/skillmatch/internal/api/middleware"
	"github.com/mcoot/skillmatch/internal/metrics"
	"github.com/mcoot/skillmatch/internal/services/auth"
	"github.com/mcoot/skillmatch/internal/services/match"
	"github.com/mcoot/skillmatch/internal/services/matchmaking"
	"github.com/mcoot/skillmatch/internal/services/queue"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	Metrics         *metrics.Manager
	QueueController *queue.Controller
	MatchController *match.Controller
	Cycle           *matchmaking.Cycle

	// Game-server credentials; an empty ClientID leaves the server routes open
	ClientID         string
	ClientSecretHash string

	// AuthService validates player sessions; nil leaves the player routes open
	// and disables session issuing
	AuthService *auth.Service
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.QueueController)
	queueHandler := handler.NewQueueHandler(cfg.QueueController)
	matchHandler := handler.NewMatchHandler(cfg.MatchController, cfg.Cycle)

	clientAuthMiddleware := middleware.ClientAuth(cfg.ClientID, cfg.ClientSecretHash)
	playerAuthMiddleware := middleware.PlayerAuth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	metricsMiddleware := middleware.Metrics(cfg.Metrics)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)
	api.Use(metricsMiddleware)

	// Player-facing routes act for the session's player
	players := api.NewRoute().Subrouter()
	players.Use(playerAuthMiddleware)
	players.HandleFunc("/players", playerHandler.Create).Methods(http.MethodPost)
	players.HandleFunc("/players/{id}", playerHandler.Get).Methods(http.MethodGet)
	players.HandleFunc("/queue", queueHandler.Join).Methods(http.MethodPost)
	players.HandleFunc("/queue/{player_id}", queueHandler.Leave).Methods(http.MethodDelete)
	players.HandleFunc("/queue/{region}", queueHandler.List).Methods(http.MethodGet)
	players.HandleFunc("/matches/{id}", matchHandler.Get).Methods(http.MethodGet)

	// Game-server and operator routes
	servers := api.NewRoute().Subrouter()
	servers.Use(clientAuthMiddleware)
	servers.HandleFunc("/matchmaking/cycle", matchHandler.RunCycle).Methods(http.MethodPost)
	servers.HandleFunc("/matches/{id}/ready", matchHandler.Ready).Methods(http.MethodPost)
	servers.HandleFunc("/matches/{id}/result", matchHandler.Result).Methods(http.MethodPost)
	if cfg.AuthService != nil {
		sessionHandler := handler.NewSessionHandler(cfg.AuthService)
		servers.HandleFunc("/sessions", sessionHandler.Create).Methods(http.MethodPost)
	}

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
