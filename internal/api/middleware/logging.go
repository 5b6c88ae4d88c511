package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/skillmatch/internal/metrics"
	"github.com/mcoot/skillmatch/internal/middleware"
)

// Logging creates request logging middleware for the API
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger)
}

// Metrics creates request metrics middleware for the API
func Metrics(m *metrics.Manager) func(http.Handler) http.Handler {
	return middleware.Metrics(m)
}
