package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mcoot/skillmatch/internal/api/apierr"
	"github.com/mcoot/skillmatch/internal/middleware"
	"github.com/mcoot/skillmatch/internal/rating"
)

// Recovery turns handler panics into the JSON error envelope
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, apiPanicHandler)
}

// A diverged volatility solver panics mid-resolve; it gets its own message so
// game servers know the outcome can be resent.
func apiPanicHandler(w http.ResponseWriter, _ *http.Request, recovered any) {
	if err, ok := recovered.(error); ok && errors.Is(err, rating.ErrSolverDiverged) {
		apierr.WriteError(w, err)
		return
	}
	apierr.WriteError(w, apierr.NewInternalError())
}
