package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/rating"
	"github.com/mcoot/skillmatch/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodePlayerExists        = "PLAYER_EXISTS"
	CodeInvalidPlayerRecord = "INVALID_PLAYER_RECORD"
	CodeRegionNotSet        = "REGION_NOT_SET"
	CodeAlreadyInMatch      = "ALREADY_IN_MATCH"
	CodeNotInQueue          = "NOT_IN_QUEUE"
	CodeAlreadyInQueue      = "ALREADY_IN_QUEUE"
	CodeQueueConflict       = "QUEUE_CONFLICT"
	CodeMatchNotFound       = "MATCH_NOT_FOUND"
	CodeInvalidOutcome      = "INVALID_OUTCOME"
	CodeInvalidServerAddr   = "INVALID_SERVER_ADDR"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status WriteError would use for err
func Status(err error) int {
	return toHTTPError(err).status
}

func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Sessions
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrMissingPlayer):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "player_id is required"}}

	// Players
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrPlayerExists):
		return &httpError{http.StatusConflict, APIError{CodePlayerExists, "Player already exists"}}
	case errors.Is(err, model.ErrInvalidPlayerRecord):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeInvalidPlayerRecord, err.Error()}}
	case errors.Is(err, model.ErrRegionNotSet):
		return &httpError{http.StatusBadRequest, APIError{CodeRegionNotSet, "No region given and none stored for player"}}
	case errors.Is(err, model.ErrAlreadyInMatch):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInMatch, "Player is already in a match"}}

	// Queue
	case errors.Is(err, model.ErrNotInQueue):
		return &httpError{http.StatusNotFound, APIError{CodeNotInQueue, "Player is not in queue"}}
	case errors.Is(err, model.ErrAlreadyInQueue):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInQueue, "Player is already in queue"}}
	case errors.Is(err, model.ErrQueueConflict):
		return &httpError{http.StatusConflict, APIError{CodeQueueConflict, "Queue changed concurrently, retry"}}

	// Matches
	case errors.Is(err, model.ErrMatchNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Match not found"}}
	case errors.Is(err, model.ErrInvalidOutcome), errors.Is(err, rating.ErrInvalidScore):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidOutcome, "Result must be team1, team2, draw, home or away"}}
	case errors.Is(err, rating.ErrSolverDiverged):
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Rating update did not converge, outcome not recorded"}}
	case errors.Is(err, model.ErrInvalidServerAddr):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidServerAddr, "server_addr is required"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Credentials required"}}
}

// NewForbiddenError refuses a request made on behalf of another player
func NewForbiddenError() error {
	return &httpError{http.StatusForbidden, APIError{CodeForbidden, "Session does not belong to this player"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
