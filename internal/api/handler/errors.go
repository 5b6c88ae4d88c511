package handler

import (
	"net/http"

	"github.com/mcoot/skillmatch/internal/api/apierr"
)

// Re-export from apierr for convenience
type APIError = apierr.APIError
type ErrorResponse = apierr.ErrorResponse

// Re-export error codes
const (
	CodeInvalidRequest      = apierr.CodeInvalidRequest
	CodeUnauthorized        = apierr.CodeUnauthorized
	CodeForbidden           = apierr.CodeForbidden
	CodePlayerNotFound      = apierr.CodePlayerNotFound
	CodePlayerExists        = apierr.CodePlayerExists
	CodeInvalidPlayerRecord = apierr.CodeInvalidPlayerRecord
	CodeRegionNotSet        = apierr.CodeRegionNotSet
	CodeAlreadyInMatch      = apierr.CodeAlreadyInMatch
	CodeNotInQueue          = apierr.CodeNotInQueue
	CodeAlreadyInQueue      = apierr.CodeAlreadyInQueue
	CodeQueueConflict       = apierr.CodeQueueConflict
	CodeMatchNotFound       = apierr.CodeMatchNotFound
	CodeInvalidOutcome      = apierr.CodeInvalidOutcome
	CodeInvalidServerAddr   = apierr.CodeInvalidServerAddr
	CodeInternalError       = apierr.CodeInternalError
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError() error {
	return apierr.NewForbiddenError()
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}
