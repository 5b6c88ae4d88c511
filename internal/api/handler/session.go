package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/skillmatch/internal/api/middleware"
	"github.com/mcoot/skillmatch/internal/api/request"
	"github.com/mcoot/skillmatch/internal/api/response"
	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/services/auth"
)

// SessionHandler issues player session tokens
type SessionHandler struct {
	authService *auth.Service
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(authService *auth.Service) *SessionHandler {
	return &SessionHandler{
		authService: authService,
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	session, err := h.authService.CreateSession(model.PlayerID(req.PlayerID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.SessionFromModel(session))
}

// actingAs returns the player a request acts for. Under player auth the
// session's player is used and naming anyone else is forbidden; without it the
// named player is trusted.
func actingAs(r *http.Request, named string) (model.PlayerID, error) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		return model.PlayerID(named), nil
	}
	if named != "" && model.PlayerID(named) != session.PlayerID {
		return "", NewForbiddenError()
	}
	return session.PlayerID, nil
}
