package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/skillmatch/internal/api/request"
	"github.com/mcoot/skillmatch/internal/api/response"
	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/services/match"
	"github.com/mcoot/skillmatch/internal/services/matchmaking"
)

// MatchHandler handles matchmaking and match lifecycle endpoints
type MatchHandler struct {
	matchController *match.Controller
	cycle           *matchmaking.Cycle
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matchController *match.Controller, cycle *matchmaking.Cycle) *MatchHandler {
	return &MatchHandler{
		matchController: matchController,
		cycle:           cycle,
	}
}

// RunCycle handles POST /api/v1/matchmaking/cycle
func (h *MatchHandler) RunCycle(w http.ResponseWriter, r *http.Request) {
	matches, err := h.cycle.Run(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CycleResultFromModel(matches))
}

// Get handles GET /api/v1/matches/{id}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	m, err := h.matchController.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// Ready handles POST /api/v1/matches/{id}/ready
func (h *MatchHandler) Ready(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	var req request.ServerReadyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	m, err := h.matchController.MarkReady(r.Context(), id, req.ServerAddr)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(m))
}

// Result handles POST /api/v1/matches/{id}/result
func (h *MatchHandler) Result(w http.ResponseWriter, r *http.Request) {
	id := model.MatchID(mux.Vars(r)["id"])

	var req request.ResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	outcome, err := model.ParseOutcome(req.Result)
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.matchController.Resolve(r.Context(), id, outcome)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ResolutionFromModel(res))
}
