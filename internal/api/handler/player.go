package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/skillmatch/internal/api/request"
	"github.com/mcoot/skillmatch/internal/api/response"
	"github.com/mcoot/skillmatch/internal/model"
	"github.com/mcoot/skillmatch/internal/services/queue"
)

// PlayerHandler handles player endpoints
type PlayerHandler struct {
	queueController *queue.Controller
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(queueController *queue.Controller) *PlayerHandler {
	return &PlayerHandler{
		queueController: queueController,
	}
}

// Create handles POST /api/v1/players
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	id, err := actingAs(r, req.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if id == "" {
		WriteError(w, NewInvalidRequestError("id is required"))
		return
	}
	if req.Region == "" {
		WriteError(w, NewInvalidRequestError("region is required"))
		return
	}

	player, err := h.queueController.Enroll(r.Context(), id, model.Region(req.Region))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.PlayerFromModel(player))
}

// Get handles GET /api/v1/players/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := actingAs(r, mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, err)
		return
	}

	player, err := h.queueController.GetPlayer(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(player))
}
