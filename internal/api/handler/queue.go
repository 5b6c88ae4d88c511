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

// QueueHandler handles queue endpoints
type QueueHandler struct {
	queueController *queue.Controller
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queueController *queue.Controller) *QueueHandler {
	return &QueueHandler{
		queueController: queueController,
	}
}

// Join handles POST /api/v1/queue
func (h *QueueHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req request.JoinQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	id, err := actingAs(r, req.PlayerID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if id == "" {
		WriteError(w, NewInvalidRequestError("player_id is required"))
		return
	}

	entry, err := h.queueController.Join(r.Context(), queue.JoinRequest{
		PlayerID:     id,
		Region:       model.Region(req.Region),
		ConnectionID: req.ConnectionID,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, response.QueueEntryFromModel(*entry))
}

// Leave handles DELETE /api/v1/queue/{player_id}
func (h *QueueHandler) Leave(w http.ResponseWriter, r *http.Request) {
	id, err := actingAs(r, mux.Vars(r)["player_id"])
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.queueController.Leave(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// List handles GET /api/v1/queue/{region}
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	region := mux.Vars(r)["region"]

	entries, err := h.queueController.List(r.Context(), model.Region(region))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Queue{
		Region:  region,
		Entries: response.QueueEntriesFromModel(entries),
	})
}
