package api

import (
	"net/http"
)

// ParticipantsHandler serves authorized-participant sets.
type ParticipantsHandler struct {
	engine Engine
}

// NewParticipantsHandler creates a new participants handler.
func NewParticipantsHandler(engine Engine) *ParticipantsHandler {
	return &ParticipantsHandler{engine: engine}
}

type participantsResponse struct {
	CompetitionID string   `json:"competition_id"`
	Authorized    []string `json:"authorized"`
}

// HandleGetParticipants handles GET /participants?competition=ID requests.
func (h *ParticipantsHandler) HandleGetParticipants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	competitionID := r.URL.Query().Get("competition")
	if competitionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	authorized, err := h.engine.AuthorizedParticipants(r.Context(), competitionID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, participantsResponse{
		CompetitionID: competitionID,
		Authorized:    authorized,
	})
}
