package api

import (
	"net/http"
	"strings"
)

// CaptainHandler serves derived captaincy views.
type CaptainHandler struct {
	engine Engine
}

// NewCaptainHandler creates a new captain handler.
func NewCaptainHandler(engine Engine) *CaptainHandler {
	return &CaptainHandler{engine: engine}
}

type captainCheckResponse struct {
	Identity  string `json:"identity"`
	TeamID    string `json:"team_id"`
	IsCaptain bool   `json:"is_captain"`
}

// HandleGetCaptain handles GET /captain/{identity} requests. With a
// ?team=ID query it answers the single-team check; without one it returns
// the identity's full ownership status from the broad scan.
func (h *CaptainHandler) HandleGetCaptain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	identity := strings.TrimPrefix(r.URL.Path, "/captain/")
	if identity == "" || strings.Contains(identity, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	if teamID := r.URL.Query().Get("team"); teamID != "" {
		writeJSON(w, http.StatusOK, captainCheckResponse{
			Identity:  identity,
			TeamID:    teamID,
			IsCaptain: h.engine.IsCaptain(r.Context(), identity, teamID),
		})
		return
	}
	writeJSON(w, http.StatusOK, h.engine.CaptainStatus(r.Context(), identity))
}
