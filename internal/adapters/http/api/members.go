package api

import (
	"net/http"
)

// MembersHandler serves canonical team membership.
type MembersHandler struct {
	engine Engine
}

// NewMembersHandler creates a new members handler.
func NewMembersHandler(engine Engine) *MembersHandler {
	return &MembersHandler{engine: engine}
}

type membersResponse struct {
	TeamID  string   `json:"team_id"`
	Members []string `json:"members"`
}

// HandleGetMembers handles GET /members?team=ID requests. An empty member
// list is a valid 200; a failed resolution is a 5xx so clients never
// mistake an outage for an empty team.
func (h *MembersHandler) HandleGetMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	teamID := r.URL.Query().Get("team")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	members, err := h.engine.ResolveMembers(r.Context(), teamID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusServiceUnavailable, "resolution_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, membersResponse{TeamID: teamID, Members: members})
}
