package api

import (
	"net/http"
	"strconv"
)

// Default and maximum entry limits for leaderboard responses.
const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 500
)

// LeaderboardHandler serves computed standings.
type LeaderboardHandler struct {
	engine Engine
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(engine Engine) *LeaderboardHandler {
	return &LeaderboardHandler{engine: engine}
}

// HandleGetLeaderboard handles GET /leaderboard?competition=ID[&team=ID][&limit=N].
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	competitionID := r.URL.Query().Get("competition")
	if competitionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLeaderboardLimit {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		limit = n
	}

	result, err := h.engine.ComputeLeaderboard(r.Context(), competitionID, r.URL.Query().Get("team"), nil)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if len(result.Entries) > limit {
		result.Entries = result.Entries[:limit]
	}
	writeJSON(w, http.StatusOK, result)
}
