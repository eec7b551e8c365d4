// Package api exposes the aggregation engine's read views and the event
// intake endpoint over HTTP.
//
// The engine is a library first; this server exists for the demo daemon
// and for embedders that want a local sidecar instead of linking the
// engine in. Every GET is a derived view and safe to hammer: reads hit
// the cache, and partial results come back flagged instead of failing.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/approval"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/captain"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/leaderboard"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/roster"
	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/scoring"
)

// Engine is the derivation surface the handlers read from.
type Engine interface {
	ResolveMembers(ctx context.Context, teamID string) ([]string, error)
	IsCaptain(ctx context.Context, identity, teamID string) bool
	CaptainStatus(ctx context.Context, identity string) captain.Status
	ComputeLeaderboard(ctx context.Context, competitionID, teamID string, rule scoring.Rule) (leaderboard.Result, error)
	AuthorizedParticipants(ctx context.Context, competitionID string) ([]string, error)
}

// Ingestor accepts events for asynchronous application to the local log.
// A false return means backpressure.
type Ingestor interface {
	Enqueue(ctx context.Context, e model.Event) bool
}

// Server wires HTTP routes for the engine API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	eventsHandler       *EventsHandler
	leaderboardHandler  *LeaderboardHandler
	membersHandler      *MembersHandler
	captainHandler      *CaptainHandler
	participantsHandler *ParticipantsHandler
}

// NewServer creates an API server over the engine.
func NewServer(engine Engine, ingest Ingestor, stats StatsProvider) *Server {
	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(stats),
		eventsHandler:       NewEventsHandler(ingest),
		leaderboardHandler:  NewLeaderboardHandler(engine),
		membersHandler:      NewMembersHandler(engine),
		captainHandler:      NewCaptainHandler(engine),
		participantsHandler: NewParticipantsHandler(engine),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/members", MetricsMiddleware(s.membersHandler.HandleGetMembers, "members"))
	mux.HandleFunc("/captain/", MetricsMiddleware(s.captainHandler.HandleGetCaptain, "captain"))
	mux.HandleFunc("/participants", MetricsMiddleware(s.participantsHandler.HandleGetParticipants, "participants"))
}

type ackResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates upstream not-found conditions to 404s.
func isNotFound(err error) bool {
	return errors.Is(err, roster.ErrTeamNotFound) ||
		errors.Is(err, approval.ErrCompetitionNotFound)
}
