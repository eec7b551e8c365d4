package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/RUNSTR-LLC/RUNSTR-sub003/internal/domain/model"
)

// EventsHandler accepts relay events for asynchronous ingest.
type EventsHandler struct {
	ingest Ingestor
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(ingest Ingestor) *EventsHandler {
	return &EventsHandler{ingest: ingest}
}

// eventRequest is the wire shape of POST /events, mirroring the relay
// event envelope.
type eventRequest struct {
	ID        string     `json:"id"`
	Pubkey    string     `json:"pubkey"`
	Kind      int        `json:"kind"`
	CreatedAt int64      `json:"created_at"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.Pubkey) == "":
		return errors.New("missing pubkey")
	case e.Kind <= 0:
		return errors.New("missing kind")
	case e.CreatedAt <= 0:
		return errors.New("missing created_at")
	}
	return nil
}

func (e eventRequest) toModel() model.Event {
	return model.Event{
		ID:        e.ID,
		Author:    e.Pubkey,
		Kind:      e.Kind,
		CreatedAt: e.CreatedAt,
		Tags:      e.Tags,
		Content:   e.Content,
	}
}

// HandlePostEvent handles POST /events requests. Duplicate ids are
// accepted here and dropped by the ingest workers; the endpoint stays
// idempotent without a synchronous log lookup.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if ok := h.ingest.Enqueue(r.Context(), req.toModel()); !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: req.ID})
}
