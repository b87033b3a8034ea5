// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/okian/tryout/internal/adapters/repository"
	"github.com/okian/tryout/internal/domain/event"
)

// maxBatchBytes caps one ingest request body.
const maxBatchBytes = 8 << 20

// EventsHandler handles event ingestion requests.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventPayload mirrors the wire schema of one event. Sequence numbers
// are absent: the log assigns them.
type eventPayload struct {
	Type          string          `json:"type"`
	Origin        string          `json:"origin,omitempty"`
	Timestamp     time.Time       `json:"timestamp,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	FilePath      string          `json:"file_path,omitempty"`
	QuestionIndex int             `json:"question_index,omitempty"`
}

// recordRequest is the batch form of POST /sessions/{id}/events. A bare
// event object is also accepted and treated as a batch of one.
type recordRequest struct {
	Nonce  string         `json:"nonce,omitempty"`
	Events []eventPayload `json:"events"`
}

func (p eventPayload) toEvent(sessionID string) event.SessionEvent {
	return event.SessionEvent{
		SessionID:     sessionID,
		Type:          p.Type,
		Origin:        event.Origin(p.Origin),
		Timestamp:     p.Timestamp,
		Data:          p.Data,
		FilePath:      p.FilePath,
		QuestionIndex: p.QuestionIndex,
	}
}

// HandlePostEvents handles POST /sessions/{id}/events requests.
func (h *EventsHandler) HandlePostEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_events"
	sessionID := r.PathValue("id")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBatchBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	var req recordRequest
	if err := json.Unmarshal(body, &req); err != nil || len(req.Events) == 0 {
		// Fall back to the single-event form.
		var single eventPayload
		if err := json.Unmarshal(body, &single); err != nil || single.Type == "" {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrEmptyBatch))
			return
		}
		req = recordRequest{Events: []eventPayload{single}}
	}

	events := make([]event.SessionEvent, len(req.Events))
	for i, p := range req.Events {
		events[i] = p.toEvent(sessionID)
	}

	ack, err := h.deps.RecordEvents(r.Context(), sessionID, req.Nonce, events)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden", Wrap(op, err))
		return
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	default:
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
		return
	}

	if ack.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{
			Status:    "duplicate",
			Success:   true,
			Duplicate: true,
			SessionID: sessionID,
		})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{
		Status:    "accepted",
		Success:   true,
		Accepted:  ack.Accepted,
		Recorded:  ack.Accepted,
		Debounced: ack.Debounced,
		FirstSeq:  ack.Seq.First,
		LastSeq:   ack.Seq.Last,
		SessionID: sessionID,
	})
}

// HandleDeleteSession handles DELETE /sessions/{id} requests.
func (h *EventsHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_session"
	sessionID := r.PathValue("id")

	if err := h.deps.DeleteSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// isValidationError reports whether the batch was rejected by event
// validation rather than by infrastructure.
func isValidationError(err error) bool {
	return errors.Is(err, event.ErrUnknownType) ||
		errors.Is(err, event.ErrUnknownOrigin) ||
		errors.Is(err, event.ErrMalformedPayload) ||
		errors.Is(err, event.ErrSeqAssigned)
}
