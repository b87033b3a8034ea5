// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/tryout/internal/adapters/repository"
	"github.com/okian/tryout/internal/domain/evaluation"
	"github.com/okian/tryout/internal/domain/event"
)

// Dependencies required by HTTP handlers. Using an interface bundle
// keeps the handler layer loosely coupled to implementations in other
// packages.
type Dependencies interface {
	// RecordEvents validates, debounces and appends one batch to a
	// session's log. The nonce makes retried batches idempotent.
	RecordEvents(ctx context.Context, sessionID, nonce string, events []event.SessionEvent) (RecordAck, error)

	// QueryEvents reads a filtered, paginated page of a session's log.
	QueryEvents(ctx context.Context, sessionID string, f repository.Filter) (QueryPage, error)

	// EnqueueEvaluation schedules an asynchronous evaluation run.
	// Returns the evaluation id, or false on backpressure.
	EnqueueEvaluation(ctx context.Context, req evaluation.Request) (string, bool)

	// LatestEvaluation returns the most recent evaluation result.
	LatestEvaluation(ctx context.Context, sessionID string) (*evaluation.Result, error)

	// DeleteSession tears down a session's log and evaluations.
	DeleteSession(ctx context.Context, sessionID string) error
}

// RecordAck reports the outcome of one ingest batch.
type RecordAck struct {
	Duplicate bool
	Accepted  int
	Debounced int
	Seq       repository.SeqRange
}

// QueryPage is one page of a session's event log.
type QueryPage struct {
	Events  []event.SessionEvent
	Total   int64
	Session repository.SessionInfo
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	queryHandler    *QueryHandler
	evaluateHandler *EvaluateHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		eventsHandler:   NewEventsHandler(deps),
		queryHandler:    NewQueryHandler(deps),
		evaluateHandler: NewEvaluateHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /sessions/{id}/events", MetricsMiddleware(s.eventsHandler.HandlePostEvents, "post_events"))
	mux.HandleFunc("GET /sessions/{id}/events", MetricsMiddleware(s.queryHandler.HandleGetEvents, "get_events"))
	mux.HandleFunc("POST /sessions/{id}/evaluation", MetricsMiddleware(s.evaluateHandler.HandlePostEvaluation, "post_evaluation"))
	mux.HandleFunc("GET /sessions/{id}/evaluation", MetricsMiddleware(s.evaluateHandler.HandleGetEvaluation, "get_evaluation"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(s.eventsHandler.HandleDeleteSession, "delete_session"))
}

// ackResponse acknowledges one ingest batch. Success, Recorded and
// SessionID duplicate Status/Accepted for clients that speak the older
// response shape.
type ackResponse struct {
	Status    string `json:"status"`
	Success   bool   `json:"success"`
	Duplicate bool   `json:"duplicate"`
	Accepted  int    `json:"accepted"`
	Recorded  int    `json:"recorded"`
	Debounced int    `json:"debounced"`
	FirstSeq  int64  `json:"first_seq"`
	LastSeq   int64  `json:"last_seq"`
	SessionID string `json:"session_id"`
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

// Wrap annotates err with the operation that produced it.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind attaches both a kind and the underlying cause.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
