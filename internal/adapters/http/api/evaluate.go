// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/tryout/internal/adapters/repository"
	"github.com/okian/tryout/internal/domain/evaluation"
	"github.com/okian/tryout/internal/domain/progressive"
)

// EvaluateHandler serves evaluation scheduling and retrieval.
type EvaluateHandler struct {
	deps Dependencies
}

// NewEvaluateHandler creates a new evaluate handler.
func NewEvaluateHandler(deps Dependencies) *EvaluateHandler {
	return &EvaluateHandler{deps: deps}
}

// evaluateRequest mirrors the wire schema of POST
// /sessions/{id}/evaluation. All fields are optional; the session id
// comes from the path.
type evaluateRequest struct {
	CandidateID string                 `json:"candidate_id,omitempty"`
	Role        string                 `json:"role,omitempty"`
	Seniority   string                 `json:"seniority,omitempty"`
	Backend     string                 `json:"backend,omitempty"`
	Questions   []progressive.Question `json:"questions,omitempty"`
}

type evaluateAccepted struct {
	Status       string `json:"status"`
	EvaluationID string `json:"evaluation_id"`
}

// HandlePostEvaluation handles POST /sessions/{id}/evaluation requests.
// Evaluation runs asynchronously; the returned id can be polled via the
// GET endpoint.
func (h *EvaluateHandler) HandlePostEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_evaluation"
	sessionID := r.PathValue("id")

	var req evaluateRequest
	if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
	}

	id, ok := h.deps.EnqueueEvaluation(r.Context(), evaluation.Request{
		SessionID:   sessionID,
		CandidateID: req.CandidateID,
		Role:        req.Role,
		Seniority:   req.Seniority,
		Backend:     req.Backend,
		Questions:   req.Questions,
	})
	if !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, evaluateAccepted{Status: "accepted", EvaluationID: id})
}

// HandleGetEvaluation handles GET /sessions/{id}/evaluation requests.
// Returns the most recent completed evaluation for the session.
func (h *EvaluateHandler) HandleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_evaluation"
	sessionID := r.PathValue("id")

	result, err := h.deps.LatestEvaluation(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}
