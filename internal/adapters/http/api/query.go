// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/tryout/internal/adapters/repository"
	"github.com/okian/tryout/internal/domain/event"
)

const defaultPageLimit = 100

// QueryHandler serves read access to session event logs.
type QueryHandler struct {
	deps Dependencies
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(deps Dependencies) *QueryHandler {
	return &QueryHandler{deps: deps}
}

type paginationResponse struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

type queryResponse struct {
	Events      []event.SessionEvent   `json:"events"`
	Pagination  paginationResponse     `json:"pagination"`
	SessionInfo repository.SessionInfo `json:"session_info"`
}

// HandleGetEvents handles GET /sessions/{id}/events requests.
//
// Supported query parameters: from, to (RFC3339), types (comma
// separated, alias: type), checkpoints_only (alias: checkpoints),
// limit, offset.
func (h *QueryHandler) HandleGetEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_events"
	sessionID := r.PathValue("id")

	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	page, err := h.deps.QueryEvents(r.Context(), sessionID, f)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
		return
	}

	events := page.Events
	if events == nil {
		events = []event.SessionEvent{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Events: events,
		Pagination: paginationResponse{
			Total:   page.Total,
			Limit:   f.Limit,
			Offset:  f.Offset,
			HasMore: int64(f.Offset+len(events)) < page.Total,
		},
		SessionInfo: page.Session,
	})
}

func parseFilter(r *http.Request) (repository.Filter, error) {
	q := r.URL.Query()
	f := repository.Filter{Limit: defaultPageLimit}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.New("invalid from; must be RFC3339")
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.New("invalid to; must be RFC3339")
		}
		f.To = t
	}
	// "type" and "checkpoints" are accepted as aliases.
	types := q.Get("types")
	if types == "" {
		types = q.Get("type")
	}
	if types != "" {
		for _, t := range strings.Split(types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Types = append(f.Types, t)
			}
		}
	}
	checkpoints := q.Get("checkpoints_only")
	if checkpoints == "" {
		checkpoints = q.Get("checkpoints")
	}
	if checkpoints == "true" || checkpoints == "1" {
		f.CheckpointsOnly = true
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, errors.New("invalid limit")
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("invalid offset")
		}
		f.Offset = n
	}
	return f, nil
}
