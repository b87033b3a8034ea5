// Package experiment implements sticky backend variant assignment: a
// deterministic hash picks the bucket, and the assignment is computed
// once per session and reused for its lifetime.
package experiment

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Buckets span [0, 100); variant percentages must sum to at most 100.
const bucketCount = 100

// Variant is one arm of an experiment.
type Variant struct {
	ID      string
	Backend string
	Percent int
}

// Assignment binds a (session, user) pair to a backend variant.
type Assignment struct {
	ID           string    `json:"id"`
	ExperimentID string    `json:"experiment_id"`
	VariantID    string    `json:"variant_id"`
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id"`
	AssignedAt   time.Time `json:"assigned_at"`
	Backend      string    `json:"backend"`
}

// AssignmentStore persists assignments so they survive process restarts.
type AssignmentStore interface {
	SaveAssignment(ctx context.Context, a Assignment) error
	LoadAssignment(ctx context.Context, sessionID string) (Assignment, bool, error)
}

// Assigner hands out sticky assignments for a single experiment.
type Assigner struct {
	experimentID string
	salt         string
	variants     []Variant

	mu    sync.Mutex
	cache map[string]Assignment
	store AssignmentStore
}

// New creates an Assigner. Variants keep their declared order; buckets
// are carved out cumulatively by percentage.
func New(experimentID, salt string, variants []Variant, opts ...Option) *Assigner {
	a := &Assigner{
		experimentID: experimentID,
		salt:         salt,
		variants:     variants,
		cache:        make(map[string]Assignment),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Bucket computes the deterministic bucket for a user: never recomputed
// per request, so the same user always lands in the same bucket.
func Bucket(userID, salt string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	_, _ = h.Write([]byte(":"))
	_, _ = h.Write([]byte(salt))
	return int(h.Sum32() % bucketCount)
}

// Assign returns the session's sticky assignment, creating and caching
// it on first use. The cached value is returned for the session's whole
// lifetime; the hash is never re-evaluated after creation.
func (a *Assigner) Assign(ctx context.Context, sessionID, userID string) (Assignment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cached, ok := a.cache[sessionID]; ok {
		return cached, nil
	}

	if a.store != nil {
		persisted, ok, err := a.store.LoadAssignment(ctx, sessionID)
		if err == nil && ok {
			a.cache[sessionID] = persisted
			return persisted, nil
		}
	}

	v := a.variantFor(Bucket(userID, a.salt))
	assignment := Assignment{
		ID:           uuid.NewString(),
		ExperimentID: a.experimentID,
		VariantID:    v.ID,
		UserID:       userID,
		SessionID:    sessionID,
		AssignedAt:   time.Now().UTC(),
		Backend:      v.Backend,
	}

	if a.store != nil {
		if err := a.store.SaveAssignment(ctx, assignment); err != nil {
			return Assignment{}, err
		}
	}
	a.cache[sessionID] = assignment
	return assignment, nil
}

// variantFor walks cumulative percentages; buckets past the declared
// coverage fall into the last variant.
func (a *Assigner) variantFor(bucket int) Variant {
	if len(a.variants) == 0 {
		return Variant{ID: "default", Backend: "default"}
	}
	cumulative := 0
	for _, v := range a.variants {
		cumulative += v.Percent
		if bucket < cumulative {
			return v
		}
	}
	return a.variants[len(a.variants)-1]
}

// CachedSessions returns the session ids with live assignments, sorted.
// Intended for stats and tests.
func (a *Assigner) CachedSessions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.cache))
	for id := range a.cache {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
