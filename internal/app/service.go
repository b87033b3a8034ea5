// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/okian/tryout/internal/adapters/blob"
	"github.com/okian/tryout/internal/adapters/http/api"
	eventqueue "github.com/okian/tryout/internal/adapters/mq/queue"
	workerpool "github.com/okian/tryout/internal/adapters/mq/worker"
	"github.com/okian/tryout/internal/adapters/repository"
	"github.com/okian/tryout/internal/domain/bias"
	"github.com/okian/tryout/internal/domain/dedupe"
	"github.com/okian/tryout/internal/domain/evaluation"
	"github.com/okian/tryout/internal/domain/event"
	"github.com/okian/tryout/internal/domain/experiment"
	"github.com/okian/tryout/internal/domain/optimizer"
	"github.com/okian/tryout/pkg/logger"
	"github.com/okian/tryout/pkg/metrics"
)

// Authorizer decides whether a caller may write to a session log.
type Authorizer interface {
	Authorize(ctx context.Context, sessionID string) error
}

// allowAll is the default Authorizer.
type allowAll struct{}

func (allowAll) Authorize(ctx context.Context, sessionID string) error { return nil }

// Service implements the API dependencies for the assessment system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	optimizer  *optimizer.Optimizer
	blobs      blob.Store
	jobQueue   eventqueue.Queue
	workerPool *workerpool.Pool
	pipeline   *evaluation.Pipeline
	assigner   *experiment.Assigner
	authorizer Authorizer

	// Configuration
	workerCount        int
	queueSize          int
	dedupeSize         int
	keepEvery          int
	highFrequency      []string
	checkpointTypes    []string
	blobInlineLimit    int
	maxQueryLimit      int
	dimensionWeights   map[string]float64
	biasOptions        []bias.Option
	experimentSalt     string
	experimentVariants []experiment.Variant
	dbPath             string
	blobDir            string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU(),
		queueSize:       1024,
		dedupeSize:      50000,
		keepEvery:       10,
		blobInlineLimit: 64 * 1024,
		maxQueryLimit:   1000,
		experimentSalt:  "tryout-backend",
		dbPath:          "tryout.db",
		authorizer:      allowAll{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting assessment service...")

	store, err := repository.NewSQLiteStore(s.dbPath)
	if err != nil {
		return fmt.Errorf("open event log store: %w", err)
	}
	s.store = store

	if s.blobDir != "" {
		blobs, err := blob.NewFSStore(s.blobDir)
		if err != nil {
			store.Close()
			return fmt.Errorf("open blob store: %w", err)
		}
		s.blobs = blobs
	}

	s.deduper = dedupe.NewRingDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.optimizer = optimizer.New(
		optimizer.WithKeepEvery(s.keepEvery),
		optimizer.WithHighFrequencyTypes(s.highFrequency),
		optimizer.WithCheckpointTypes(s.checkpointTypes),
	)
	s.pipeline = evaluation.New(
		s.store,
		evaluation.WithWeights(s.dimensionWeights),
		evaluation.WithBiasEngine(bias.NewEngine(s.biasOptions...)),
		evaluation.WithLogger(logger.Get().Named("evaluation")),
	)
	s.assigner = experiment.New(
		"scoring-backend",
		s.experimentSalt,
		s.experimentVariants,
		experiment.WithStore(s.store),
	)
	s.jobQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s.pipeline, s.store)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "assessment service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.String("db_path", s.dbPath),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping assessment service...")

	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "assessment service stopped")
}

// RecordEvents validates, debounces and appends one batch. Validation
// is all-or-nothing: a single bad event rejects the whole batch before
// anything is written.
func (s *Service) RecordEvents(ctx context.Context, sessionID, nonce string, events []event.SessionEvent) (api.RecordAck, error) {
	if err := s.authorizer.Authorize(ctx, sessionID); err != nil {
		return api.RecordAck{}, fmt.Errorf("%w: session %s: %w", api.ErrUnauthorized, sessionID, err)
	}

	for i := range events {
		if err := events[i].Validate(); err != nil {
			metrics.RecordBatchRejected()
			return api.RecordAck{}, fmt.Errorf("event %d: %w", i, err)
		}
	}

	var dedupeKey string
	if nonce != "" {
		dedupeKey = dedupe.BatchKey(sessionID, nonce)
		if s.deduper.SeenAndRecord(ctx, dedupeKey) {
			metrics.RecordBatchDuplicate()
			return api.RecordAck{Duplicate: true}, nil
		}
	}

	kept := s.optimizer.Optimize(events)
	if dropped := len(events) - len(kept); dropped > 0 {
		metrics.RecordEventsDebounced(dropped)
	}
	checkpoints := 0
	for i := range kept {
		if kept[i].Checkpoint {
			checkpoints++
		}
		s.offloadSnapshot(ctx, &kept[i])
	}
	metrics.RecordCheckpointsMarked(checkpoints)

	seq, err := s.store.Append(ctx, sessionID, kept)
	if err != nil {
		if dedupeKey != "" {
			// Nothing was written; let the client retry with the
			// same nonce.
			s.deduper.Unrecord(ctx, dedupeKey)
		}
		return api.RecordAck{}, fmt.Errorf("append batch: %w", err)
	}

	return api.RecordAck{
		Accepted:  len(kept),
		Debounced: len(events) - len(kept),
		Seq:       seq,
	}, nil
}

// offloadSnapshot moves oversized snapshot file contents into the blob
// store, replacing them with content references. Blob failures fall
// back to inline storage; ingestion never fails because of blobs.
func (s *Service) offloadSnapshot(ctx context.Context, e *event.SessionEvent) {
	if s.blobs == nil || e.Type != event.TypeCodeSnapshot {
		return
	}
	var payload event.CodeSnapshotPayload
	if err := event.DecodePayload(e.Data, &payload); err != nil || len(payload.Files) == 0 {
		return
	}

	changed := false
	for path, content := range payload.Files {
		if len(content) <= s.blobInlineLimit {
			continue
		}
		ref, err := s.blobs.Put([]byte(content))
		if err != nil {
			metrics.RecordBlobFallback()
			s.logger.Warn(ctx, "blob offload failed, keeping inline",
				logger.String("path", path),
				logger.Error(err),
			)
			continue
		}
		if payload.BlobRefs == nil {
			payload.BlobRefs = make(map[string]string)
		}
		payload.BlobRefs[path] = ref.Digest
		delete(payload.Files, path)
		changed = true
	}
	if !changed {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	e.Data = data
}

// QueryEvents reads a filtered page of a session's event log.
func (s *Service) QueryEvents(ctx context.Context, sessionID string, f repository.Filter) (api.QueryPage, error) {
	if f.Limit <= 0 || f.Limit > s.maxQueryLimit {
		f.Limit = s.maxQueryLimit
	}

	info, err := s.store.SessionInfo(ctx, sessionID)
	if err != nil {
		return api.QueryPage{}, err
	}
	events, err := s.store.Query(ctx, sessionID, f)
	if err != nil {
		return api.QueryPage{}, fmt.Errorf("query events: %w", err)
	}
	total, err := s.store.Count(ctx, sessionID, f)
	if err != nil {
		return api.QueryPage{}, fmt.Errorf("count events: %w", err)
	}

	return api.QueryPage{Events: events, Total: total, Session: info}, nil
}

// EnqueueEvaluation schedules an asynchronous evaluation run and
// returns the id the result will be stored under. The session's sticky
// experiment variant picks the scoring backend unless the request
// already names one.
func (s *Service) EnqueueEvaluation(ctx context.Context, req evaluation.Request) (string, bool) {
	if req.Backend == "" {
		assignment, err := s.AssignVariant(ctx, req.SessionID, req.CandidateID)
		if err != nil {
			s.logger.Warn(ctx, "variant assignment failed, using default backend",
				logger.String("session_id", req.SessionID),
				logger.Error(err),
			)
		} else {
			req.Backend = assignment.Backend
		}
	}

	id := ulid.Make().String()
	ok := s.jobQueue.Enqueue(ctx, eventqueue.Job{ID: id, Request: req})
	if !ok {
		return "", false
	}
	return id, true
}

// LatestEvaluation returns the most recent evaluation result for a
// session.
func (s *Service) LatestEvaluation(ctx context.Context, sessionID string) (*evaluation.Result, error) {
	return s.store.LatestEvaluation(ctx, sessionID)
}

// DeleteSession tears down a session's log, evaluations and experiment
// assignment.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.store.SessionInfo(ctx, sessionID); err != nil {
		return err
	}
	return s.store.DeleteSession(ctx, sessionID)
}

// AssignVariant returns the sticky experiment variant for a session.
func (s *Service) AssignVariant(ctx context.Context, sessionID, userID string) (experiment.Assignment, error) {
	return s.assigner.Assign(ctx, sessionID, userID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
		"dedupe_size":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.jobQueue.Len(ctx)
		stats["queue_length"] = queueLen
		stats["dedupe_entries"] = s.deduper.Size()

		if sessions, err := s.store.SessionCount(ctx); err == nil {
			stats["total_sessions"] = sessions
			metrics.UpdateTotalSessions(int(sessions))
		}
	}
	return stats
}
