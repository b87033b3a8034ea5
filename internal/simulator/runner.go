package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/tryout/pkg/logger"
)

// Config controls one simulation run.
type Config struct {
	BaseURL    string
	Sessions   int
	Archetype  Archetype
	BatchSize  int
	WaitResult time.Duration
}

// Runner drives generated sessions through a live service.
type Runner struct {
	cfg    Config
	client *Client
	logger logger.Logger
}

// NewRunner creates a runner for the config.
func NewRunner(cfg Config) *Runner {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 50
	}
	if cfg.Sessions < 1 {
		cfg.Sessions = 1
	}
	if cfg.WaitResult <= 0 {
		cfg.WaitResult = 30 * time.Second
	}
	return &Runner{
		cfg:    cfg,
		client: NewClient(cfg.BaseURL),
		logger: logger.Get().Named("simulator"),
	}
}

// Run generates, ingests and evaluates the configured sessions.
func (r *Runner) Run(ctx context.Context) error {
	for i := 0; i < r.cfg.Sessions; i++ {
		session, err := Generate(ctx, r.cfg.Archetype)
		if err != nil {
			return fmt.Errorf("generate session: %w", err)
		}
		r.logger.Info(ctx, "generated session",
			logger.String("session_id", session.SessionID),
			logger.String("archetype", string(session.Archetype)),
			logger.Int("events", len(session.Events)),
		)

		for start := 0; start < len(session.Events); start += r.cfg.BatchSize {
			end := start + r.cfg.BatchSize
			if end > len(session.Events) {
				end = len(session.Events)
			}
			if err := r.client.PostEvents(ctx, session.SessionID, session.Events[start:end]); err != nil {
				return fmt.Errorf("session %s: %w", session.SessionID, err)
			}
		}

		evalID, err := r.client.TriggerEvaluation(ctx, session.SessionID, session.CandidateID)
		if err != nil {
			return fmt.Errorf("session %s: %w", session.SessionID, err)
		}
		r.logger.Info(ctx, "evaluation scheduled",
			logger.String("session_id", session.SessionID),
			logger.String("evaluation_id", evalID),
		)

		result, err := r.client.FetchEvaluation(ctx, session.SessionID, r.cfg.WaitResult)
		if err != nil {
			return fmt.Errorf("session %s: %w", session.SessionID, err)
		}
		r.logger.Info(ctx, "evaluation completed",
			logger.String("session_id", session.SessionID),
			logger.Int("result_bytes", len(result)),
		)
	}
	return nil
}
