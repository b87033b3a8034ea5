// sessionsim generates synthetic assessment sessions, ingests them into
// a running service and waits for their evaluations.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/tryout/internal/simulator"
	"github.com/okian/tryout/pkg/logger"
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9090", "service base URL")
		sessions  = flag.Int("sessions", 1, "number of sessions to simulate")
		archetype = flag.String("archetype", "average", "candidate archetype: strong, average, weak")
		batchSize = flag.Int("batch", 50, "events per ingest batch")
		wait      = flag.Duration("wait", 30*time.Second, "max time to wait for each evaluation")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := simulator.NewRunner(simulator.Config{
		BaseURL:    *baseURL,
		Sessions:   *sessions,
		Archetype:  simulator.Archetype(*archetype),
		BatchSize:  *batchSize,
		WaitResult: *wait,
	})
	if err := runner.Run(ctx); err != nil {
		log.Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
	log.Info(ctx, "simulation finished")
}
