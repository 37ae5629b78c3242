package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/elonfeng/subreader/internal/ingest"
)

// Runner ingests one listing.
type Runner interface {
	Run(ctx context.Context, req ingest.Request) (ingest.Result, error)
}

// Scheduler re-ingests a fixed set of listings on an interval.
type Scheduler struct {
	runner   Runner
	requests []ingest.Request
	interval time.Duration
	logger   *slog.Logger
}

// New creates a new scheduler.
func New(runner Runner, requests []ingest.Request, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		runner:   runner,
		requests: requests,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start.
	s.logger.Info("initial ingestion", "listings", len(s.requests))
	s.ingestAll(ctx)

	s.logger.Info("scheduler running", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.ingestAll(ctx)
		}
	}
}

func (s *Scheduler) ingestAll(ctx context.Context) {
	total := 0
	for _, req := range s.requests {
		if ctx.Err() != nil {
			return
		}
		res, err := s.runner.Run(ctx, req)
		if err != nil {
			s.logger.Error("ingest failed", "subreddit", req.Subreddit, "error", err)
			continue
		}
		total += res.Inserted
	}
	s.logger.Info("ingestion pass done", "inserted", total)
}
