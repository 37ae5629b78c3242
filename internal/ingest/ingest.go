package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/elonfeng/subreader/internal/store"
	"github.com/elonfeng/subreader/pkg/source"
)

// Request names one top listing to ingest.
type Request struct {
	Subreddit string
	Limit     int
	Time      source.TimeFilter
}

// Result summarises one ingestion run.
type Result struct {
	Fetched    int `json:"fetched"`
	Inserted   int `json:"inserted"`
	Subreddits int `json:"subreddits"`
}

// Ingester copies top listings from a source into the store.
type Ingester struct {
	store  *store.Store
	source source.Source
	logger *slog.Logger

	processed atomic.Int64
}

// New creates an Ingester. A nil logger discards log output.
func New(st *store.Store, src source.Source, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ingester{store: st, source: src, logger: logger}
}

// Progress is the number of submissions written so far across all runs.
func (in *Ingester) Progress() int64 {
	return in.processed.Load()
}

// Run fetches the listing and writes it in one unit of work with a single
// commit at the end. A failure leaves nothing of the run behind, and
// running it again is safe.
func (in *Ingester) Run(ctx context.Context, req Request) (Result, error) {
	if req.Time == "" {
		req.Time = source.TimeAll
	}
	log := in.logger.With("subreddit", req.Subreddit, "source", in.source.Name())

	var (
		home source.Subreddit
		err  error
	)
	aggregate := source.IsAggregate(req.Subreddit)
	if !aggregate {
		home, err = in.source.Subreddit(ctx, req.Subreddit)
		if err != nil {
			return Result{}, fmt.Errorf("resolve r/%s: %w", req.Subreddit, err)
		}
	}

	posts, err := in.source.Top(ctx, req.Subreddit, req.Limit, req.Time)
	if err != nil {
		return Result{}, fmt.Errorf("fetch r/%s top: %w", req.Subreddit, err)
	}
	log.Debug("fetched listing", "count", len(posts), "time", req.Time)

	tx, err := in.store.Begin(ctx)
	if err != nil {
		return Result{}, err
	}
	defer tx.Close()

	res := Result{Fetched: len(posts)}
	if !aggregate {
		if err := in.addSubreddit(ctx, tx, home, &res); err != nil {
			return Result{}, err
		}
	}

	for _, post := range posts {
		sub := home
		if aggregate {
			sub = post.Subreddit
			if err := in.addSubreddit(ctx, tx, sub, &res); err != nil {
				return Result{}, err
			}
		}

		inserted, err := tx.UpsertSubmission(ctx, post, sub.ID)
		if err != nil {
			return Result{}, err
		}
		if inserted {
			res.Inserted++
		}
		in.processed.Add(1)
	}

	if err := tx.Commit(); err != nil {
		return Result{}, err
	}

	log.Info("ingested listing", "fetched", res.Fetched, "inserted", res.Inserted, "new_subreddits", res.Subreddits)
	return res, nil
}

func (in *Ingester) addSubreddit(ctx context.Context, tx *store.Tx, sub source.Subreddit, res *Result) error {
	if sub.ID == "" {
		return fmt.Errorf("subreddit %q has no id", sub.DisplayName)
	}
	inserted, err := tx.UpsertSubreddit(ctx, sub)
	if err != nil {
		return err
	}
	if inserted {
		res.Subreddits++
	}
	return nil
}
