package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/elonfeng/subreader/internal/config"
	"github.com/elonfeng/subreader/internal/ingest"
	"github.com/elonfeng/subreader/internal/logging"
	"github.com/elonfeng/subreader/internal/scheduler"
	"github.com/elonfeng/subreader/internal/store"
	"github.com/elonfeng/subreader/pkg/server"
	"github.com/elonfeng/subreader/pkg/source"
	"golang.org/x/sync/errgroup"
)

type subredditFlag int

const (
	flagIgnored subredditFlag = iota
	flagFavorite
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// setup loads the config and opens the store every command needs.
func setup() (*config.Config, *slog.Logger, *store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(os.Stderr, cfg.Log.Level)

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, logger, db, nil
}

func buildSource(cfg *config.Config) source.Source {
	if cfg.Reddit.UseAPI() {
		return source.NewReddit(source.RedditOptions{
			ClientID:     cfg.Reddit.ClientID,
			ClientSecret: cfg.Reddit.ClientSecret,
			UserAgent:    cfg.Reddit.UserAgent,
		})
	}
	return source.NewRSS("", cfg.Reddit.UserAgent)
}

func runInit() error {
	cfg, _, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(os.Stderr, "database ready at %s\n", cfg.Database.Path)
	return nil
}

func runPopulate(subreddit string, limit int, period source.TimeFilter) error {
	cfg, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	src := buildSource(cfg)
	in := ingest.New(db, src, logging.ForComponent(logger, "ingest"))

	fmt.Fprintf(os.Stderr, "adding the top posts from r/%s to the database (via %s)\n", subreddit, src.Name())
	timeStr := "all time"
	if period != source.TimeAll {
		timeStr = "the " + string(period)
	}
	fmt.Fprintf(os.Stderr, "limited to the top %d posts of %s\n", limit, timeStr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	done := make(chan struct{})
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		printProgress(in, done)
	}()

	res, err := in.Run(ctx, ingest.Request{Subreddit: subreddit, Limit: limit, Time: period})
	close(done)
	<-progressDone
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "done: %d fetched, %d new posts, %d new subreddits\n",
		res.Fetched, res.Inserted, res.Subreddits)
	return nil
}

func printProgress(in *ingest.Ingester, done <-chan struct{}) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			fmt.Fprintf(os.Stderr, "posts added: %d\n", in.Progress())
			return
		case <-ticker.C:
			fmt.Fprintf(os.Stderr, "posts added: %d\r", in.Progress())
		}
	}
}

func runList(subreddit string, limit, days int, showRead, withIgnored, jsonOutput bool) error {
	_, _, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	q := store.FeedQuery{
		Subreddit:   subreddit,
		SkipIgnored: !withIgnored,
		Filter:      store.Filter{Limit: limit, Days: days, ShowRead: showRead},
	}

	var rows []store.Submission
	err = db.View(context.Background(), func(tx *store.Tx) error {
		rows, err = tx.Feed(context.Background(), q)
		return err
	})
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("no submissions found (try adding some first: subreader populate <subreddit>)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tCOMMENTS\tSUBREDDIT\tCREATED\tTITLE")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\tr/%s\t%s\t%s\n",
			server.FormatScore(r.Score), r.NumComments, r.SubredditName,
			time.Unix(r.Created, 0).UTC().Format(time.DateOnly), r.Title)
	}
	return w.Flush()
}

func runSetSubredditFlag(name string, flag subredditFlag, value bool) error {
	_, _, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	var matched bool
	err = db.Update(context.Background(), func(tx *store.Tx) error {
		var err error
		if flag == flagIgnored {
			matched, err = tx.SetIgnored(context.Background(), name, value)
		} else {
			matched, err = tx.SetFavorite(context.Background(), name, value)
		}
		return err
	})
	if err != nil {
		return err
	}
	if !matched {
		return fmt.Errorf("subreddit %q is not in the database", name)
	}
	fmt.Fprintf(os.Stderr, "updated r/%s\n", name)
	return nil
}

func runServe(port int) error {
	cfg, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := server.New(db, logging.ForComponent(logger, "server"), port)
	return srv.ListenAndServe(ctx)
}

func runDaemon(port int) error {
	cfg, logger, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	if port == 0 {
		port = cfg.Server.Port
	}

	requests := make([]ingest.Request, 0, len(cfg.Schedule.Subreddits))
	for _, sub := range cfg.Schedule.Subreddits {
		tf, err := source.ParseTimeFilter(sub.Time)
		if err != nil {
			return fmt.Errorf("schedule r/%s: %w", sub.Name, err)
		}
		requests = append(requests, ingest.Request{Subreddit: sub.Name, Limit: sub.Limit, Time: tf})
	}
	if len(requests) == 0 {
		logger.Warn("no subreddits configured under schedule.subreddits; only serving")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	in := ingest.New(db, buildSource(cfg), logging.ForComponent(logger, "ingest"))
	sched := scheduler.New(in, requests, cfg.Schedule.ParseIngestInterval(),
		logging.ForComponent(logger, "scheduler"))

	srv := server.New(db, logging.ForComponent(logger, "server"), port)
	return serveWithScheduler(ctx, sched, srv)
}

// serveWithScheduler runs sched next to srv and returns only after both
// have stopped, so the store outlives every ingestion.
func serveWithScheduler(ctx context.Context, sched interface{ Run(context.Context) error },
	srv interface{ ListenAndServe(context.Context) error }) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	return g.Wait()
}
