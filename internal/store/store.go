package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a named lookup matches nothing.
	ErrNotFound = errors.New("not found")
)

// Subreddit is a stored collection.
type Subreddit struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Ignored  bool   `db:"ignored" json:"ignored"`
	Favorite bool   `db:"favorite" json:"favorite"`
}

// Submission is a stored item joined with its subreddit's display name.
type Submission struct {
	ID            string `db:"id" json:"id"`
	Title         string `db:"title" json:"title"`
	Created       int64  `db:"created" json:"created"`
	Score         int    `db:"score" json:"score"`
	URL           string `db:"url" json:"url"`
	CommentsLink  string `db:"comments_link" json:"comments_link"`
	NumComments   int    `db:"num_comments" json:"num_comments"`
	SubredditID   string `db:"subreddit_id" json:"subreddit_id"`
	Read          bool   `db:"is_read" json:"read"`
	Saved         bool   `db:"saved" json:"saved"`
	Loved         bool   `db:"loved" json:"loved"`
	SubredditName string `db:"subreddit_name" json:"subreddit_name"`
}

// Store owns the SQLite handle. Work happens in units of work obtained
// from Begin, View or Update.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens a SQLite database and creates the schema if needed.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.Initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts a unit of work. Callers must Close it on every path and
// Commit it to keep writes.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &Tx{tx: tx, now: s.now}, nil
}

// View runs fn in a unit of work that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Close()
	return fn(tx)
}

// Update runs fn in a unit of work and commits it when fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Close()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Tx is one unit of work bound to a single connection. It is not safe for
// concurrent use.
type Tx struct {
	tx   *sqlx.Tx
	now  func() time.Time
	done bool
}

// Commit makes the unit of work's writes durable.
func (t *Tx) Commit() error {
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close rolls back anything not committed and releases the connection.
// It is a no-op after Commit.
func (t *Tx) Close() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
