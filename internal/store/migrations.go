package store

import (
	"context"
	"fmt"
)

// subreddit_id is not declared as a foreign key: ingestion always writes
// the subreddit before its submissions.
const schema = `
CREATE TABLE IF NOT EXISTS subreddits (
    id       TEXT PRIMARY KEY,
    name     TEXT NOT NULL,
    ignored  INTEGER NOT NULL DEFAULT 0,
    favorite INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_subreddits_name ON subreddits(name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS submissions (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    created       INTEGER NOT NULL,
    score         INTEGER NOT NULL,
    url           TEXT NOT NULL,
    comments_link TEXT NOT NULL,
    num_comments  INTEGER NOT NULL,
    subreddit_id  TEXT NOT NULL,
    is_read       INTEGER NOT NULL DEFAULT 0,
    saved         INTEGER NOT NULL DEFAULT 0,
    loved         INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_submissions_score ON submissions(score);
CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created);
CREATE INDEX IF NOT EXISTS idx_submissions_subreddit ON submissions(subreddit_id);
`

// Initialize creates the subreddits and submissions tables if they do not
// exist. It is safe to call on every start.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
