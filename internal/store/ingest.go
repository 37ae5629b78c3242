package store

import (
	"context"
	"fmt"

	"github.com/elonfeng/subreader/pkg/source"
)

// UpsertSubreddit stores sub unless a subreddit with the same id exists.
// It reports whether a row was inserted.
func (t *Tx) UpsertSubreddit(ctx context.Context, sub source.Subreddit) (bool, error) {
	res, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO subreddits (id, name) VALUES (:id, :name)
		ON CONFLICT(id) DO NOTHING
	`, sub)
	if err != nil {
		return false, fmt.Errorf("upsert subreddit %s: %w", sub.ID, err)
	}
	return affected(res)
}

// UpsertSubmission stores sub under subredditID unless a submission with
// the same id exists. An existing row is left untouched, flags and score
// included. The subreddit itself is not checked.
func (t *Tx) UpsertSubmission(ctx context.Context, sub source.Submission, subredditID string) (bool, error) {
	row := struct {
		source.Submission
		SubredditID string `db:"subreddit_id"`
	}{sub, subredditID}

	res, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO submissions (id, title, created, score, url, comments_link, num_comments, subreddit_id)
		VALUES (:id, :title, :created, :score, :url, :comments_link, :num_comments, :subreddit_id)
		ON CONFLICT(id) DO NOTHING
	`, row)
	if err != nil {
		return false, fmt.Errorf("upsert submission %s: %w", sub.ID, err)
	}
	return affected(res)
}
