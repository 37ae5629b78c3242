package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
)

const (
	DefaultLimit = 1000
	DefaultDays  = 100000

	secondsPerDay = 24 * 60 * 60

	// maxDays is the widest window whose length in seconds fits an int64.
	maxDays = math.MaxInt64 / secondsPerDay
)

// Filter narrows the ranked listings. A zero Limit or Days falls back to
// DefaultLimit and DefaultDays. ShowRead false hides read submissions.
type Filter struct {
	Limit    int
	ShowRead bool
	Days     int
}

// DefaultFilter shows everything the store holds, read or not.
func DefaultFilter() Filter {
	return Filter{Limit: DefaultLimit, ShowRead: true, Days: DefaultDays}
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	return f.Limit
}

func (f Filter) days() int {
	if f.Days <= 0 {
		return DefaultDays
	}
	return f.Days
}

// cutoff is the oldest creation time that passes the recency window.
func (t *Tx) cutoff(f Filter) int64 {
	days := int64(f.days())
	if days > maxDays {
		days = maxDays
	}
	return t.now().Unix() - days*secondsPerDay
}

const submissionColumns = `
	sm.id, sm.title, sm.created, sm.score, sm.url, sm.comments_link,
	sm.num_comments, sm.subreddit_id, sm.is_read, sm.saved, sm.loved,
	sr.name AS subreddit_name`

// All ranks submissions from every subreddit. The limit is taken before
// the join, so ignored subreddits still use up slots.
func (t *Tx) All(ctx context.Context, f Filter) ([]Submission, error) {
	query := `SELECT` + submissionColumns + `
		FROM (
			SELECT * FROM submissions
			WHERE (is_read = 0 OR ? = 1) AND created >= ?
			ORDER BY score DESC, id ASC
			LIMIT ?
		) sm
		JOIN subreddits sr ON sm.subreddit_id = sr.id
		ORDER BY sm.score DESC, sm.id ASC`

	var rows []Submission
	err := t.tx.SelectContext(ctx, &rows, query, boolToInt(f.ShowRead), t.cutoff(f), f.limit())
	if err != nil {
		return nil, fmt.Errorf("list all submissions: %w", err)
	}
	return rows, nil
}

// AllUnignored ranks submissions from subreddits that are not ignored.
// The whole filtered set is joined before the limit applies, which makes
// it slower than All.
func (t *Tx) AllUnignored(ctx context.Context, f Filter) ([]Submission, error) {
	query := `SELECT` + submissionColumns + `
		FROM submissions sm
		JOIN subreddits sr ON sm.subreddit_id = sr.id
		WHERE (sm.is_read = 0 OR ? = 1) AND sm.created >= ? AND sr.ignored = 0
		ORDER BY sm.score DESC, sm.id ASC
		LIMIT ?`

	var rows []Submission
	err := t.tx.SelectContext(ctx, &rows, query, boolToInt(f.ShowRead), t.cutoff(f), f.limit())
	if err != nil {
		return nil, fmt.Errorf("list unignored submissions: %w", err)
	}
	return rows, nil
}

// SubredditByName looks a subreddit up by case-insensitive exact name.
func (t *Tx) SubredditByName(ctx context.Context, name string) (Subreddit, error) {
	var sub Subreddit
	err := t.tx.GetContext(ctx, &sub, `
		SELECT id, name, ignored, favorite FROM subreddits
		WHERE name = ? COLLATE NOCASE
		ORDER BY id
		LIMIT 1
	`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return Subreddit{}, fmt.Errorf("subreddit %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Subreddit{}, fmt.Errorf("get subreddit %q: %w", name, err)
	}
	return sub, nil
}

// BySubreddit ranks the submissions of one subreddit. It returns
// ErrNotFound when no subreddit has that name.
func (t *Tx) BySubreddit(ctx context.Context, name string, f Filter) ([]Submission, error) {
	sub, err := t.SubredditByName(ctx, name)
	if err != nil {
		return nil, err
	}

	query := `SELECT` + submissionColumns + `
		FROM (
			SELECT * FROM submissions
			WHERE (is_read = 0 OR ? = 1) AND subreddit_id = ? AND created >= ?
			ORDER BY score DESC, id ASC
			LIMIT ?
		) sm
		JOIN subreddits sr ON sm.subreddit_id = sr.id
		ORDER BY sm.score DESC, sm.id ASC`

	var rows []Submission
	err = t.tx.SelectContext(ctx, &rows, query, boolToInt(f.ShowRead), sub.ID, t.cutoff(f), f.limit())
	if err != nil {
		return nil, fmt.Errorf("list r/%s submissions: %w", sub.Name, err)
	}
	return rows, nil
}

// ByFlag returns every submission with flag set, grouped by subreddit
// name. A non-empty name restricts the list to that subreddit; an unknown
// name yields no rows. No recency, read-state or size limits apply.
func (t *Tx) ByFlag(ctx context.Context, flag Flag, name string) ([]Submission, error) {
	col, err := flag.column()
	if err != nil {
		return nil, err
	}

	query := `SELECT` + submissionColumns + `
		FROM submissions sm
		JOIN subreddits sr ON sm.subreddit_id = sr.id
		WHERE sm.` + col + ` = 1`
	var args []any
	if name != "" {
		query += ` AND sr.name = ? COLLATE NOCASE`
		args = append(args, name)
	}
	query += ` ORDER BY sr.name COLLATE NOCASE ASC, sm.score DESC, sm.id ASC`

	var rows []Submission
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list %s submissions: %w", flag, err)
	}
	return rows, nil
}

// Subreddits lists the subreddits that are not ignored, favorites first.
func (t *Tx) Subreddits(ctx context.Context) ([]Subreddit, error) {
	var subs []Subreddit
	err := t.tx.SelectContext(ctx, &subs, `
		SELECT id, name, ignored, favorite FROM subreddits
		WHERE ignored = 0
		ORDER BY favorite DESC, name COLLATE NOCASE ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list subreddits: %w", err)
	}
	return subs, nil
}

// Submission returns one submission by id.
func (t *Tx) Submission(ctx context.Context, id string) (Submission, error) {
	var sm Submission
	err := t.tx.GetContext(ctx, &sm, `SELECT`+submissionColumns+`
		FROM submissions sm
		JOIN subreddits sr ON sm.subreddit_id = sr.id
		WHERE sm.id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, fmt.Errorf("submission %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Submission{}, fmt.Errorf("get submission %s: %w", id, err)
	}
	return sm, nil
}

// FeedQuery selects one of the ranked listings.
type FeedQuery struct {
	// Subreddit restricts the listing to one subreddit when set.
	Subreddit string
	// SkipIgnored leaves out ignored subreddits from the cross-subreddit
	// listing.
	SkipIgnored bool
	Filter
}

// Feed picks the listing q describes. An unknown subreddit yields an empty
// list rather than ErrNotFound.
func (t *Tx) Feed(ctx context.Context, q FeedQuery) ([]Submission, error) {
	switch {
	case q.Subreddit != "":
		rows, err := t.BySubreddit(ctx, q.Subreddit, q.Filter)
		if errors.Is(err, ErrNotFound) {
			return []Submission{}, nil
		}
		return rows, err
	case q.SkipIgnored:
		return t.AllUnignored(ctx, q.Filter)
	default:
		return t.All(ctx, q.Filter)
	}
}
