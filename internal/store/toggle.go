package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ErrUnknownFlag is returned for a flag name outside read, saved and loved.
var ErrUnknownFlag = errors.New("unknown flag")

// Flag is one of the per-submission booleans.
type Flag string

const (
	FlagRead  Flag = "read"
	FlagSaved Flag = "saved"
	FlagLoved Flag = "loved"
)

// ParseFlag maps a flag name to a Flag.
func ParseFlag(s string) (Flag, error) {
	f := Flag(strings.ToLower(strings.TrimSpace(s)))
	if _, err := f.column(); err != nil {
		return "", err
	}
	return f, nil
}

// column is the only place a flag reaches SQL text.
func (f Flag) column() (string, error) {
	switch f {
	case FlagRead:
		return "is_read", nil
	case FlagSaved:
		return "saved", nil
	case FlagLoved:
		return "loved", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFlag, string(f))
}

// Toggle flips flag on submission id in a single statement. It returns
// false without error when no submission has that id.
func (t *Tx) Toggle(ctx context.Context, id string, flag Flag) (bool, error) {
	col, err := flag.column()
	if err != nil {
		return false, err
	}

	res, err := t.tx.ExecContext(ctx,
		`UPDATE submissions SET `+col+` = 1 - `+col+` WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("toggle %s on %s: %w", flag, id, err)
	}
	return affected(res)
}

// markReadBatch keeps each IN list well under SQLite's bound parameter
// limit (32766).
const markReadBatch = 10000

// MarkRead sets read on every submission in ids, whatever its current
// state. Unknown ids are skipped. It reports whether any row changed; an
// empty ids is a no-op that reports true.
func (t *Tx) MarkRead(ctx context.Context, ids []string) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}

	var changed bool
	for start := 0; start < len(ids); start += markReadBatch {
		batch := ids[start:min(start+markReadBatch, len(ids))]

		query, args, err := sqlx.In(`UPDATE submissions SET is_read = 1 WHERE id IN (?)`, batch)
		if err != nil {
			return false, fmt.Errorf("build mark read: %w", err)
		}
		res, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
		if err != nil {
			return false, fmt.Errorf("mark %d submissions read: %w", len(batch), err)
		}
		ok, err := affected(res)
		if err != nil {
			return false, err
		}
		changed = changed || ok
	}
	return changed, nil
}

// SetIgnored sets the ignored flag on the subreddit named name
// (case-insensitive). It reports whether a subreddit matched.
func (t *Tx) SetIgnored(ctx context.Context, name string, ignored bool) (bool, error) {
	return t.setSubredditFlag(ctx, "ignored", name, ignored)
}

// SetFavorite sets the favorite flag on the subreddit named name
// (case-insensitive). It reports whether a subreddit matched.
func (t *Tx) SetFavorite(ctx context.Context, name string, favorite bool) (bool, error) {
	return t.setSubredditFlag(ctx, "favorite", name, favorite)
}

func (t *Tx) setSubredditFlag(ctx context.Context, col, name string, v bool) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE subreddits SET `+col+` = ? WHERE name = ? COLLATE NOCASE`, boolToInt(v), name)
	if err != nil {
		return false, fmt.Errorf("set %s on r/%s: %w", col, name, err)
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
