package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// SourceType identifies which client produced a listing.
type SourceType string

const (
	SourceReddit SourceType = "reddit"
	SourceRSS    SourceType = "rss"
)

// MaxListing is the most submissions reddit will page through for one listing.
const MaxListing = 1000

// ErrBadTimeFilter is returned for an unknown top-listing period.
var ErrBadTimeFilter = errors.New("invalid time filter")

// TimeFilter is the period a "top" listing ranks over.
type TimeFilter string

const (
	TimeHour  TimeFilter = "hour"
	TimeDay   TimeFilter = "day"
	TimeWeek  TimeFilter = "week"
	TimeMonth TimeFilter = "month"
	TimeYear  TimeFilter = "year"
	TimeAll   TimeFilter = "all"
)

// ParseTimeFilter validates s. An empty string means all time.
func ParseTimeFilter(s string) (TimeFilter, error) {
	switch tf := TimeFilter(strings.ToLower(strings.TrimSpace(s))); tf {
	case "":
		return TimeAll, nil
	case TimeHour, TimeDay, TimeWeek, TimeMonth, TimeYear, TimeAll:
		return tf, nil
	}
	return "", fmt.Errorf("%w: %q (want hour, day, week, month, year or all)", ErrBadTimeFilter, s)
}

// Subreddit is the collection record a source yields.
type Subreddit struct {
	ID          string `json:"id" db:"id"`
	DisplayName string `json:"display_name" db:"name"`
}

// Submission is the item record a source yields. Subreddit is the
// collection the submission was posted to, which differs per row in
// aggregate listings.
type Submission struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	CreatedUTC  int64     `json:"created_utc" db:"created"`
	Score       int       `json:"score" db:"score"`
	URL         string    `json:"url" db:"url"`
	Permalink   string    `json:"permalink" db:"comments_link"`
	NumComments int       `json:"num_comments" db:"num_comments"`
	Subreddit   Subreddit `json:"subreddit" db:"-"`
}

// Source is the interface every content client implements.
type Source interface {
	Name() SourceType
	// Subreddit resolves a display name to its collection record.
	Subreddit(ctx context.Context, name string) (Subreddit, error)
	// Top returns at most limit submissions of the named listing ranked
	// over period.
	Top(ctx context.Context, name string, limit int, period TimeFilter) ([]Submission, error)
}

// IsAggregate reports whether name is a mixed-subreddit listing.
func IsAggregate(name string) bool {
	switch strings.ToLower(name) {
	case "all", "popular":
		return true
	}
	return false
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListing {
		return MaxListing
	}
	return limit
}
