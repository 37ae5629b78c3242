package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	redditWebURL = "https://www.reddit.com"

	// rssMaxItems is the largest listing the public feeds return.
	rssMaxItems = 100
)

// RSS reads top listings from reddit's public Atom feeds. It needs no
// credentials but the feeds carry neither scores nor comment counts, so
// those fields are zero.
type RSS struct {
	client    *http.Client
	parser    *gofeed.Parser
	baseURL   string
	userAgent string

	mu    sync.Mutex
	known map[string]Subreddit
}

// NewRSS creates a new feed reader. An empty baseURL means www.reddit.com.
func NewRSS(baseURL, userAgent string) *RSS {
	if baseURL == "" {
		baseURL = redditWebURL
	}
	if userAgent == "" {
		userAgent = "subreader/1.0"
	}
	return &RSS{
		client:    &http.Client{Timeout: 30 * time.Second},
		parser:    gofeed.NewParser(),
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		known:     make(map[string]Subreddit),
	}
}

func (r *RSS) Name() SourceType { return SourceRSS }

// Subreddit resolves name through the public about.json endpoint and
// caches the answer for the lifetime of r.
func (r *RSS) Subreddit(ctx context.Context, name string) (Subreddit, error) {
	key := strings.ToLower(name)

	r.mu.Lock()
	sub, ok := r.known[key]
	r.mu.Unlock()
	if ok {
		return sub, nil
	}

	resp, err := r.fetch(ctx, "/r/"+url.PathEscape(name)+"/about.json")
	if err != nil {
		return Subreddit{}, err
	}
	defer resp.Body.Close()

	var about struct {
		Kind string `json:"kind"`
		Data struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&about); err != nil {
		return Subreddit{}, fmt.Errorf("decode r/%s about: %w", name, err)
	}
	if about.Kind != "t5" || about.Data.ID == "" {
		return Subreddit{}, fmt.Errorf("rss r/%s: not a subreddit", name)
	}

	sub = Subreddit{ID: about.Data.ID, DisplayName: about.Data.DisplayName}
	r.mu.Lock()
	r.known[key] = sub
	r.mu.Unlock()
	return sub, nil
}

func (r *RSS) Top(ctx context.Context, name string, limit int, period TimeFilter) ([]Submission, error) {
	limit = min(clampLimit(limit), rssMaxItems)
	q := url.Values{"t": {string(period)}, "limit": {strconv.Itoa(limit)}}

	resp, err := r.fetch(ctx, "/r/"+url.PathEscape(name)+"/top/.rss?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss r/%s: %w", name, err)
	}

	var out []Submission
	for _, entry := range feed.Items {
		subName := name
		if len(entry.Categories) > 0 && entry.Categories[0] != "" {
			subName = entry.Categories[0]
		}
		sub, err := r.Subreddit(ctx, subName)
		if err != nil {
			return nil, err
		}

		out = append(out, Submission{
			ID:         strings.TrimPrefix(entry.GUID, "t3_"),
			Title:      entry.Title,
			CreatedUTC: entryTime(entry).Unix(),
			URL:        entry.Link,
			Permalink:  permalinkPath(entry.Link),
			Subreddit:  sub,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *RSS) fetch(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request %s: %w", path, err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("rss %s status %d", path, resp.StatusCode)
	}
	return resp, nil
}

func entryTime(entry *gofeed.Item) time.Time {
	switch {
	case entry.PublishedParsed != nil:
		return *entry.PublishedParsed
	case entry.UpdatedParsed != nil:
		return *entry.UpdatedParsed
	}
	return time.Now()
}

// permalinkPath strips scheme and host so feed permalinks match the
// relative form the API returns.
func permalinkPath(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" {
		return link
	}
	return u.Path
}
