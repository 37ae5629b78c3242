package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	redditAuthURL = "https://www.reddit.com/api/v1/access_token"
	redditAPIURL  = "https://oauth.reddit.com"

	// pageSize is the largest page the listing endpoints accept.
	pageSize = 100
)

// RedditOptions configures the API client.
type RedditOptions struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	// AuthURL and APIURL override the reddit endpoints (tests).
	AuthURL string
	APIURL  string
}

// Reddit reads top listings from the reddit API using an application-only
// OAuth token.
type Reddit struct {
	client *http.Client
	apiURL string
}

// NewReddit creates a new Reddit client. The token is fetched on first use
// and reused until it expires.
func NewReddit(opts RedditOptions) *Reddit {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "subreader/1.0"
	}
	authURL := opts.AuthURL
	if authURL == "" {
		authURL = redditAuthURL
	}
	apiURL := strings.TrimSuffix(opts.APIURL, "/")
	if apiURL == "" {
		apiURL = redditAPIURL
	}

	// reddit rejects requests without a descriptive User-Agent, token
	// requests included.
	base := &http.Client{
		Timeout:   30 * time.Second,
		Transport: userAgentTransport{agent: userAgent, next: http.DefaultTransport},
	}
	conf := clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     authURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	client := conf.Client(context.WithValue(context.Background(), oauth2.HTTPClient, base))
	client.Timeout = 30 * time.Second

	return &Reddit{client: client, apiURL: apiURL}
}

func (r *Reddit) Name() SourceType { return SourceReddit }

func (r *Reddit) Subreddit(ctx context.Context, name string) (Subreddit, error) {
	var about struct {
		Kind string `json:"kind"`
		Data struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
		} `json:"data"`
	}
	if err := r.get(ctx, "/r/"+url.PathEscape(name)+"/about", nil, &about); err != nil {
		return Subreddit{}, err
	}
	if about.Kind != "t5" || about.Data.ID == "" {
		return Subreddit{}, fmt.Errorf("reddit r/%s: not a subreddit", name)
	}
	return Subreddit{ID: about.Data.ID, DisplayName: about.Data.DisplayName}, nil
}

func (r *Reddit) Top(ctx context.Context, name string, limit int, period TimeFilter) ([]Submission, error) {
	limit = clampLimit(limit)
	var (
		out   []Submission
		after string
	)
	for len(out) < limit {
		q := url.Values{
			"t":        {string(period)},
			"limit":    {strconv.Itoa(min(pageSize, limit-len(out)))},
			"raw_json": {"1"},
		}
		if after != "" {
			q.Set("after", after)
		}

		var listing redditListing
		if err := r.get(ctx, "/r/"+url.PathEscape(name)+"/top", q, &listing); err != nil {
			return nil, err
		}

		for _, child := range listing.Data.Children {
			out = append(out, child.Data.submission())
			if len(out) == limit {
				break
			}
		}

		after = listing.Data.After
		if after == "" || len(listing.Data.Children) == 0 {
			break
		}
	}

	return out, nil
}

func (r *Reddit) get(ctx context.Context, path string, q url.Values, v any) error {
	reqURL := r.apiURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reddit %s status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.next.RoundTrip(req)
}

type redditListing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Subreddit   string  `json:"subreddit"`
	SubredditID string  `json:"subreddit_id"`
}

func (p redditPost) submission() Submission {
	return Submission{
		ID:          p.ID,
		Title:       p.Title,
		CreatedUTC:  int64(p.CreatedUTC),
		Score:       p.Score,
		URL:         p.URL,
		Permalink:   p.Permalink,
		NumComments: p.NumComments,
		Subreddit: Subreddit{
			ID:          strings.TrimPrefix(p.SubredditID, "t5_"),
			DisplayName: p.Subreddit,
		},
	}
}
