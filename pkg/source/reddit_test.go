package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// fakeReddit serves a token endpoint and a top listing of n posts paged by
// the after cursor.
func fakeReddit(t *testing.T, n int) (*httptest.Server, *int) {
	t.Helper()
	tokenCalls := 0
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "id" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.FormValue("grant_type") != "client_credentials" || r.UserAgent() != "subreader-test" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "tok", "token_type": "bearer", "expires_in": 3600}`)
	})

	mux.HandleFunc("/r/golang/about", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"kind": "t5", "data": {"id": "2rc7j", "display_name": "golang"}}`)
	})

	mux.HandleFunc("/r/golang/top", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" || r.UserAgent() != "subreader-test" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("t") != "week" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		start := 0
		if after := r.URL.Query().Get("after"); after != "" {
			start, _ = strconv.Atoi(after[len("t3_p"):])
			start++
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		type child struct {
			Data map[string]any `json:"data"`
		}
		var children []child
		for i := start; i < n && len(children) < limit; i++ {
			children = append(children, child{Data: map[string]any{
				"id":           fmt.Sprintf("p%d", i),
				"title":        fmt.Sprintf("post %d", i),
				"url":          "https://example.com",
				"permalink":    fmt.Sprintf("/r/golang/comments/p%d/", i),
				"score":        1000 - i,
				"num_comments": i,
				"created_utc":  1700000000.0 + float64(i),
				"subreddit":    "golang",
				"subreddit_id": "t5_2rc7j",
			}})
		}
		after := ""
		if len(children) > 0 && start+len(children) < n {
			after = fmt.Sprintf("t3_p%d", start+len(children)-1)
		}
		var listing struct {
			Data struct {
				After    string  `json:"after"`
				Children []child `json:"children"`
			} `json:"data"`
		}
		listing.Data.After = after
		listing.Data.Children = children
		json.NewEncoder(w).Encode(listing)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokenCalls
}

func newTestReddit(srv *httptest.Server) *Reddit {
	return NewReddit(RedditOptions{
		ClientID:     "id",
		ClientSecret: "secret",
		UserAgent:    "subreader-test",
		AuthURL:      srv.URL + "/api/v1/access_token",
		APIURL:       srv.URL,
	})
}

func TestRedditTopPaginates(t *testing.T) {
	srv, tokenCalls := fakeReddit(t, 250)
	r := newTestReddit(srv)

	posts, err := r.Top(context.Background(), "golang", 230, TimeWeek)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(posts) != 230 {
		t.Fatalf("expected 230 posts, got %d", len(posts))
	}
	for i, p := range posts {
		if p.ID != fmt.Sprintf("p%d", i) {
			t.Fatalf("post %d has id %s", i, p.ID)
		}
	}

	first := posts[0]
	if first.Score != 1000 || first.CreatedUTC != 1700000000 || first.Permalink != "/r/golang/comments/p0/" {
		t.Errorf("unexpected mapping: %+v", first)
	}
	if first.Subreddit != (Subreddit{ID: "2rc7j", DisplayName: "golang"}) {
		t.Errorf("unexpected subreddit: %+v", first.Subreddit)
	}

	// the token is reused across calls and endpoints
	if _, err := r.Top(context.Background(), "golang", 10, TimeWeek); err != nil {
		t.Fatalf("second top: %v", err)
	}
	if _, err := r.Subreddit(context.Background(), "golang"); err != nil {
		t.Fatalf("subreddit: %v", err)
	}
	if *tokenCalls != 1 {
		t.Errorf("expected 1 token request, got %d", *tokenCalls)
	}
}

func TestRedditTopStopsAtEndOfListing(t *testing.T) {
	srv, _ := fakeReddit(t, 30)
	posts, err := newTestReddit(srv).Top(context.Background(), "golang", 0, TimeWeek)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(posts) != 30 {
		t.Fatalf("expected whole listing of 30, got %d", len(posts))
	}
}

func TestRedditSubreddit(t *testing.T) {
	srv, _ := fakeReddit(t, 0)
	sub, err := newTestReddit(srv).Subreddit(context.Background(), "golang")
	if err != nil {
		t.Fatalf("subreddit: %v", err)
	}
	if sub.ID != "2rc7j" || sub.DisplayName != "golang" {
		t.Fatalf("unexpected subreddit %+v", sub)
	}
}

func TestRedditBadCredentials(t *testing.T) {
	srv, _ := fakeReddit(t, 5)
	r := NewReddit(RedditOptions{
		ClientID:     "id",
		ClientSecret: "wrong",
		UserAgent:    "subreader-test",
		AuthURL:      srv.URL + "/api/v1/access_token",
		APIURL:       srv.URL,
	})
	if _, err := r.Top(context.Background(), "golang", 5, TimeWeek); err == nil {
		t.Fatal("expected auth error")
	}
	if _, err := r.Subreddit(context.Background(), "golang"); err == nil {
		t.Fatal("expected auth error from subreddit lookup")
	}
}

func TestParseTimeFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeFilter
		wantErr bool
	}{
		{"", TimeAll, false},
		{"week", TimeWeek, false},
		{"YEAR", TimeYear, false},
		{"decade", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTimeFilter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeFilter(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimeFilter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsAggregate(t *testing.T) {
	for name, want := range map[string]bool{"all": true, "Popular": true, "golang": false} {
		if got := IsAggregate(name); got != want {
			t.Errorf("IsAggregate(%q) = %v", name, got)
		}
	}
}
