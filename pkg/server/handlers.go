package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/elonfeng/subreader/internal/store"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPageLimit     = 200
	defaultFrontDays     = 7
	defaultSubredditDays = 10000
	maxReadMultiBody     = 1 << 20
)

type submissionView struct {
	store.Submission
	ScoreDisplay string `json:"score_display"`
}

// FormatScore abbreviates scores of a thousand or more to one decimal
// place, rounding down: 54100 becomes "54.1K".
func FormatScore(n int) string {
	if n >= 1000 {
		return fmt.Sprintf("%d.%dK", n/1000, n%1000/100)
	}
	return strconv.Itoa(n)
}

func writeSubmissions(w http.ResponseWriter, rows []store.Submission) {
	views := make([]submissionView, len(rows))
	for i, row := range rows {
		views[i] = submissionView{Submission: row, ScoreDisplay: FormatScore(row.Score)}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  views,
		"count": len(views),
	})
}

// feedQuery reads limit, days, unread and ignore. unread=1 (the default)
// hides read submissions; ignore=1 (the default) leaves out ignored
// subreddits.
func feedQuery(r *http.Request, defaultDays int) (store.FeedQuery, error) {
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"), defaultPageLimit)
	if err != nil {
		return store.FeedQuery{}, fmt.Errorf("limit: %w", err)
	}
	days, err := intParam(q.Get("days"), defaultDays)
	if err != nil {
		return store.FeedQuery{}, fmt.Errorf("days: %w", err)
	}

	return store.FeedQuery{
		SkipIgnored: boolParam(q.Get("ignore"), true),
		Filter: store.Filter{
			Limit:    limit,
			Days:     days,
			ShowRead: !boolParam(q.Get("unread"), true),
		},
	}, nil
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("want a positive integer, got %q", v)
	}
	return n, nil
}

func boolParam(v string, def bool) bool {
	if v == "" {
		return def
	}
	return v == "1"
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	q, err := feedQuery(r, defaultFrontDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.serveFeed(w, r, q)
}

func (s *Server) handleSubreddit(w http.ResponseWriter, r *http.Request) {
	q, err := feedQuery(r, defaultSubredditDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	q.Subreddit = chi.URLParam(r, "subreddit")
	s.serveFeed(w, r, q)
}

func (s *Server) serveFeed(w http.ResponseWriter, r *http.Request, q store.FeedQuery) {
	var rows []store.Submission
	err := s.store.View(r.Context(), func(tx *store.Tx) error {
		var err error
		rows, err = tx.Feed(r.Context(), q)
		return err
	})
	if err != nil {
		s.logger.Error("list submissions", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeSubmissions(w, rows)
}

func (s *Server) handleFlagged(flag store.Flag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []store.Submission
		err := s.store.View(r.Context(), func(tx *store.Tx) error {
			var err error
			rows, err = tx.ByFlag(r.Context(), flag, r.URL.Query().Get("sr"))
			return err
		})
		if err != nil {
			s.logger.Error("list flagged", "flag", flag, "error", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeSubmissions(w, rows)
	}
}

func (s *Server) handleSubreddits(w http.ResponseWriter, r *http.Request) {
	var subs []store.Subreddit
	err := s.store.View(r.Context(), func(tx *store.Tx) error {
		var err error
		subs, err = tx.Subreddits(r.Context())
		return err
	})
	if err != nil {
		s.logger.Error("list subreddits", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if subs == nil {
		subs = []store.Subreddit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  subs,
		"count": len(subs),
	})
}

// handleToggle always answers {"success": bool}; storage errors are
// logged and reported as false.
func (s *Server) handleToggle(flag store.Flag) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var ok bool
		err := s.store.Update(r.Context(), func(tx *store.Tx) error {
			var err error
			ok, err = tx.Toggle(r.Context(), id, flag)
			return err
		})
		if err != nil {
			s.logger.Error("toggle", "flag", flag, "id", id, "error", err)
			ok = false
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
	}
}

func (s *Server) handleReadMulti(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReadMultiBody)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]bool{"success": false})
		return
	}

	var ok bool
	err := s.store.Update(r.Context(), func(tx *store.Tx) error {
		var err error
		ok, err = tx.MarkRead(r.Context(), body.IDs)
		return err
	})
	if err != nil {
		s.logger.Error("mark read", "count", len(body.IDs), "error", err)
		ok = false
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}
