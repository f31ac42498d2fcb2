package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/gemini-search/internal/crawler"
	"github.com/JakeFAU/gemini-search/internal/gemurl"
	"github.com/JakeFAU/gemini-search/internal/ranking"
)

const (
	// busyRetryAfter is sent with 503 answers when the searcher sheds load.
	busyRetryAfter = "5"
	maxPage        = 10000
)

// search handles GET /v1/search?q=&page=. Pages count from 1.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	if s.deps.Searcher == nil {
		writeError(w, http.StatusServiceUnavailable, "search unavailable")
		return
	}
	q := r.URL.Query()
	page := 1
	if raw := q.Get("page"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val < 1 || val > maxPage {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = val
	}

	res, err := s.deps.Searcher.Search(r.Context(), q.Get("q"), page-1)
	switch {
	case err == nil:
	case errors.Is(err, ranking.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ranking.ErrBusy):
		w.Header().Set("Retry-After", busyRetryAfter)
		writeError(w, http.StatusServiceUnavailable, "server busy, slow down")
		return
	default:
		s.logger.Error("search failed", zap.String("query", q.Get("q")), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	res.Page = page
	writeJSON(w, http.StatusOK, res)
}

type backlinksResponse struct {
	URL      string   `json:"url"`
	Internal []string `json:"internal"`
	External []string `json:"external"`
}

// backlinks handles GET /v1/backlinks?url=.
func (s *Server) backlinks(w http.ResponseWriter, r *http.Request) {
	if s.deps.Searcher == nil {
		writeError(w, http.StatusServiceUnavailable, "search unavailable")
		return
	}
	target, links, err := s.deps.Searcher.Backlinks(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		if errors.Is(err, ranking.ErrBadURL) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("backlinks failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load backlinks")
		return
	}
	writeJSON(w, http.StatusOK, backlinksResponse{
		URL:      target,
		Internal: nonNil(links.Internal),
		External: nonNil(links.External),
	})
}

// statistics handles GET /v1/statistics.
func (s *Server) statistics(w http.ResponseWriter, r *http.Request) {
	if s.deps.Index == nil {
		writeError(w, http.StatusServiceUnavailable, "index unavailable")
		return
	}
	st, err := s.deps.Index.Statistics(r.Context())
	if err != nil {
		s.logger.Error("statistics failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// knownHosts handles GET /v1/hosts.
func (s *Server) knownHosts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Index == nil {
		writeError(w, http.StatusServiceUnavailable, "index unavailable")
		return
	}
	hosts, err := s.deps.Index.KnownHosts(r.Context())
	if err != nil {
		s.logger.Error("known hosts failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list hosts")
		return
	}
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		u := gemurl.Parse("gemini://" + h.Host)
		if !u.Valid() {
			continue
		}
		out = append(out, u.WithPort(h.Port).String())
	}
	writeJSON(w, http.StatusOK, map[string]any{"hosts": out})
}

type seedRequest struct {
	URL string `json:"url"`
}

// addSeed handles POST /v1/seeds with body {"url": "..."}.
func (s *Server) addSeed(w http.ResponseWriter, r *http.Request) {
	if s.deps.Seeds == nil {
		writeError(w, http.StatusServiceUnavailable, "crawler unavailable")
		return
	}
	var req seedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}
	added, err := s.deps.Seeds.AddSeed(r.Context(), req.URL)
	switch {
	case err == nil:
	case errors.Is(err, gemurl.ErrInvalid):
		writeError(w, http.StatusBadRequest, "invalid url")
		return
	case errors.Is(err, crawler.ErrSeedRejected):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	default:
		s.logger.Error("add seed failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to add seed")
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"url": req.URL, "added": added})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
