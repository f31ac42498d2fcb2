package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/gemini-search/internal/ranking"
	"github.com/JakeFAU/gemini-search/internal/store"
)

func TestSearchHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		err       error
		want      int
		wantPage  int
		wantRetry bool
	}{
		{name: "first page", path: "/v1/search?q=gemini", want: http.StatusOK, wantPage: 0},
		{name: "later page", path: "/v1/search?q=gemini&page=3", want: http.StatusOK, wantPage: 2},
		{name: "bad page", path: "/v1/search?q=gemini&page=0", want: http.StatusBadRequest},
		{name: "huge page", path: "/v1/search?q=gemini&page=922337203685477581", want: http.StatusBadRequest},
		{name: "empty query", path: "/v1/search?q=domain:a.example", err: ranking.ErrEmptyQuery, want: http.StatusBadRequest},
		{name: "busy", path: "/v1/search?q=gemini", err: ranking.ErrBusy, want: http.StatusServiceUnavailable, wantRetry: true},
		{name: "store failure", path: "/v1/search?q=gemini", err: errors.New("db down"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			searcher := &fakeSearcher{
				err: tt.err,
				page: ranking.Page{
					Query:   "gemini",
					Total:   1,
					Results: []ranking.Result{{URL: "gemini://a.example/", Title: "A", Preview: "about gemini"}},
				},
			}
			server := NewServer(Deps{Searcher: searcher}, Config{}, zap.NewNop())
			rec := serve(server, http.MethodGet, tt.path, nil)

			require.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.wantRetry, rec.Header().Get("Retry-After") != "")
			if tt.want != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantPage, searcher.lastPage)
			page := decode[ranking.Page](t, rec)
			assert.Equal(t, tt.wantPage+1, page.Page)
			require.Len(t, page.Results, 1)
			assert.Equal(t, "A", page.Results[0].Title)
		})
	}
}

func TestBacklinksHandler(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{links: ranking.Backlinks{External: []string{"gemini://b.example/"}}}
	server := NewServer(Deps{Searcher: searcher}, Config{}, zap.NewNop())

	rec := serve(server, http.MethodGet, "/v1/backlinks?url=gemini://a.example/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[backlinksResponse](t, rec)
	assert.Equal(t, "gemini://a.example/", body.URL)
	assert.Equal(t, []string{}, body.Internal)
	assert.Equal(t, []string{"gemini://b.example/"}, body.External)

	searcher.err = ranking.ErrBadURL
	rec = serve(server, http.MethodGet, "/v1/backlinks?url=", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIndexHandlers(t *testing.T) {
	t.Parallel()

	index := &fakeIndex{
		stats: store.Statistics{PageCount: 42, DomainCount: 3},
		hosts: []store.KnownHost{{Host: "a.example", Port: 1965}, {Host: "b.example", Port: 1966}},
	}
	server := NewServer(Deps{Index: index}, Config{}, zap.NewNop())

	rec := serve(server, http.MethodGet, "/v1/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[store.Statistics](t, rec)
	assert.Equal(t, int64(42), stats.PageCount)

	rec = serve(server, http.MethodGet, "/v1/hosts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hosts := decode[map[string][]string](t, rec)
	assert.Equal(t, []string{"gemini://a.example/", "gemini://b.example:1966/"}, hosts["hosts"])

	index.err = errors.New("db down")
	rec = serve(server, http.MethodGet, "/v1/statistics", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAddSeedHandler(t *testing.T) {
	t.Parallel()

	server := NewServer(Deps{Seeds: &fakeSeeds{}}, Config{}, zap.NewNop())
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "new seed", body: `{"url":"gemini://a.example/"}`, want: http.StatusCreated},
		{name: "known seed", body: `{"url":" gemini://a.example/ "}`, want: http.StatusOK},
		{name: "bad json", body: `{"url":`, want: http.StatusBadRequest},
		{name: "missing url", body: `{}`, want: http.StatusBadRequest},
		{name: "not a url", body: `{"url":"a example"}`, want: http.StatusBadRequest},
		{name: "wrong protocol", body: `{"url":"https://a.example/"}`, want: http.StatusUnprocessableEntity},
	}
	// Cases share the seed set and run in order.
	for _, tt := range tests {
		rec := serve(server, http.MethodPost, "/v1/seeds", []byte(tt.body))
		assert.Equal(t, tt.want, rec.Code, tt.name)
	}
}
