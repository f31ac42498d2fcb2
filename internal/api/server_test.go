package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/gemini-search/internal/crawler"
	"github.com/JakeFAU/gemini-search/internal/gemurl"
	"github.com/JakeFAU/gemini-search/internal/ranking"
	"github.com/JakeFAU/gemini-search/internal/store"
)

func TestServer_Health(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		ping error
		want int
	}{
		{name: "healthz", path: "/healthz", want: http.StatusOK},
		{name: "ready", path: "/readyz", want: http.StatusOK},
		{name: "not ready", path: "/readyz", ping: errors.New("db down"), want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := NewServer(Deps{Ready: fakePinger{err: tt.ping}}, Config{}, zap.NewNop())
			rec := serve(server, http.MethodGet, tt.path, nil)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	server := newTestServer()
	serve(server, http.MethodGet, "/healthz", nil)
	rec := serve(server, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServer_APIKeyGuardsSeeds(t *testing.T) {
	t.Parallel()

	seeds := &fakeSeeds{}
	server := NewServer(Deps{Seeds: seeds}, Config{APIKey: "secret"}, zap.NewNop())
	body := []byte(`{"url":"gemini://a.example/"}`)

	rec := serve(server, http.MethodPost, "/v1/seeds", body)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/seeds", bytes.NewReader(body))
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Read routes stay open.
	rec = serve(server, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_MissingDependencies(t *testing.T) {
	t.Parallel()

	server := NewServer(Deps{}, Config{}, nil)
	for _, path := range []string{"/v1/search?q=x", "/v1/backlinks?url=a", "/v1/statistics", "/v1/hosts", "/v1/runs"} {
		rec := serve(server, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
	rec := serve(server, http.MethodPost, "/v1/seeds", []byte(`{"url":"gemini://a.example/"}`))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDMiddlewareSetsHeader(t *testing.T) {
	t.Parallel()

	rec := serve(newTestServer(), http.MethodGet, "/healthz", nil)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, req)
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	h := recoverMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResponseWriterHijackBehavior(t *testing.T) {
	t.Parallel()

	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	_, _, err := rw.Hijack()
	require.EqualError(t, err, "hijacker not supported")

	h := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder()}
	rw = &responseWriter{ResponseWriter: h}
	conn, buf, err := rw.Hijack()
	require.NoError(t, err)
	require.NotNil(t, buf)
	require.NoError(t, conn.Close())
	require.NoError(t, h.CloseClient())
}

// --- helpers/fakes ---

func serve(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeSearcher struct {
	page      ranking.Page
	links     ranking.Backlinks
	err       error
	lastQuery string
	lastPage  int
}

func (f *fakeSearcher) Search(_ context.Context, input string, page int) (ranking.Page, error) {
	f.lastQuery, f.lastPage = input, page
	return f.page, f.err
}

func (f *fakeSearcher) Backlinks(_ context.Context, input string) (string, ranking.Backlinks, error) {
	if f.err != nil {
		return "", ranking.Backlinks{}, f.err
	}
	return input, f.links, nil
}

type fakeIndex struct {
	stats store.Statistics
	hosts []store.KnownHost
	err   error
}

func (f *fakeIndex) Statistics(context.Context) (store.Statistics, error) { return f.stats, f.err }

func (f *fakeIndex) KnownHosts(context.Context) ([]store.KnownHost, error) { return f.hosts, f.err }

type fakeSeeds struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeSeeds) AddSeed(_ context.Context, raw string) (bool, error) {
	u := gemurl.Parse(raw)
	if err := u.Validate(); err != nil {
		return false, err
	}
	if u.Protocol() != "gemini" {
		return false, fmt.Errorf("%w: protocol %q", crawler.ErrSeedRejected, u.Protocol())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[u.String()] {
		return false, nil
	}
	f.seen[u.String()] = true
	return true, nil
}

type hijackableRecorder struct {
	*httptest.ResponseRecorder
	client net.Conn
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	server, client := net.Pipe()
	h.client = client
	return server, bufio.NewReadWriter(bufio.NewReader(client), bufio.NewWriter(client)), nil
}

func (h *hijackableRecorder) CloseClient() error {
	if h.client != nil {
		if err := h.client.Close(); err != nil {
			return fmt.Errorf("close hijacker client: %w", err)
		}
	}
	return nil
}

func newTestServer() *Server {
	return NewServer(Deps{
		Searcher: &fakeSearcher{},
		Index:    &fakeIndex{},
		Seeds:    &fakeSeeds{},
		Runs:     &mockRunRepo{},
	}, Config{}, zap.NewNop())
}
