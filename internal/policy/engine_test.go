package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	geminifetcher "github.com/JakeFAU/gemini-search/internal/fetcher/gemini"
	"github.com/JakeFAU/gemini-search/internal/gemurl"
	"github.com/JakeFAU/gemini-search/internal/policy/blacklist"
)

type storedPolicy struct {
	rules      []string
	havePolicy bool
}

type fakeRobotsStore struct {
	mu       sync.Mutex
	policies map[string]storedPolicy
	loads    int
	saves    int
	loadErr  error
}

func newFakeRobotsStore() *fakeRobotsStore {
	return &fakeRobotsStore{policies: map[string]storedPolicy{}}
}

func (s *fakeRobotsStore) RobotsPolicy(_ context.Context, host string, port int, _ time.Duration) ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, false, s.loadErr
	}
	p, ok := s.policies[fmt.Sprintf("%s:%d", host, port)]
	return p.rules, ok, nil
}

func (s *fakeRobotsStore) SaveRobotsPolicy(_ context.Context, host string, port int, rules []string, havePolicy bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.policies[fmt.Sprintf("%s:%d", host, port)] = storedPolicy{rules: rules, havePolicy: havePolicy}
	return nil
}

type fakeFetcher struct {
	mu    sync.Mutex
	resp  map[string]geminifetcher.Response
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, u gemurl.URL, opts geminifetcher.Options) (geminifetcher.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, u.String())
	if err := f.errs[u.String()]; err != nil {
		return geminifetcher.Response{}, err
	}
	if r, ok := f.resp[u.String()]; ok {
		return r, nil
	}
	return geminifetcher.Response{URL: u, Status: 51, Meta: "not found"}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func robotsResponse(body string) geminifetcher.Response {
	return geminifetcher.Response{Status: 20, Meta: "text/plain", Body: []byte(body)}
}

func TestShouldCrawlStaticChecks(t *testing.T) {
	t.Parallel()

	bl, err := blacklist.New([]string{"example.com"}, nil)
	require.NoError(t, err)
	e := New(Config{}, bl, nil, &fakeFetcher{}, nil)

	cases := []struct {
		raw    string
		reason Reason
	}{
		{"gemini://example.com/", ReasonBlacklist},
		{"gemini://capsule.example/robots.txt", ReasonBlacklist},
		{"gemini://localhost/", ReasonBlacklist},
		{"https://capsule.example/", ReasonProtocol},
		{"gemini://.bad/", ReasonInvalid},
		{"gemini://capsule.example/page.gmi", ReasonAllowed},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()
			d := e.ShouldCrawl(context.Background(), gemurl.Parse(tc.raw))
			assert.Equal(t, tc.reason, d.Reason)
			assert.Equal(t, tc.reason == ReasonAllowed, d.Allowed)
		})
	}
}

func TestShouldCrawlRobots(t *testing.T) {
	t.Parallel()

	store := newFakeRobotsStore()
	fetcher := &fakeFetcher{resp: map[string]geminifetcher.Response{
		"gemini://capsule.example/robots.txt": robotsResponse("User-agent: *\nDisallow: /private\n"),
	}}
	e := New(Config{}, nil, store, fetcher, nil)
	ctx := context.Background()

	d := e.ShouldCrawl(ctx, gemurl.Parse("gemini://capsule.example/private/x"))
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonRobots, d.Reason)
	assert.True(t, e.ShouldCrawl(ctx, gemurl.Parse("gemini://capsule.example/public")).Allowed)

	assert.Equal(t, 1, fetcher.callCount(), "second lookup served from the local cache")
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, storedPolicy{rules: []string{"/private"}, havePolicy: true}, store.policies["capsule.example:1965"])
}

func TestRobotsRulesFromStore(t *testing.T) {
	t.Parallel()

	store := newFakeRobotsStore()
	store.policies["capsule.example:1965"] = storedPolicy{rules: []string{"/cgi-bin/"}, havePolicy: true}
	fetcher := &fakeFetcher{}
	e := New(Config{}, nil, store, fetcher, nil)

	rules := e.RobotsRules(context.Background(), gemurl.Parse("gemini://capsule.example/"))
	assert.Equal(t, []string{"/cgi-bin/"}, rules)
	assert.Zero(t, fetcher.callCount())
	assert.Zero(t, store.saves)
}

func TestRobotsRulesMissingFile(t *testing.T) {
	t.Parallel()

	store := newFakeRobotsStore()
	fetcher := &fakeFetcher{resp: map[string]geminifetcher.Response{
		"gemini://capsule.example/robots.txt": {Status: 20, Meta: "text/gemini", Body: []byte("Disallow: /")},
	}}
	e := New(Config{}, nil, store, fetcher, nil)

	rules := e.RobotsRules(context.Background(), gemurl.Parse("gemini://capsule.example/a"))
	assert.Empty(t, rules, "non text/plain robots.txt is ignored")
	assert.Equal(t, storedPolicy{havePolicy: false}, store.policies["capsule.example:1965"])
}

func TestRobotsRulesFetchFailure(t *testing.T) {
	t.Parallel()

	timeout := fmt.Errorf("dial: %w", geminifetcher.ErrTimeout)

	t.Run("allow without caching", func(t *testing.T) {
		t.Parallel()
		store := newFakeRobotsStore()
		fetcher := &fakeFetcher{errs: map[string]error{"gemini://down.example/robots.txt": timeout}}
		e := New(Config{}, nil, store, fetcher, nil)
		u := gemurl.Parse("gemini://down.example/")

		assert.True(t, e.ShouldCrawl(context.Background(), u).Allowed)
		assert.True(t, e.ShouldCrawl(context.Background(), u).Allowed)
		assert.Equal(t, 2, fetcher.callCount(), "failures are retried on the next lookup")
		assert.Zero(t, store.saves)
		assert.Equal(t, 2, e.Failures().Count("down.example:1965"))
	})

	t.Run("cache empty policy", func(t *testing.T) {
		t.Parallel()
		store := newFakeRobotsStore()
		fetcher := &fakeFetcher{errs: map[string]error{"gemini://down.example/robots.txt": errors.New("boom")}}
		e := New(Config{FailureMode: RobotsFailureCacheEmpty}, nil, store, fetcher, nil)
		u := gemurl.Parse("gemini://down.example/")

		assert.True(t, e.ShouldCrawl(context.Background(), u).Allowed)
		assert.True(t, e.ShouldCrawl(context.Background(), u).Allowed)
		assert.Equal(t, 1, fetcher.callCount())
		assert.Equal(t, 1, store.saves)
		assert.Zero(t, e.Failures().Count("down.example:1965"), "non network errors do not count")
	})
}

func TestRobotsRulesStoreErrorFallsBackToFetch(t *testing.T) {
	t.Parallel()

	store := newFakeRobotsStore()
	store.loadErr = errors.New("db down")
	fetcher := &fakeFetcher{resp: map[string]geminifetcher.Response{
		"gemini://capsule.example:1966/robots.txt": robotsResponse("User-agent: gemini-search\nDisallow: /x\n"),
	}}
	e := New(Config{}, nil, store, fetcher, nil)

	rules := e.RobotsRules(context.Background(), gemurl.Parse("gemini://capsule.example:1966/"))
	assert.Equal(t, []string{"/x"}, rules)
	assert.Contains(t, store.policies, "capsule.example:1966")
}

func TestHostFailuresThreshold(t *testing.T) {
	t.Parallel()

	e := New(Config{FailureThreshold: 3}, nil, nil, nil, nil)
	u := gemurl.Parse("gemini://flaky.example/page")
	for i := 0; i < 3; i++ {
		e.RecordFailure(u)
		assert.True(t, e.Admissible(u), "failure %d keeps the host", i+1)
	}
	e.RecordFailure(u)
	assert.False(t, e.Admissible(u))
	d := e.ShouldCrawl(context.Background(), u)
	assert.Equal(t, ReasonHostDown, d.Reason)

	other := gemurl.Parse("gemini://flaky.example:1966/page")
	assert.True(t, e.Admissible(other), "ports are tracked separately")
}

func TestHostFailuresCounter(t *testing.T) {
	t.Parallel()

	h := NewHostFailures(0)
	assert.False(t, h.Record(""))
	assert.False(t, h.Exceeded(""))
	for i := 0; i < defaultFailureThreshold; i++ {
		assert.False(t, h.Record("Host.example:1965"))
	}
	assert.True(t, h.Record("host.example:1965"))
	assert.True(t, h.Exceeded("HOST.example:1965"))
	assert.Equal(t, 4, h.Count("host.example:1965"))
}
