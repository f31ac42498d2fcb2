package crawler

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	geminifetcher "github.com/JakeFAU/gemini-search/internal/fetcher/gemini"
	"github.com/JakeFAU/gemini-search/internal/hash/xxhash"
	"github.com/JakeFAU/gemini-search/internal/policy"
	"github.com/JakeFAU/gemini-search/internal/policy/blacklist"
	"github.com/JakeFAU/gemini-search/internal/progress"
)

func newTestCrawler(t *testing.T, cfg Config, st *fakeStore, f *fakeFetcher, blocked ...string) (*Crawler, *policy.Engine) {
	t.Helper()
	bl, err := blacklist.New(blocked, nil)
	require.NoError(t, err)
	engine := policy.New(policy.Config{}, bl, nil, nil, nil)
	c, err := New(cfg, Deps{Store: st, Policy: engine, Fetcher: f, Hasher: xxhash.New()}, nil)
	require.NoError(t, err)
	return c, engine
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, Deps{}, nil)
	require.Error(t, err)
}

func TestCrawlURLNeverFetchesBlacklistedSeed(t *testing.T) {
	t.Parallel()

	const seed = "gemini://example.com/"
	st := newFakeStore(seed)
	f := newFakeFetcher(map[string]fakeReply{seed: gemtextReply("# hi\n")})
	c, _ := newTestCrawler(t, Config{}, st, f, "example.com")

	res := c.CrawlURL(context.Background(), seed)

	assert.Equal(t, StateRejected, res.State)
	assert.Equal(t, []State{StateQueued, StateChecking, StateRejected}, res.Trace)
	assert.Zero(t, f.total())
	require.Len(t, st.failures, 1)
	assert.Equal(t, string(policy.ReasonBlacklist), st.failures[0].meta)
	assert.Equal(t, []string{seed}, st.gcCalls)
	assert.Empty(t, st.saved)
}

func TestCrawlURLDropsNonCanonicalRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		claimed     string
		blocked     []string
		wantInsert  []string
		wantPending []string
	}{
		{
			name:        "requeued under canonical form",
			claimed:     "gemini://Host.example:1965/a/../b",
			wantInsert:  []string{"gemini://host.example/b"},
			wantPending: []string{"gemini://host.example/b"},
		},
		{
			name:    "invalid port",
			claimed: "gemini://host.example:99999/",
		},
		{
			name:    "not a url",
			claimed: "host.example/page",
		},
		{
			name:       "canonical form blocked",
			claimed: "gemini://BLOCKED.example/",
			blocked: []string{"blocked.example"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := newFakeStore(tt.claimed)
			st.pending = nil
			f := newFakeFetcher(nil)
			c, _ := newTestCrawler(t, Config{}, st, f, tt.blocked...)

			res := c.CrawlURL(context.Background(), tt.claimed)

			assert.Equal(t, StateRejected, res.State)
			require.ErrorIs(t, res.Err, ErrNonCanonical)
			assert.Equal(t, []string{tt.claimed}, st.deleted)
			assert.Equal(t, tt.wantInsert, st.inserted)
			assert.Equal(t, tt.wantPending, st.pending)
			assert.Empty(t, st.failures)
			assert.Empty(t, st.saved)
			assert.Zero(t, f.total())
		})
	}
}

func TestCrawlURLReindexesPage(t *testing.T) {
	t.Parallel()

	const page = "gemini://host.example/dir/a"
	body := "# Hello\nSome text\n=> /b Bee\n=> ../c See\n=> gemini://other.example/ Other\n" +
		"=> gemini://blocked.example/ Blocked\n=> mailto:x@y.example Mail\n"
	st := newFakeStore(page)
	f := newFakeFetcher(map[string]fakeReply{page: gemtextReply(body)})
	c, _ := newTestCrawler(t, Config{}, st, f, "blocked.example")

	res := c.CrawlURL(context.Background(), page)

	require.NoError(t, res.Err)
	assert.Equal(t, StateDone, res.State)
	assert.Contains(t, res.Trace, StateReindexing)
	require.Len(t, st.saved, 1)
	saved := st.saved[0]
	assert.Equal(t, page, saved.URL)
	assert.Equal(t, "Hello", saved.Title)
	assert.Equal(t, "text/gemini", saved.ContentType)
	assert.Equal(t, "utf-8", saved.Charset)
	assert.Equal(t, int64(len(body)), saved.Size)
	assert.Empty(t, saved.FeedType)
	assert.Equal(t, []string{"gemini://host.example/b", "gemini://host.example/c"}, saved.InternalLinks)
	assert.Equal(t, []string{"gemini://other.example/", "gemini://blocked.example/"}, saved.CrossSiteLinks)
	assert.NotEmpty(t, saved.RawHash)
	assert.NotEmpty(t, saved.IndexedHash)

	links := st.links[page]
	require.Len(t, links, 4)
	assert.False(t, links[0].CrossSite)
	assert.True(t, links[2].CrossSite)
	assert.Equal(t, []string{
		"gemini://host.example/b",
		"gemini://host.example/c",
		"gemini://other.example/",
	}, st.inserted)
}

func TestCrawlURLDetectsGemsub(t *testing.T) {
	t.Parallel()

	const page = "gemini://log.example/"
	body := "# Log\n=> /2024-01-01-a.gmi 2024-01-01 First\n=> /2024-01-02-b.gmi 2024-01-02 Second\n" +
		"=> /2024-01-03-c.gmi 2024-01-03 Third\n"
	st := newFakeStore(page)
	c, _ := newTestCrawler(t, Config{}, st, newFakeFetcher(map[string]fakeReply{page: gemtextReply(body)}))

	res := c.CrawlURL(context.Background(), page)

	require.NoError(t, res.Err)
	require.Len(t, st.saved, 1)
	assert.Equal(t, "gemsub", st.saved[0].FeedType)
}

func TestCrawlURLUnchangedContentOnlyTouchesBookkeeping(t *testing.T) {
	t.Parallel()

	const page = "gemini://host.example/"
	st := newFakeStore(page)
	f := newFakeFetcher(map[string]fakeReply{page: gemtextReply("# Same\n=> /x X\n")})
	c, _ := newTestCrawler(t, Config{}, st, f)

	first := c.CrawlURL(context.Background(), page)
	require.Equal(t, StateDone, first.State)
	second := c.CrawlURL(context.Background(), page)

	assert.Equal(t, StateDone, second.State)
	assert.Contains(t, second.Trace, StateUnchanged)
	assert.NotContains(t, second.Trace, StateReindexing)
	assert.Equal(t, 1, st.savedCount())
	assert.Equal(t, []string{page}, st.unchanged)
	assert.Len(t, st.inserted, 1)
}

func TestCrawlURLForceReindex(t *testing.T) {
	t.Parallel()

	const page = "gemini://host.example/"
	st := newFakeStore(page)
	f := newFakeFetcher(map[string]fakeReply{page: gemtextReply("# Same\n")})
	c, _ := newTestCrawler(t, Config{ForceReindex: true}, st, f)

	c.CrawlURL(context.Background(), page)
	c.CrawlURL(context.Background(), page)

	assert.Equal(t, 2, st.savedCount())
	assert.Empty(t, st.unchanged)
}

func TestCrawlURLResponseKinds(t *testing.T) {
	t.Parallel()

	const page = "gemini://host.example/p"
	tests := []struct {
		name        string
		reply       fakeReply
		wantType    string
		wantTitle   string
		wantBody    string
		wantSize    int64
		wantTrace   State
		wantSkipped bool
	}{
		{
			name:      "input prompt",
			reply:     fakeReply{resp: geminifetcher.Response{Status: 10, Meta: "Enter query"}},
			wantType:  "<gemini-request-info>",
			wantTitle: "Enter query",
			wantBody:  "Enter query",
			wantSize:  11,
		},
		{
			name:      "plain text",
			reply:     fakeReply{resp: geminifetcher.Response{Status: 20, Meta: "text/plain", Body: []byte("just text")}},
			wantType:  "text/plain",
			wantTitle: page,
			wantBody:  "just text",
			wantSize:  9,
		},
		{
			name:      "unindexed type",
			reply:     fakeReply{resp: geminifetcher.Response{Status: 20, Meta: "image/png", BodySkipped: true}},
			wantType:  "image/png",
			wantTitle: page,
		},
		{
			name: "after redirect",
			reply: fakeReply{resp: geminifetcher.Response{
				URL:       mustURL("gemini://host.example/p/"),
				Status:    20,
				Meta:      "text/plain",
				Body:      []byte("moved"),
				Redirects: 1,
			}},
			wantType:  "text/plain",
			wantTitle: "gemini://host.example/p/",
			wantBody:  "moved",
			wantSize:  5,
			wantTrace: StateRedirecting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := newFakeStore(page)
			c, _ := newTestCrawler(t, Config{}, st, newFakeFetcher(map[string]fakeReply{page: tt.reply}))

			res := c.CrawlURL(context.Background(), page)

			require.NoError(t, res.Err)
			require.Len(t, st.saved, 1)
			saved := st.saved[0]
			assert.Equal(t, tt.wantType, saved.ContentType)
			assert.Equal(t, tt.wantTitle, saved.Title)
			assert.Equal(t, tt.wantBody, saved.Body)
			assert.Equal(t, tt.wantSize, saved.Size)
			if tt.wantTrace != "" {
				assert.Contains(t, res.Trace, tt.wantTrace)
			}
		})
	}
}

func TestCrawlURLFailures(t *testing.T) {
	t.Parallel()

	const page = "gemini://host.example/p"
	tests := []struct {
		name         string
		reply        fakeReply
		wantStatus   int
		wantMeta     string
		wantErr      error
		wantHostFail int
	}{
		{
			name:         "timeout",
			reply:        fakeReply{err: fmt.Errorf("%w: dial", geminifetcher.ErrTimeout)},
			wantErr:      geminifetcher.ErrTimeout,
			wantHostFail: 1,
		},
		{
			name:       "not found",
			reply:      fakeReply{resp: geminifetcher.Response{Status: 51, Meta: "Not found"}},
			wantStatus: 51,
			wantMeta:   "gemini status: 51 Not found",
		},
		{
			name: "binary body",
			reply: fakeReply{resp: geminifetcher.Response{
				Status: 20,
				Meta:   "text/plain",
				Body:   bytes.Repeat([]byte{0xff}, 100),
			}},
			wantErr: ErrBinaryContent,
		},
		{
			name:    "too many redirects",
			reply:   fakeReply{err: geminifetcher.ErrTooManyRedirects},
			wantErr: geminifetcher.ErrTooManyRedirects,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := newFakeStore(page)
			c, engine := newTestCrawler(t, Config{}, st, newFakeFetcher(map[string]fakeReply{page: tt.reply}))

			res := c.CrawlURL(context.Background(), page)

			assert.Equal(t, StateFailed, res.State)
			require.Error(t, res.Err)
			if tt.wantErr != nil {
				require.ErrorIs(t, res.Err, tt.wantErr)
			}
			require.Len(t, st.failures, 1)
			assert.Equal(t, tt.wantStatus, st.failures[0].status)
			if tt.wantMeta != "" {
				assert.Equal(t, tt.wantMeta, st.failures[0].meta)
			}
			assert.Equal(t, []string{page}, st.gcCalls)
			assert.Equal(t, tt.wantHostFail, engine.Failures().Count("host.example:1965"))
			assert.Empty(t, st.saved)
		})
	}
}

func TestCrawlURLProxyErrorCooldown(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	recent := now.Add(-24 * time.Hour)
	old := now.Add(-30 * 7 * 24 * time.Hour)
	tests := []struct {
		name      string
		crawledAt time.Time
		wantState State
		wantCalls int
	}{
		{name: "recent proxy error", crawledAt: recent, wantState: StateSkipped, wantCalls: 0},
		{name: "cooldown over", crawledAt: old, wantState: StateDone, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			const page = "gemini://proxied.example/"
			st := newFakeStore(page)
			crawledAt := tt.crawledAt
			st.states[page] = PageState{URL: page, LastStatus: 53, LastCrawledAt: &crawledAt}
			f := newFakeFetcher(map[string]fakeReply{page: gemtextReply("# back\n")})
			bl, err := blacklist.New(nil, nil)
			require.NoError(t, err)
			c, err := New(Config{}, Deps{
				Store:   st,
				Policy:  policy.New(policy.Config{}, bl, nil, nil, nil),
				Fetcher: f,
				Hasher:  xxhash.New(),
				Clock:   fixedClock{now: now},
			}, nil)
			require.NoError(t, err)

			res := c.CrawlURL(context.Background(), page)

			assert.Equal(t, tt.wantState, res.State)
			assert.Equal(t, tt.wantCalls, f.total())
		})
	}
}

func TestCrawlAllDrainsFrontier(t *testing.T) {
	t.Parallel()

	const root = "gemini://host.example/"
	st := newFakeStore(root)
	f := newFakeFetcher(map[string]fakeReply{
		root:                      gemtextReply("# Root\n=> /b B\n=> gemini://other.example/ Other\n"),
		"gemini://host.example/b": gemtextReply("# B\n=> / Home\n"),
		"gemini://other.example/": {resp: geminifetcher.Response{Status: 20, Meta: "text/plain", Body: []byte("hi")}},
	})
	bl, err := blacklist.New(nil, nil)
	require.NoError(t, err)
	events := &recordingEmitter{}
	c, err := New(Config{Concurrency: 4, Heartbeat: 10 * time.Millisecond, InitialSample: 1}, Deps{
		Store:   st,
		Policy:  policy.New(policy.Config{}, bl, nil, nil, nil),
		Fetcher: f,
		Hasher:  xxhash.New(),
		Emitter: events,
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.CrawlAll(ctx))

	assert.Equal(t, 3, f.total())
	assert.Equal(t, 3, st.savedCount())
	stages := events.stages()
	require.NotEmpty(t, stages)
	assert.Equal(t, progress.StageRunStart, stages[0])
	assert.Equal(t, progress.StageRunDone, stages[len(stages)-1])
	assert.Contains(t, stages, progress.StageFetchDone)
	for _, evt := range events.events {
		assert.NotEqual(t, [16]byte{}, evt.RunID)
	}
}

func TestAddSeed(t *testing.T) {
	t.Parallel()

	st := newFakeStore()
	c, _ := newTestCrawler(t, Config{}, st, newFakeFetcher(nil), "blocked.example")
	ctx := context.Background()

	added, err := c.AddSeed(ctx, "gemini://new.example/#top")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{"gemini://new.example/"}, st.inserted)

	added, err = c.AddSeed(ctx, "gemini://new.example/")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = c.AddSeed(ctx, "https://web.example/")
	require.ErrorIs(t, err, ErrSeedRejected)
	_, err = c.AddSeed(ctx, "gemini://blocked.example/")
	require.ErrorIs(t, err, ErrSeedRejected)
	_, err = c.AddSeed(ctx, "")
	require.Error(t, err)

	n, err := c.AddSeeds(ctx, []string{"gemini://a.example/", "gopher://b.example/", "gemini://c.example/"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
