package crawler

import (
	"context"
	"sync"
	"time"

	geminifetcher "github.com/JakeFAU/gemini-search/internal/fetcher/gemini"
	"github.com/JakeFAU/gemini-search/internal/gemurl"
	"github.com/JakeFAU/gemini-search/internal/progress"
	"github.com/JakeFAU/gemini-search/internal/store"
)

type failureCall struct {
	url    string
	status int
	meta   string
}

// fakeStore keeps pages in memory. Claims hand out every known URL that has
// not been claimed yet.
type fakeStore struct {
	mu        sync.Mutex
	states    map[string]PageState
	known     map[string]bool
	pending   []string
	saved     []PageUpdate
	links     map[string][]Link
	failures  []failureCall
	unchanged []string
	gcCalls   []string
	deleted   []string
	inserted  []string
	claims    []ClaimOptions
	gcDeletes bool
}

func newFakeStore(seeds ...string) *fakeStore {
	s := &fakeStore{
		states: make(map[string]PageState),
		known:  make(map[string]bool),
		links:  make(map[string][]Link),
	}
	for _, seed := range seeds {
		s.known[seed] = true
		s.pending = append(s.pending, seed)
	}
	return s
}

func (s *fakeStore) ClaimBatch(_ context.Context, opts ClaimOptions) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = append(s.claims, opts)
	n := min(opts.Limit, len(s.pending))
	batch := append([]string(nil), s.pending[:n]...)
	s.pending = s.pending[n:]
	return batch, nil
}

func (s *fakeStore) InsertPages(_ context.Context, pages []gemurl.URL) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, p := range pages {
		key := p.String()
		s.inserted = append(s.inserted, key)
		if s.known[key] {
			continue
		}
		s.known[key] = true
		s.pending = append(s.pending, key)
		n++
	}
	return n, nil
}

func (s *fakeStore) PageState(_ context.Context, url string) (PageState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[url]
	if !ok {
		return PageState{}, store.ErrNotFound
	}
	return st, nil
}

func (s *fakeStore) RecordFailure(_ context.Context, url string, status int, meta string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failureCall{url: url, status: status, meta: meta})
	return nil
}

func (s *fakeStore) RecordUnchanged(_ context.Context, url string, _ int, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unchanged = append(s.unchanged, url)
	return nil
}

func (s *fakeStore) DeleteIfDead(_ context.Context, url string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gcCalls = append(s.gcCalls, url)
	return s.gcDeletes, nil
}

func (s *fakeStore) DeletePage(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, url)
	delete(s.known, url)
	delete(s.states, url)
	return nil
}

func (s *fakeStore) SaveIndexed(_ context.Context, page PageUpdate, links []Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, page)
	s.links[page.URL] = links
	st := s.states[page.URL]
	st.URL = page.URL
	st.RawHash = page.RawHash
	st.IndexedHash = page.IndexedHash
	st.LastStatus = page.Status
	s.states[page.URL] = st
	return nil
}

func (s *fakeStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type fakeReply struct {
	resp geminifetcher.Response
	err  error
}

type fakeFetcher struct {
	mu      sync.Mutex
	replies map[string]fakeReply
	calls   map[string]int
}

func newFakeFetcher(replies map[string]fakeReply) *fakeFetcher {
	return &fakeFetcher{replies: replies, calls: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(_ context.Context, u gemurl.URL, _ geminifetcher.Options) (geminifetcher.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := u.String()
	f.calls[key]++
	reply, ok := f.replies[key]
	if !ok {
		return geminifetcher.Response{URL: u, Status: 51, Meta: "Not found"}, nil
	}
	if reply.resp.URL.Host() == "" {
		reply.resp.URL = u
	}
	return reply.resp, reply.err
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recordingEmitter) Emit(evt progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) stages() []progress.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]progress.Stage, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Stage)
	}
	return out
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func gemtextReply(body string) fakeReply {
	return fakeReply{resp: geminifetcher.Response{Status: 20, Meta: "text/gemini; charset=utf-8", Body: []byte(body)}}
}

func mustURL(raw string) gemurl.URL {
	return gemurl.MustParse(raw)
}
