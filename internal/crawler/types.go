package crawler

import (
	"time"

	"github.com/JakeFAU/gemini-search/internal/gemurl"
)

// State is a step of the per-URL pipeline.
type State string

// Pipeline states. Every crawl attempt ends in Done, Rejected or Failed.
const (
	StateQueued      State = "queued"
	StateChecking    State = "checking_policy"
	StateRejected    State = "rejected"
	StateFetching    State = "fetching"
	StateRedirecting State = "redirecting"
	StateParsed      State = "parsed"
	StateUnchanged   State = "unchanged"
	StateReindexing  State = "reindexing"
	StateDone        State = "done"
	StateFailed      State = "failed"
	StateSkipped     State = "skipped"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateRejected, StateFailed, StateSkipped:
		return true
	}
	return false
}

// PageState is the crawl bookkeeping stored for one URL.
type PageState struct {
	URL           string
	RawHash       string
	IndexedHash   string
	LastStatus    int
	LastCrawledAt *time.Time
}

// PageUpdate carries the columns written after a successful fetch.
type PageUpdate struct {
	URL            string
	Status         int
	Meta           string
	ContentType    string
	Charset        string
	Lang           string
	Title          string
	Body           string
	Size           int64
	FeedType       string
	RawHash        string
	IndexedHash    string
	InternalLinks  []string
	CrossSiteLinks []string
}

// Link is one directed edge of the link graph.
type Link struct {
	From      gemurl.URL
	To        gemurl.URL
	CrossSite bool
}

// ClaimOptions selects which pages are due for a crawl.
type ClaimOptions struct {
	Limit        int
	RecrawlAfter time.Duration
	RequeueAfter time.Duration
	// Sample is the fraction of due rows considered, in (0, 1].
	Sample float64
}

// Result summarises one pipeline run. Trace lists every state entered, in
// order, ending with State.
type Result struct {
	URL      string
	State    State
	Trace    []State
	Status   int
	Bytes    int
	Duration time.Duration
	Err      error
}

func (r *Result) enter(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}
