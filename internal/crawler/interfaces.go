package crawler

import (
	"context"
	"time"

	"github.com/google/uuid"

	geminifetcher "github.com/JakeFAU/gemini-search/internal/fetcher/gemini"
	"github.com/JakeFAU/gemini-search/internal/gemurl"
	"github.com/JakeFAU/gemini-search/internal/policy"
)

// FrontierStore claims due URLs and records newly discovered ones.
type FrontierStore interface {
	ClaimBatch(ctx context.Context, opts ClaimOptions) ([]string, error)
	InsertPages(ctx context.Context, pages []gemurl.URL) (int64, error)
}

// PageStore persists crawl outcomes.
type PageStore interface {
	PageState(ctx context.Context, url string) (PageState, error)
	RecordFailure(ctx context.Context, url string, status int, meta string) error
	RecordUnchanged(ctx context.Context, url string, status int, meta string) error
	DeleteIfDead(ctx context.Context, url string, gcAfter time.Duration) (bool, error)
	DeletePage(ctx context.Context, url string) error
	SaveIndexed(ctx context.Context, page PageUpdate, links []Link) error
}

// Store is everything the crawler needs from persistence.
type Store interface {
	FrontierStore
	PageStore
}

// Policy decides what may be crawled and tracks failing hosts.
type Policy interface {
	ShouldCrawl(ctx context.Context, u gemurl.URL) policy.Decision
	Admissible(u gemurl.URL) bool
	RecordFailure(u gemurl.URL)
}

// Fetcher retrieves a URL following redirects.
type Fetcher interface {
	Fetch(ctx context.Context, u gemurl.URL, opts geminifetcher.Options) (geminifetcher.Response, error)
}

// RateLimiter paces requests per host.
type RateLimiter interface {
	Wait(ctx context.Context, u gemurl.URL) error
}

// Hasher computes content digests for change detection.
type Hasher interface {
	Hash(data []byte) string
	HashString(s string) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces crawl run IDs.
type IDGenerator interface {
	NewRawID() (uuid.UUID, error)
}
