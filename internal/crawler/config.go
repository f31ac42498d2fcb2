package crawler

import (
	"time"

	geminifetcher "github.com/JakeFAU/gemini-search/internal/fetcher/gemini"
)

// Defaults used when the matching Config field is zero.
const (
	DefaultConcurrency        = 48
	DefaultClaimBatch         = 120
	DefaultRecrawlAfter       = 72 * time.Hour
	DefaultRequeueAfter       = 15 * time.Minute
	DefaultGCAfter            = 30 * 24 * time.Hour
	DefaultProxyErrorCooldown = 21 * 7 * 24 * time.Hour
	DefaultHeartbeat          = 5 * time.Second
	DefaultProgressInterval   = 30 * time.Second
	DefaultInitialSample      = 0.05
	DefaultBloomCapacity      = 1_000_000
	DefaultBloomFalsePositive = 0.001

	requestInfoType = "<gemini-request-info>"
	gemsubFeed      = "gemsub"
	proxyErrorCode  = 53
)

// plainTypes are indexed verbatim. Other non-gemtext types keep no body.
var plainTypes = map[string]struct{}{
	"text/plain":    {},
	"text/markdown": {},
	"text/x-rst":    {},
	"plaintext":     {},
}

// Config holds the settings for a crawl session.
// It is decoupled from Viper so the crawler can be tested on its own.
type Config struct {
	Protocol    string
	Concurrency int
	// ForceReindex bypasses the hash comparison and rewrites every page.
	ForceReindex bool
	ClaimBatch   int
	RecrawlAfter time.Duration
	RequeueAfter time.Duration
	// InitialSample is the first fraction of due rows scanned per claim.
	InitialSample float64
	// GCAfter deletes pages that have not been fetched successfully for this long.
	GCAfter time.Duration
	// ProxyErrorCooldown skips URLs whose last answer was 53 (proxy refused).
	ProxyErrorCooldown time.Duration
	Heartbeat          time.Duration
	ProgressInterval   time.Duration
	BloomCapacity      uint
	BloomFalsePositive float64
	Fetch              geminifetcher.Options
}

func (c Config) withDefaults() Config {
	if c.Protocol == "" {
		c.Protocol = "gemini"
	}
	if c.Concurrency < 1 {
		c.Concurrency = DefaultConcurrency
	}
	if c.ClaimBatch < 1 {
		c.ClaimBatch = DefaultClaimBatch
	}
	if c.RecrawlAfter <= 0 {
		c.RecrawlAfter = DefaultRecrawlAfter
	}
	if c.RequeueAfter <= 0 {
		c.RequeueAfter = DefaultRequeueAfter
	}
	if c.InitialSample <= 0 || c.InitialSample > 1 {
		c.InitialSample = DefaultInitialSample
	}
	if c.GCAfter <= 0 {
		c.GCAfter = DefaultGCAfter
	}
	if c.ProxyErrorCooldown <= 0 {
		c.ProxyErrorCooldown = DefaultProxyErrorCooldown
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = DefaultHeartbeat
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = DefaultProgressInterval
	}
	if c.BloomCapacity == 0 {
		c.BloomCapacity = DefaultBloomCapacity
	}
	if c.BloomFalsePositive <= 0 || c.BloomFalsePositive >= 1 {
		c.BloomFalsePositive = DefaultBloomFalsePositive
	}
	if c.Fetch.AcceptMIME == nil {
		c.Fetch.AcceptMIME = geminifetcher.DefaultIndexMIMEs
	}
	return c
}
