// Package policy decides whether a URL may be crawled. It combines the static
// blacklist, a per-host failure counter and robots.txt rules.
package policy

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	geminifetcher "github.com/JakeFAU/gemini-search/internal/fetcher/gemini"
	"github.com/JakeFAU/gemini-search/internal/gemurl"
	"github.com/JakeFAU/gemini-search/internal/metrics"
	"github.com/JakeFAU/gemini-search/internal/policy/blacklist"
	"github.com/JakeFAU/gemini-search/internal/robots"
)

const (
	defaultProtocol         = "gemini"
	defaultFailureThreshold = 3
	defaultCacheTTL         = 60 * time.Second
	defaultCacheSize        = 4096
	defaultPersistTTL       = 7 * 24 * time.Hour
	defaultRobotsTimeout    = 10 * time.Second
	defaultRobotsMaxBytes   = 2500000
)

// Reason explains a crawl decision.
type Reason string

// Decision reasons. ReasonAllowed is the only one that permits a crawl.
const (
	ReasonAllowed   Reason = "allowed"
	ReasonInvalid   Reason = "invalid url"
	ReasonProtocol  Reason = "unsupported protocol"
	ReasonBlacklist Reason = "blacklisted"
	ReasonHostDown  Reason = "host failing"
	ReasonRobots    Reason = "blocked by robots"
)

// Decision is the outcome of ShouldCrawl.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// RobotsFailureMode controls what happens when robots.txt cannot be fetched.
type RobotsFailureMode int

const (
	// RobotsFailureAllow crawls without caching anything, so the next visit
	// to the host tries robots.txt again.
	RobotsFailureAllow RobotsFailureMode = iota
	// RobotsFailureCacheEmpty records "no policy" locally and in the store.
	RobotsFailureCacheEmpty
)

// RobotsStore persists robots policies.
type RobotsStore interface {
	// RobotsPolicy returns the stored rules when a status row newer than
	// maxAge exists. found is false when the policy is unknown or stale.
	RobotsPolicy(ctx context.Context, host string, port int, maxAge time.Duration) (rules []string, found bool, err error)
	// SaveRobotsPolicy replaces the rules for host:port and stamps freshness.
	SaveRobotsPolicy(ctx context.Context, host string, port int, rules []string, havePolicy bool) error
}

// Fetcher retrieves robots.txt.
type Fetcher interface {
	Fetch(ctx context.Context, u gemurl.URL, opts geminifetcher.Options) (geminifetcher.Response, error)
}

// Config tunes the engine. Zero values take defaults.
type Config struct {
	Protocol         string
	Agents           []string
	FailureThreshold int
	CacheTTL         time.Duration
	CacheSize        int
	PersistTTL       time.Duration
	RobotsTimeout    time.Duration
	RobotsMaxBytes   int64
	FailureMode      RobotsFailureMode
}

func (c Config) withDefaults() Config {
	if c.Protocol == "" {
		c.Protocol = defaultProtocol
	}
	if len(c.Agents) == 0 {
		c.Agents = robots.DefaultAgents
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = defaultFailureThreshold
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	if c.CacheSize <= 0 {
		c.CacheSize = defaultCacheSize
	}
	if c.PersistTTL <= 0 {
		c.PersistTTL = defaultPersistTTL
	}
	if c.RobotsTimeout <= 0 {
		c.RobotsTimeout = defaultRobotsTimeout
	}
	if c.RobotsMaxBytes <= 0 {
		c.RobotsMaxBytes = defaultRobotsMaxBytes
	}
	return c
}

// Engine is safe for concurrent use. Its caches are process-local.
type Engine struct {
	cfg       Config
	blacklist *blacklist.Blacklist
	store     RobotsStore
	fetcher   Fetcher
	failures  *HostFailures
	cache     *expirable.LRU[string, []string]
	logger    *zap.Logger
}

// New builds an Engine. A nil blacklist blocks nothing; a nil store or
// fetcher disables the corresponding robots resolution step.
func New(cfg Config, bl *blacklist.Blacklist, store RobotsStore, fetcher Fetcher, logger *zap.Logger) *Engine {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		blacklist: bl,
		store:     store,
		fetcher:   fetcher,
		failures:  NewHostFailures(cfg.FailureThreshold),
		cache:     expirable.NewLRU[string, []string](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:    logger,
	}
}

// ShouldCrawl decides whether u may be fetched.
func (e *Engine) ShouldCrawl(ctx context.Context, u gemurl.URL) Decision {
	if d := e.checkStatic(u); !d.Allowed {
		return d
	}
	rules := e.RobotsRules(ctx, u)
	if robots.IsPathBlocked(u.Path(), rules) {
		return e.reject(u, ReasonRobots)
	}
	return Decision{Allowed: true, Reason: ReasonAllowed}
}

// Admissible runs every check except robots. It is used to filter discovered
// links before they are added to the frontier.
func (e *Engine) Admissible(u gemurl.URL) bool {
	return e.checkStatic(u).Allowed
}

func (e *Engine) checkStatic(u gemurl.URL) Decision {
	switch {
	case u.Validate() != nil:
		return e.reject(u, ReasonInvalid)
	case u.Protocol() != e.cfg.Protocol:
		return e.reject(u, ReasonProtocol)
	case e.blacklist != nil && e.blacklist.IsBlocked(u):
		return e.reject(u, ReasonBlacklist)
	case e.failures.Exceeded(e.hostKey(u)):
		return e.reject(u, ReasonHostDown)
	}
	return Decision{Allowed: true, Reason: ReasonAllowed}
}

func (e *Engine) reject(u gemurl.URL, reason Reason) Decision {
	metrics.ObservePolicyRejection(string(reason))
	e.logger.Debug("url rejected", zap.String("url", u.String()), zap.String("reason", string(reason)))
	return Decision{Allowed: false, Reason: reason}
}

// RecordFailure notes a timeout or network failure against u's host.
func (e *Engine) RecordFailure(u gemurl.URL) {
	if e.failures.Record(e.hostKey(u)) {
		e.logger.Info("host marked as failing", zap.String("host", e.hostKey(u)))
	}
}

// Failures exposes the host failure counter.
func (e *Engine) Failures() *HostFailures {
	return e.failures
}

func (e *Engine) hostKey(u gemurl.URL) string {
	return u.HostWithPort(gemurl.DefaultPort(e.cfg.Protocol))
}
