// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/gemini-search/internal/api"
	"github.com/JakeFAU/gemini-search/internal/clock/system"
	"github.com/JakeFAU/gemini-search/internal/config"
	"github.com/JakeFAU/gemini-search/internal/crawler"
	geminifetcher "github.com/JakeFAU/gemini-search/internal/fetcher/gemini"
	"github.com/JakeFAU/gemini-search/internal/hash/xxhash"
	idgen "github.com/JakeFAU/gemini-search/internal/id/uuid"
	"github.com/JakeFAU/gemini-search/internal/policy"
	"github.com/JakeFAU/gemini-search/internal/policy/blacklist"
	"github.com/JakeFAU/gemini-search/internal/policy/ratelimit"
	"github.com/JakeFAU/gemini-search/internal/progress"
	"github.com/JakeFAU/gemini-search/internal/progress/sinks"
	"github.com/JakeFAU/gemini-search/internal/ranking"
	"github.com/JakeFAU/gemini-search/internal/storage/postgres"
)

// App holds the shared, long-lived services of one process: configuration,
// logger and the Postgres store. Crawl, search and API components are built
// on demand from it so each command only pays for what it uses.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *postgres.Store
	registry prometheus.Registerer

	fetcherOnce sync.Once
	fetcher     *geminifetcher.Fetcher

	policyOnce sync.Once
	policy     *policy.Engine
	policyErr  error
}

// New connects to Postgres and returns the container. It fails fast when the
// database is not configured or unreachable.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.RequireDB(); err != nil {
		return nil, err
	}
	logger.Info("connecting to postgres")
	st, err := postgres.New(ctx, cfg.PostgresOptions())
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := st.Ping(ctx); err != nil {
		st.Close()
		return nil, err
	}
	logger.Info("application services initialized")
	return NewWithStore(cfg, st, logger), nil
}

// NewWithStore builds the container around an existing store.
func NewWithStore(cfg config.Config, st *postgres.Store, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		registry: prometheus.DefaultRegisterer,
	}
}

// WithRegisterer replaces the registerer used by the progress metrics sink.
func (a *App) WithRegisterer(reg prometheus.Registerer) *App {
	a.registry = reg
	return a
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store returns the Postgres store.
func (a *App) Store() *postgres.Store { return a.store }

// Fetcher returns the shared Gemini client. Its TOFU table lives as long as
// the process.
func (a *App) Fetcher() *geminifetcher.Fetcher {
	a.fetcherOnce.Do(func() {
		a.fetcher = geminifetcher.New(a.cfg.FetchOptions(), a.logger.Named("fetcher"))
	})
	return a.fetcher
}

// Policy returns the shared crawl policy engine.
func (a *App) Policy() (*policy.Engine, error) {
	a.policyOnce.Do(func() {
		bl, err := blacklist.Default(a.cfg.Crawler.BlockedDomains, a.cfg.Crawler.BlockedPrefixes)
		if err != nil {
			a.policyErr = fmt.Errorf("build blacklist: %w", err)
			return
		}
		a.policy = policy.New(a.cfg.PolicyOptions(), bl, a.store, a.Fetcher(), a.logger.Named("policy"))
	})
	return a.policy, a.policyErr
}

// NewCrawler wires a crawler that reports progress to emitter.
func (a *App) NewCrawler(emitter progress.Emitter) (*crawler.Crawler, error) {
	pol, err := a.Policy()
	if err != nil {
		return nil, err
	}
	c, err := crawler.New(a.cfg.CrawlerOptions(), crawler.Deps{
		Store:   a.store,
		Policy:  pol,
		Fetcher: a.Fetcher(),
		Hasher:  xxhash.New(),
		Limiter: ratelimit.New(a.cfg.RateLimitOptions()),
		Clock:   system.New(),
		IDs:     idgen.NewUUIDGenerator(),
		Emitter: emitter,
	}, a.logger.Named("crawler"))
	if err != nil {
		return nil, fmt.Errorf("init crawler: %w", err)
	}
	return c, nil
}

// NewSearcher wires the ranking engine over the store.
func (a *App) NewSearcher() *ranking.Searcher {
	return ranking.NewSearcher(a.store, a.cfg.SearcherOptions(), a.logger.Named("search"))
}

// NewHub starts a progress hub that logs events, exports them as metrics and
// persists run and host statistics. Callers must Close it.
func (a *App) NewHub() (*progress.Hub, error) {
	promSink, err := sinks.NewPrometheusSink(a.registry)
	if err != nil {
		return nil, fmt.Errorf("init progress metrics: %w", err)
	}
	cfg := a.cfg.ProgressOptions()
	cfg.Logger = a.logger.Named("progress")
	return progress.NewHub(cfg,
		sinks.NewLogSink(a.logger.Named("progress")),
		promSink,
		sinks.NewStoreSink(a.store, a.logger.Named("progress")),
	), nil
}

// NewServer builds the HTTP API. seeds may be nil, in which case seed
// submission answers 503.
func (a *App) NewServer(seeds api.SeedAdder) *api.Server {
	deps := api.Deps{
		Searcher: a.NewSearcher(),
		Index:    a.store,
		Seeds:    seeds,
		Runs:     a.store,
		Ready:    a.store,
	}
	return api.NewServer(deps, a.cfg.APIOptions(), a.logger.Named("api"))
}

// Close releases the store and flushes the logger. It is called by a Cobra
// hook after the command finishes.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	a.store.Close()
	_ = a.logger.Sync() //nolint:errcheck // stderr sync fails on some platforms
}
