package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/gemini-search/internal/clock/system"
	"github.com/JakeFAU/gemini-search/internal/dispatcher"
	"github.com/JakeFAU/gemini-search/internal/gemurl"
	idgen "github.com/JakeFAU/gemini-search/internal/id/uuid"
	"github.com/JakeFAU/gemini-search/internal/progress"
)

// Deps are the collaborators of a Crawler. Limiter, Clock, IDs and Emitter
// are optional.
type Deps struct {
	Store   Store
	Policy  Policy
	Fetcher Fetcher
	Hasher  Hasher
	Limiter RateLimiter
	Clock   Clock
	IDs     IDGenerator
	Emitter progress.Emitter
}

// Crawler runs crawl pipelines against the persistent frontier.
type Crawler struct {
	cfg     Config
	store   Store
	policy  Policy
	fetcher Fetcher
	hasher  Hasher
	limiter RateLimiter
	clock   Clock
	ids     IDGenerator
	emitter progress.Emitter
	logger  *zap.Logger

	seenMu sync.Mutex
	seen   *bloom.BloomFilter

	runMu sync.Mutex
	runID [16]byte
}

// New wires a Crawler.
func New(cfg Config, deps Deps, logger *zap.Logger) (*Crawler, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("crawler requires a store")
	case deps.Policy == nil:
		return nil, errors.New("crawler requires a policy")
	case deps.Fetcher == nil:
		return nil, errors.New("crawler requires a fetcher")
	case deps.Hasher == nil:
		return nil, errors.New("crawler requires a hasher")
	}
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Crawler{
		cfg:     cfg,
		store:   deps.Store,
		policy:  deps.Policy,
		fetcher: deps.Fetcher,
		hasher:  deps.Hasher,
		limiter: deps.Limiter,
		clock:   deps.Clock,
		ids:     deps.IDs,
		emitter: deps.Emitter,
		logger:  logger,
		seen:    bloom.NewWithEstimates(cfg.BloomCapacity, cfg.BloomFalsePositive),
	}
	if c.clock == nil {
		c.clock = system.New()
	}
	if c.ids == nil {
		c.ids = idgen.NewUUIDGenerator()
	}
	if c.emitter == nil {
		c.emitter = progress.Discard
	}
	return c, nil
}

// CrawlAll crawls until the frontier has nothing due and every pipeline has
// finished, or ctx is canceled. Cancellation stops new dispatches; pipelines
// already running complete.
func (c *Crawler) CrawlAll(ctx context.Context) error {
	id, err := c.ids.NewRawID()
	if err != nil {
		return fmt.Errorf("start crawl run: %w", err)
	}
	c.setRunID(id)
	start := c.clock.Now()
	c.emitRun(progress.StageRunStart, 0, "")
	c.logger.Info("crawl started",
		zap.Stringer("run_id", id),
		zap.Int("concurrency", c.cfg.Concurrency),
		zap.Bool("force_reindex", c.cfg.ForceReindex))

	frontier := NewFrontier(c.store, c.cfg, c.logger)
	d := dispatcher.New(
		dispatcher.Config{Concurrency: c.cfg.Concurrency, Heartbeat: c.cfg.Heartbeat},
		frontier,
		func(ctx context.Context, raw string) { c.CrawlURL(ctx, raw) },
		c.logger,
	)

	stopBeat := make(chan struct{})
	go c.heartbeat(d, stopBeat)
	err = d.Run(ctx)
	close(stopBeat)

	dur := c.clock.Now().Sub(start)
	switch {
	case err == nil:
		c.emitRun(progress.StageRunDone, dur, "")
		c.logger.Info("crawl finished", zap.Stringer("run_id", id), zap.Duration("took", dur))
		return nil
	case errors.Is(err, context.Canceled):
		c.emitRun(progress.StageRunDone, dur, "stopped")
		c.logger.Info("crawl stopped", zap.Stringer("run_id", id), zap.Duration("took", dur))
		return nil
	default:
		c.emitRun(progress.StageRunError, dur, err.Error())
		c.logger.Error("crawl failed", zap.Stringer("run_id", id), zap.Error(err))
		return fmt.Errorf("crawl: %w", err)
	}
}

func (c *Crawler) heartbeat(d *dispatcher.Dispatcher[string], stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.ProgressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.emitRun(progress.StageRunHB, 0, fmt.Sprintf("in_flight=%d", d.InFlight()))
		}
	}
}

// AddSeed validates raw and inserts it into the frontier. It reports whether
// the URL was new.
func (c *Crawler) AddSeed(ctx context.Context, raw string) (bool, error) {
	u, err := c.seedURL(raw)
	if err != nil {
		return false, err
	}
	n, err := c.store.InsertPages(ctx, []gemurl.URL{u})
	if err != nil {
		return false, fmt.Errorf("add seed: %w", err)
	}
	return n > 0, nil
}

// AddSeeds inserts every admissible URL in raws. Invalid or blocked entries
// are logged and skipped. It returns the number of new frontier rows.
func (c *Crawler) AddSeeds(ctx context.Context, raws []string) (int64, error) {
	urls := make([]gemurl.URL, 0, len(raws))
	for _, raw := range raws {
		u, err := c.seedURL(raw)
		if err != nil {
			c.logger.Warn("skipping seed", zap.String("url", raw), zap.Error(err))
			continue
		}
		urls = append(urls, u)
	}
	n, err := c.store.InsertPages(ctx, urls)
	if err != nil {
		return 0, fmt.Errorf("add seeds: %w", err)
	}
	return n, nil
}

func (c *Crawler) seedURL(raw string) (gemurl.URL, error) {
	u := gemurl.Parse(raw)
	if err := u.Validate(); err != nil {
		return gemurl.URL{}, err
	}
	if u.Protocol() != c.cfg.Protocol {
		return gemurl.URL{}, fmt.Errorf("%w: protocol %q", ErrSeedRejected, u.Protocol())
	}
	u = u.WithFragment("")
	if !c.policy.Admissible(u) {
		return gemurl.URL{}, fmt.Errorf("%w: %s", ErrSeedRejected, u.String())
	}
	return u, nil
}

func (c *Crawler) setRunID(id uuid.UUID) {
	c.runMu.Lock()
	c.runID = progress.UUIDToBytes(id)
	c.runMu.Unlock()
}

func (c *Crawler) currentRun() [16]byte {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.runID
}

func (c *Crawler) emitRun(stage progress.Stage, dur time.Duration, note string) {
	c.emitter.Emit(progress.Event{
		RunID: c.currentRun(),
		TS:    c.clock.Now().UTC(),
		Stage: stage,
		Dur:   dur,
		Note:  note,
	})
}

// markSeen reports whether key was already offered to the frontier during
// this process. False positives only cost a skipped insert of a URL that is
// most likely known already.
func (c *Crawler) markSeen(key string) bool {
	c.seenMu.Lock()
	defer c.seenMu.Unlock()
	return c.seen.TestAndAddString(key)
}

