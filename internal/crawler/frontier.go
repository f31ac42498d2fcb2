package crawler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/gemini-search/internal/queue/memory"
)

// fullBatchRatio is the share of a claim below which the scan widens.
const fullBatchRatio = 0.9

// Frontier buffers claimed URLs in memory and refills from the store when
// the buffer runs dry. It implements dispatcher.Source.
type Frontier struct {
	store  FrontierStore
	queue  *memory.Queue[string]
	opts   ClaimOptions
	logger *zap.Logger

	mu        sync.Mutex
	sample    float64
	exhausted bool
}

// NewFrontier builds a Frontier claiming cfg.ClaimBatch URLs at a time.
func NewFrontier(store FrontierStore, cfg Config, logger *zap.Logger) *Frontier {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Frontier{
		store: store,
		queue: memory.NewQueue[string](cfg.ClaimBatch),
		opts: ClaimOptions{
			Limit:        cfg.ClaimBatch,
			RecrawlAfter: cfg.RecrawlAfter,
			RequeueAfter: cfg.RequeueAfter,
		},
		sample: cfg.InitialSample,
		logger: logger,
	}
}

// Next returns the next URL to crawl. ok is false once a full scan of the
// store found nothing due.
func (f *Frontier) Next(ctx context.Context) (string, bool, error) {
	if u, ok := f.queue.TryDequeue(); ok {
		return u, true, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	// Another caller may have refilled while we waited for the lock.
	if u, ok := f.queue.TryDequeue(); ok {
		return u, true, nil
	}
	if err := f.refill(ctx); err != nil {
		return "", false, err
	}
	u, ok := f.queue.TryDequeue()
	return u, ok, nil
}

// Exhausted reports whether the last refill found no due URL at full sample.
func (f *Frontier) Exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exhausted
}

// Sample returns the current claim sampling fraction.
func (f *Frontier) Sample() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sample
}

func (f *Frontier) refill(ctx context.Context) error {
	for {
		opts := f.opts
		opts.Sample = f.sample
		batch, err := f.store.ClaimBatch(ctx, opts)
		if err != nil {
			return fmt.Errorf("refill frontier: %w", err)
		}
		scannedAll := f.sample >= 1
		if float64(len(batch)) < fullBatchRatio*float64(f.opts.Limit) && f.sample < 1 {
			f.sample = min(1, f.sample*2)
			f.logger.Debug("widening frontier sample",
				zap.Int("claimed", len(batch)),
				zap.Float64("sample", f.sample))
		}
		if len(batch) == 0 {
			if scannedAll {
				f.exhausted = true
				return nil
			}
			continue
		}

		f.exhausted = false
		rand.Shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })
		for _, u := range batch {
			if !f.queue.TryEnqueue(u) {
				// The buffer only overflows if the store ignores Limit.
				f.logger.Warn("frontier buffer full, dropping claim", zap.String("url", u))
			}
		}
		f.logger.Debug("frontier refilled", zap.Int("claimed", len(batch)))
		return nil
	}
}
