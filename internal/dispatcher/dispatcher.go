// Package dispatcher runs a bounded number of concurrent tasks pulled from a
// source until the source is drained and no task is in flight.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// defaultHeartbeat bounds how long an idle dispatcher waits for a completion
// before asking the source again.
const defaultHeartbeat = 5 * time.Second

// Source yields work items. ok=false means nothing is available right now.
type Source[T any] interface {
	Next(ctx context.Context) (item T, ok bool, err error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context) (T, bool, error)

// Next calls f.
func (f SourceFunc[T]) Next(ctx context.Context) (T, bool, error) { return f(ctx) }

// Handler processes one item. Handlers run with a context that is not
// canceled when Run's context is, so in-flight work always completes.
type Handler[T any] func(ctx context.Context, item T)

// Config tunes the dispatcher.
type Config struct {
	// Concurrency caps in-flight handlers. Values below 1 mean 1.
	Concurrency int
	// Heartbeat is the fallback re-dispatch interval while waiting for
	// in-flight work.
	Heartbeat time.Duration
}

// Dispatcher keeps up to Concurrency handlers running. Every completion
// wakes the loop so a new item is pulled immediately.
type Dispatcher[T any] struct {
	source    Source[T]
	handle    Handler[T]
	sem       *semaphore.Weighted
	heartbeat time.Duration
	logger    *zap.Logger

	inFlight    atomic.Int64
	completions atomic.Uint64
	wake        chan struct{}
	done        chan struct{}
	started     atomic.Bool
	wg          sync.WaitGroup
	err         error
}

// New creates a Dispatcher.
func New[T any](cfg Config, source Source[T], handle Handler[T], logger *zap.Logger) *Dispatcher[T] {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher[T]{
		source:    source,
		handle:    handle,
		sem:       semaphore.NewWeighted(int64(cfg.Concurrency)),
		heartbeat: cfg.Heartbeat,
		logger:    logger,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// InFlight returns the number of running handlers.
func (d *Dispatcher[T]) InFlight() int64 { return d.inFlight.Load() }

// Done is closed once Run has returned.
func (d *Dispatcher[T]) Done() <-chan struct{} { return d.done }

// Wait blocks until Run returns or ctx ends, and reports Run's error.
func (d *Dispatcher[T]) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.err
	case <-ctx.Done():
		return fmt.Errorf("wait for dispatcher: %w", ctx.Err())
	}
}

// Run dispatches until the source is empty with nothing in flight, the
// source fails, or ctx is canceled. It always waits for in-flight handlers
// before returning. Run may be called once.
func (d *Dispatcher[T]) Run(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return errors.New("dispatcher already started")
	}
	defer close(d.done)
	d.err = d.loop(ctx)
	d.wg.Wait()
	return d.err
}

func (d *Dispatcher[T]) loop(ctx context.Context) error {
	taskCtx := context.WithoutCancel(ctx)
	ticker := time.NewTicker(d.heartbeat)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("dispatch canceled: %w", err)
		}
		if err := d.sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("dispatch canceled: %w", err)
		}
		gen := d.completions.Load()
		item, ok, err := d.source.Next(ctx)
		if err != nil {
			d.sem.Release(1)
			return fmt.Errorf("next item: %w", err)
		}
		if ok {
			d.start(taskCtx, item)
			continue
		}
		d.sem.Release(1)

		// A task finishing after Next started may have produced new work.
		if d.inFlight.Load() == 0 && d.completions.Load() == gen {
			d.logger.Debug("source drained with nothing in flight")
			return nil
		}
		if d.inFlight.Load() == 0 {
			continue
		}
		select {
		case <-d.wake:
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("dispatch canceled: %w", ctx.Err())
		}
	}
}

func (d *Dispatcher[T]) start(ctx context.Context, item T) {
	d.inFlight.Add(1)
	d.wg.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("handler panicked", zap.Any("panic", r))
			}
			d.completions.Add(1)
			d.inFlight.Add(-1)
			d.sem.Release(1)
			d.wg.Done()
			select {
			case d.wake <- struct{}{}:
			default:
			}
		}()
		d.handle(ctx, item)
	}()
}
