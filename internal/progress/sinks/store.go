package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/gemini-search/internal/progress"
	"github.com/JakeFAU/gemini-search/internal/store"
)

// StoreSink persists run milestones and per-host fetch totals through a
// store.RunRepository. Fetch events are collapsed per (run, host, class)
// within a batch before writing.
type StoreSink struct {
	repo   store.RunRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for repo.
func NewStoreSink(repo store.RunRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume writes the batch, returning the first repository error.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	deltas := make(map[hostKey]*hostDelta)
	for _, evt := range batch {
		runID := evt.RunUUID()
		switch evt.Stage {
		case progress.StageRunStart:
			if err := s.repo.StartRun(ctx, runID, evt.TS); err != nil {
				return fmt.Errorf("start run: %w", err)
			}
		case progress.StageRunDone:
			if err := s.repo.CompleteRun(ctx, runID, evt.TS, store.RunSuccess, nil); err != nil {
				return fmt.Errorf("complete run: %w", err)
			}
		case progress.StageRunError:
			var note *string
			if evt.Note != "" {
				note = &evt.Note
			}
			if err := s.repo.CompleteRun(ctx, runID, evt.TS, store.RunError, note); err != nil {
				return fmt.Errorf("complete run: %w", err)
			}
		case progress.StageFetchDone:
			addDelta(deltas, runID, evt)
		}
	}

	for key, d := range deltas {
		if err := s.repo.UpsertHostStats(ctx, key.runID, key.host, d.pages, d.bytes, key.class, d.at); err != nil {
			return fmt.Errorf("upsert host stats: %w", err)
		}
	}
	return nil
}

func addDelta(deltas map[hostKey]*hostDelta, runID uuid.UUID, evt progress.Event) {
	if evt.Host == "" || evt.Pages == 0 && evt.Bytes == 0 {
		return
	}
	key := hostKey{runID: runID, host: evt.Host, class: string(evt.StatusClass)}
	d := deltas[key]
	if d == nil {
		d = &hostDelta{}
		deltas[key] = d
	}
	d.pages += evt.Pages
	d.bytes += evt.Bytes
	if evt.TS.After(d.at) {
		d.at = evt.TS
	}
}

// Close implements progress.Sink.
func (s *StoreSink) Close(context.Context) error {
	return nil
}

type hostKey struct {
	runID uuid.UUID
	host  string
	class string
}

type hostDelta struct {
	pages int64
	bytes int64
	at    time.Time
}
