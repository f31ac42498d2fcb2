package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// RunStatus mirrors the crawl_runs status column.
type RunStatus string

// Run statuses persisted in crawl_runs.status.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// CrawlRun models one crawler process lifetime.
type CrawlRun struct {
	ID         uuid.UUID  `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     RunStatus  `json:"status"`
	// ErrorMessage optionally stores the final failure reason.
	ErrorMessage *string `json:"error_message,omitempty"`
}

// HostStats aggregates fetch outcomes of one host within a run. Counters are
// keyed by the leading digit of the Gemini status; Errors counts attempts
// that never produced a status.
type HostStats struct {
	RunID      uuid.UUID `json:"run_id"`
	Host       string    `json:"host"`
	LastUpdate time.Time `json:"last_update"`
	Pages      int64     `json:"pages"`
	BytesTotal int64     `json:"bytes_total"`
	Fetch1x    int64     `json:"fetch_1x"`
	Fetch2x    int64     `json:"fetch_2x"`
	Fetch3x    int64     `json:"fetch_3x"`
	Fetch4x    int64     `json:"fetch_4x"`
	Fetch5x    int64     `json:"fetch_5x"`
	Fetch6x    int64     `json:"fetch_6x"`
	Errors     int64     `json:"errors"`
}

// RunRepository persists crawl run progress.
type RunRepository interface {
	// StartRun inserts (or idempotently re-marks) a running run.
	StartRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error
	// CompleteRun marks the run finished with the provided status and error.
	CompleteRun(ctx context.Context, runID uuid.UUID, finishedAt time.Time, status RunStatus, errMsg *string) error
	// UpsertHostStats applies page/byte deltas per (run, host, statusClass).
	UpsertHostStats(
		ctx context.Context,
		runID uuid.UUID,
		host string,
		deltaPages int64,
		deltaBytes int64,
		statusClass string,
		at time.Time,
	) error

	// GetRun loads a single run or returns ErrNotFound.
	GetRun(ctx context.Context, runID uuid.UUID) (CrawlRun, error)
	// ListRuns returns runs filtered by optional status plus limit/offset.
	ListRuns(ctx context.Context, status *RunStatus, limit, offset int) ([]CrawlRun, error)
	// ListRunHosts returns aggregated host stats for one run.
	ListRunHosts(ctx context.Context, runID uuid.UUID, limit, offset int) ([]HostStats, error)
}
