package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/gemini-search/internal/store"
)

var _ store.RunRepository = (*Store)(nil)

// statusColumns maps a status class to its host_stats counter column.
var statusColumns = map[string]string{
	"1x":    "fetch_1x",
	"2x":    "fetch_2x",
	"3x":    "fetch_3x",
	"4x":    "fetch_4x",
	"5x":    "fetch_5x",
	"6x":    "fetch_6x",
	"error": "errors",
}

// StartRun inserts a running crawl run.
func (s *Store) StartRun(ctx context.Context, runID uuid.UUID, startedAt time.Time) error {
	query := `
		INSERT INTO crawl_runs (id, started_at, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status
		WHERE crawl_runs.status <> EXCLUDED.status`
	if _, err := s.db.Exec(ctx, query, runID, startedAt, store.RunRunning); err != nil {
		return fmt.Errorf("start crawl run: %w", err)
	}
	return nil
}

// CompleteRun marks a run finished with a status and optional error message.
func (s *Store) CompleteRun(
	ctx context.Context,
	runID uuid.UUID,
	finishedAt time.Time,
	status store.RunStatus,
	errMsg *string,
) error {
	query := `UPDATE crawl_runs SET finished_at = $1, status = $2, error_message = $3 WHERE id = $4`
	if _, err := s.db.Exec(ctx, query, finishedAt, status, errMsg, runID); err != nil {
		return fmt.Errorf("complete crawl run: %w", err)
	}
	return nil
}

// UpsertHostStats adds deltas to the counters of one host within a run.
func (s *Store) UpsertHostStats(
	ctx context.Context,
	runID uuid.UUID,
	host string,
	deltaPages,
	deltaBytes int64,
	statusClass string,
	at time.Time,
) error {
	column, ok := statusColumns[statusClass]
	if !ok {
		return fmt.Errorf("unknown status class: %s", statusClass)
	}
	update := fmt.Sprintf(`
		UPDATE host_stats SET pages = pages + $1,
			bytes_total = bytes_total + $2,
			%[1]s = %[1]s + $1,
			last_update = $3
		WHERE run_id = $4 AND host = $5`, column)
	res, err := s.db.Exec(ctx, update, deltaPages, deltaBytes, at, runID, host)
	if err != nil {
		return fmt.Errorf("update host stats: %w", err)
	}
	if res.RowsAffected() > 0 {
		return nil
	}

	insert := fmt.Sprintf(`
		INSERT INTO host_stats (run_id, host, last_update, pages, bytes_total, %s)
		VALUES ($1, $2, $3, $4, $5, $4)
		ON CONFLICT (run_id, host) DO NOTHING`, column)
	if _, err := s.db.Exec(ctx, insert, runID, host, at, deltaPages, deltaBytes); err != nil {
		return fmt.Errorf("insert host stats: %w", err)
	}
	return nil
}

// GetRun retrieves a single run by its ID.
func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (store.CrawlRun, error) {
	query := `
		SELECT id, started_at, finished_at, status, error_message
		FROM crawl_runs WHERE id = $1`
	var run store.CrawlRun
	err := s.db.QueryRow(ctx, query, runID).Scan(
		&run.ID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Status,
		&run.ErrorMessage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.CrawlRun{}, store.ErrNotFound
		}
		return store.CrawlRun{}, fmt.Errorf("get crawl run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs newest first, optionally filtered by status.
func (s *Store) ListRuns(ctx context.Context, status *store.RunStatus, limit, offset int) ([]store.CrawlRun, error) {
	query := `
		SELECT id, started_at, finished_at, status, error_message
		FROM crawl_runs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := s.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list crawl runs: %w", err)
	}
	defer rows.Close()

	runs := []store.CrawlRun{}
	for rows.Next() {
		var run store.CrawlRun
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status, &run.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan crawl run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListRunHosts retrieves host aggregates for a run, most recent first.
func (s *Store) ListRunHosts(ctx context.Context, runID uuid.UUID, limit, offset int) ([]store.HostStats, error) {
	query := `
		SELECT run_id, host, last_update, pages, bytes_total,
			fetch_1x, fetch_2x, fetch_3x, fetch_4x, fetch_5x, fetch_6x, errors
		FROM host_stats
		WHERE run_id = $1
		ORDER BY last_update DESC
		LIMIT $2 OFFSET $3`
	rows, err := s.db.Query(ctx, query, runID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list run hosts: %w", err)
	}
	defer rows.Close()

	stats := []store.HostStats{}
	for rows.Next() {
		var st store.HostStats
		err := rows.Scan(
			&st.RunID,
			&st.Host,
			&st.LastUpdate,
			&st.Pages,
			&st.BytesTotal,
			&st.Fetch1x,
			&st.Fetch2x,
			&st.Fetch3x,
			&st.Fetch4x,
			&st.Fetch5x,
			&st.Fetch6x,
			&st.Errors,
		)
		if err != nil {
			return nil, fmt.Errorf("scan host stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}
