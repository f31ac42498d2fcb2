package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// schema is applied in order by EnsureSchema. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS pages (
		url text NOT NULL,
		domain_name text NOT NULL,
		port integer NOT NULL,
		content_type text,
		charset text,
		lang text,
		title text,
		content_body text,
		size bigint DEFAULT 0 NOT NULL,
		last_indexed_at timestamp without time zone,
		last_crawled_at timestamp without time zone,
		last_crawl_success_at timestamp without time zone,
		last_status integer,
		last_meta text,
		first_seen_at timestamp without time zone NOT NULL,
		cross_site_links json,
		internal_links json,
		title_vector tsvector,
		search_vector tsvector,
		last_queued_at timestamp without time zone,
		indexed_content_hash text NOT NULL DEFAULT '',
		raw_content_hash text NOT NULL DEFAULT '',
		feed_type text,
		PRIMARY KEY (url)
	)`,
	`CREATE INDEX IF NOT EXISTS last_crawled_index ON pages USING btree (last_crawled_at DESC)`,
	`CREATE INDEX IF NOT EXISTS search_vector_index ON pages USING gin (search_vector)`,
	`CREATE INDEX IF NOT EXISTS title_vector_index ON pages USING gin (title_vector)`,

	`CREATE TABLE IF NOT EXISTS links (
		url text NOT NULL,
		host text NOT NULL,
		port integer NOT NULL,
		to_url text NOT NULL,
		to_host text NOT NULL,
		to_port integer NOT NULL,
		is_cross_site boolean NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS is_cross_site_index ON links USING btree (is_cross_site)`,
	`CREATE INDEX IF NOT EXISTS source_url_index ON links USING btree (url)`,
	`CREATE INDEX IF NOT EXISTS to_url_index ON links USING btree (to_url)`,

	`CREATE TABLE IF NOT EXISTS robot_policies (
		host text NOT NULL,
		port integer NOT NULL,
		disallowed text NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS host_port_index ON robot_policies USING btree (host, port)`,
	`CREATE TABLE IF NOT EXISTS robot_policies_status (
		host text NOT NULL,
		port integer NOT NULL,
		last_crawled_at timestamp without time zone NOT NULL,
		have_policy boolean NOT NULL,
		PRIMARY KEY (host, port)
	)`,

	`CREATE TABLE IF NOT EXISTS crawl_runs (
		id uuid PRIMARY KEY,
		started_at timestamptz NOT NULL,
		finished_at timestamptz,
		status text NOT NULL,
		error_message text
	)`,
	`CREATE TABLE IF NOT EXISTS host_stats (
		run_id uuid NOT NULL REFERENCES crawl_runs (id) ON DELETE CASCADE,
		host text NOT NULL,
		last_update timestamptz NOT NULL,
		pages bigint NOT NULL DEFAULT 0,
		bytes_total bigint NOT NULL DEFAULT 0,
		fetch_1x bigint NOT NULL DEFAULT 0,
		fetch_2x bigint NOT NULL DEFAULT 0,
		fetch_3x bigint NOT NULL DEFAULT 0,
		fetch_4x bigint NOT NULL DEFAULT 0,
		fetch_5x bigint NOT NULL DEFAULT 0,
		fetch_6x bigint NOT NULL DEFAULT 0,
		errors bigint NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, host)
	)`,
}

// EnsureSchema creates every table and index the crawler and search rely on.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Purge deletes pages matching the SQL LIKE pattern together with every link
// from or to them. It returns the number of deleted pages.
func (s *Store) Purge(ctx context.Context, pattern string) (int64, error) {
	if pattern == "" {
		return 0, fmt.Errorf("purge pattern is required")
	}
	var deleted int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM pages WHERE url LIKE $1`, pattern)
		if err != nil {
			return fmt.Errorf("delete pages: %w", err)
		}
		deleted = tag.RowsAffected()
		if _, err := tx.Exec(ctx, `DELETE FROM links WHERE url LIKE $1`, pattern); err != nil {
			return fmt.Errorf("delete outgoing links: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM links WHERE to_url LIKE $1`, pattern); err != nil {
			return fmt.Errorf("delete incoming links: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge %q: %w", pattern, err)
	}
	return deleted, nil
}
