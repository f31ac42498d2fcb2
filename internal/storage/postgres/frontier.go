package postgres

import (
	"context"
	"fmt"

	"github.com/JakeFAU/gemini-search/internal/crawler"
	"github.com/JakeFAU/gemini-search/internal/gemurl"
)

const claimSQL = `
UPDATE pages SET last_queued_at = NOW()
WHERE url IN (
	SELECT url FROM pages
	WHERE (last_crawled_at < NOW() - make_interval(secs => $1) OR last_crawled_at IS NULL)
		AND (last_queued_at < NOW() - make_interval(secs => $2) OR last_queued_at IS NULL)
		AND random() < $3
	LIMIT $4
	FOR UPDATE SKIP LOCKED
)
RETURNING url`

// ClaimBatch marks up to opts.Limit due pages as queued and returns their
// URLs. Rows locked by another worker are skipped, so concurrent claimers
// never receive the same URL.
func (s *Store) ClaimBatch(ctx context.Context, opts crawler.ClaimOptions) ([]string, error) {
	sample := opts.Sample
	if sample <= 0 || sample > 1 {
		sample = 1
	}
	var urls []string
	err := withRetry(ctx, func() error {
		urls = urls[:0]
		rows, err := s.db.Query(ctx, claimSQL,
			seconds(opts.RecrawlAfter), seconds(opts.RequeueAfter), sample, opts.Limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var u string
			if err := rows.Scan(&u); err != nil {
				return err
			}
			urls = append(urls, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("claim frontier batch: %w", err)
	}
	return urls, nil
}

const insertPagesSQL = `
INSERT INTO pages (url, domain_name, port, first_seen_at)
SELECT u, h, p, NOW() FROM unnest($1::text[], $2::text[], $3::int[]) AS t(u, h, p)
ON CONFLICT DO NOTHING`

// InsertPages adds newly discovered URLs to the frontier. Known URLs are left
// untouched. It returns the number of new rows.
func (s *Store) InsertPages(ctx context.Context, pages []gemurl.URL) (int64, error) {
	if len(pages) == 0 {
		return 0, nil
	}
	urls := make([]string, len(pages))
	hosts := make([]string, len(pages))
	ports := make([]int32, len(pages))
	for i, p := range pages {
		urls[i] = p.String()
		hosts[i] = p.Host()
		ports[i] = int32(p.Port())
	}
	var inserted int64
	err := withRetry(ctx, func() error {
		tag, err := s.db.Exec(ctx, insertPagesSQL, urls, hosts, ports)
		if err != nil {
			return err
		}
		inserted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("insert pages: %w", err)
	}
	return inserted, nil
}

// InsertPage adds a single URL to the frontier.
func (s *Store) InsertPage(ctx context.Context, u gemurl.URL) (bool, error) {
	n, err := s.InsertPages(ctx, []gemurl.URL{u})
	return n > 0, err
}
