package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/gemini-search/internal/crawler"
	"github.com/JakeFAU/gemini-search/internal/gemurl"
)

// PageState loads the bookkeeping of url or returns ErrNotFound.
func (s *Store) PageState(ctx context.Context, url string) (crawler.PageState, error) {
	const query = `
		SELECT url, COALESCE(raw_content_hash, ''), COALESCE(indexed_content_hash, ''),
			COALESCE(last_status, 0), last_crawled_at
		FROM pages WHERE url = $1`
	var st crawler.PageState
	err := s.db.QueryRow(ctx, query, url).Scan(
		&st.URL,
		&st.RawHash,
		&st.IndexedHash,
		&st.LastStatus,
		&st.LastCrawledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crawler.PageState{}, ErrNotFound
		}
		return crawler.PageState{}, fmt.Errorf("load page state: %w", err)
	}
	return st, nil
}

// RecordFailure stores the outcome of a failed or rejected crawl attempt.
func (s *Store) RecordFailure(ctx context.Context, url string, status int, meta string) error {
	const query = `UPDATE pages SET last_crawled_at = NOW(), last_status = $2, last_meta = $3 WHERE url = $1`
	err := withRetry(ctx, func() error {
		_, err := s.db.Exec(ctx, query, url, status, meta)
		return err
	})
	if err != nil {
		return fmt.Errorf("record crawl failure: %w", err)
	}
	return nil
}

// DeleteIfDead removes url when it has not been crawled successfully within
// gcAfter. Pages that never succeeded age from first_seen_at.
func (s *Store) DeleteIfDead(ctx context.Context, url string, gcAfter time.Duration) (bool, error) {
	const query = `
		DELETE FROM pages WHERE url = $1 AND (
			last_crawl_success_at < NOW() - make_interval(secs => $2)
			OR (last_crawl_success_at IS NULL AND first_seen_at < NOW() - make_interval(secs => $2))
		)`
	var deleted bool
	err := withRetry(ctx, func() error {
		tag, err := s.db.Exec(ctx, query, url, seconds(gcAfter))
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("collect dead page: %w", err)
	}
	return deleted, nil
}

// DeletePage removes url and its outgoing links.
func (s *Store) DeletePage(ctx context.Context, url string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM links WHERE url = $1`, url); err != nil {
			return fmt.Errorf("delete links: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM pages WHERE url = $1`, url); err != nil {
			return fmt.Errorf("delete page: %w", err)
		}
		return nil
	})
}

// RecordUnchanged updates only the crawl timestamps and status of a page
// whose content hashes did not change.
func (s *Store) RecordUnchanged(ctx context.Context, url string, status int, meta string) error {
	const query = `
		UPDATE pages SET last_crawled_at = NOW(), last_crawl_success_at = NOW(),
			last_status = $2, last_meta = $3
		WHERE url = $1`
	err := withRetry(ctx, func() error {
		_, err := s.db.Exec(ctx, query, url, status, meta)
		return err
	})
	if err != nil {
		return fmt.Errorf("record unchanged page: %w", err)
	}
	return nil
}

const saveIndexedSQL = `
INSERT INTO pages (
	url, domain_name, port, first_seen_at,
	content_body, size, charset, lang,
	last_crawled_at, last_crawl_success_at, last_indexed_at,
	last_status, last_meta, content_type, title,
	cross_site_links, internal_links,
	raw_content_hash, indexed_content_hash, feed_type,
	search_vector, title_vector
) VALUES (
	$1, $15, $16, NOW(),
	$2, $3, $4, $5,
	NOW(), NOW(), NOW(),
	$6, $7, $8, $9,
	$10::json, $11::json,
	$12, $13, $14,
	to_tsvector(REPLACE($9, '.', ' ') || ' ' || $2),
	to_tsvector(REPLACE($9, '.', ' ') || ' ' || REPLACE($1, '-', ' '))
)
ON CONFLICT (url) DO UPDATE SET
	content_body = EXCLUDED.content_body, size = EXCLUDED.size,
	charset = EXCLUDED.charset, lang = EXCLUDED.lang,
	last_crawled_at = NOW(), last_crawl_success_at = NOW(), last_indexed_at = NOW(),
	last_status = EXCLUDED.last_status, last_meta = EXCLUDED.last_meta,
	content_type = EXCLUDED.content_type, title = EXCLUDED.title,
	cross_site_links = EXCLUDED.cross_site_links, internal_links = EXCLUDED.internal_links,
	raw_content_hash = EXCLUDED.raw_content_hash, indexed_content_hash = EXCLUDED.indexed_content_hash,
	feed_type = EXCLUDED.feed_type,
	search_vector = EXCLUDED.search_vector, title_vector = EXCLUDED.title_vector`

const insertLinkSQL = `
INSERT INTO links (url, host, port, to_url, is_cross_site, to_host, to_port)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// SaveIndexed writes new content for a page and replaces its outgoing links
// in one transaction. A page missing from the table is inserted.
func (s *Store) SaveIndexed(ctx context.Context, page crawler.PageUpdate, links []crawler.Link) error {
	crossSite, err := jsonList(page.CrossSiteLinks)
	if err != nil {
		return err
	}
	internal, err := jsonList(page.InternalLinks)
	if err != nil {
		return err
	}
	u := gemurl.Parse(page.URL)
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, saveIndexedSQL,
			page.URL,
			page.Body,
			page.Size,
			nullable(page.Charset),
			nullable(page.Lang),
			page.Status,
			page.Meta,
			page.ContentType,
			page.Title,
			crossSite,
			internal,
			page.RawHash,
			page.IndexedHash,
			nullable(page.FeedType),
			u.Host(),
			u.Port(),
		)
		if err != nil {
			return fmt.Errorf("save page: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM links WHERE url = $1`, page.URL); err != nil {
			return fmt.Errorf("delete links: %w", err)
		}
		for _, l := range links {
			_, err := tx.Exec(ctx, insertLinkSQL,
				l.From.String(), l.From.Host(), l.From.Port(),
				l.To.String(), l.CrossSite, l.To.Host(), l.To.Port(),
			)
			if err != nil {
				return fmt.Errorf("insert link: %w", err)
			}
		}
		return nil
	})
}

func jsonList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal links: %w", err)
	}
	return string(b), nil
}
