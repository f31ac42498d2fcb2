package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/gemini-search/internal/store"
)

// Statistics counts indexed pages, domains and content types.
func (s *Store) Statistics(ctx context.Context) (store.Statistics, error) {
	stats := store.Statistics{GeneratedAt: time.Now().UTC(), ContentTypes: []store.ContentTypeCount{}}
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT LOWER(domain_name)), COUNT(*)
		FROM pages WHERE content_body IS NOT NULL`).Scan(&stats.DomainCount, &stats.PageCount)
	if err != nil {
		return store.Statistics{}, fmt.Errorf("count pages: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT COUNT(content_type) AS count, content_type
		FROM pages WHERE content_type IS NOT NULL
		GROUP BY content_type ORDER BY count DESC`)
	if err != nil {
		return store.Statistics{}, fmt.Errorf("count content types: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c store.ContentTypeCount
		if err := rows.Scan(&c.Count, &c.ContentType); err != nil {
			return store.Statistics{}, fmt.Errorf("scan content type: %w", err)
		}
		stats.ContentTypes = append(stats.ContentTypes, c)
	}
	if err := rows.Err(); err != nil {
		return store.Statistics{}, fmt.Errorf("count content types: %w", err)
	}
	return stats, nil
}

// KnownHosts lists every distinct host:port in the frontier.
func (s *Store) KnownHosts(ctx context.Context) ([]store.KnownHost, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT LOWER(domain_name) AS domain_name, port
		FROM pages ORDER BY domain_name, port`)
	if err != nil {
		return nil, fmt.Errorf("list known hosts: %w", err)
	}
	defer rows.Close()
	hosts := []store.KnownHost{}
	for rows.Next() {
		var h store.KnownHost
		if err := rows.Scan(&h.Host, &h.Port); err != nil {
			return nil, fmt.Errorf("scan known host: %w", err)
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

// IndexStatus reports indexed domains and pages plus how many pages are due
// for a recrawl under recrawlAfter.
func (s *Store) IndexStatus(ctx context.Context, recrawlAfter time.Duration) (store.IndexStatus, error) {
	var st store.IndexStatus
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT LOWER(domain_name)), COUNT(*)
		FROM pages WHERE content_body IS NOT NULL`).Scan(&st.Domains, &st.Pages)
	if err != nil {
		return store.IndexStatus{}, fmt.Errorf("count pages: %w", err)
	}
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM pages
		WHERE last_crawled_at < NOW() - make_interval(secs => $1) OR last_crawled_at IS NULL`,
		seconds(recrawlAfter)).Scan(&st.NeedUpdate)
	if err != nil {
		return store.IndexStatus{}, fmt.Errorf("count stale pages: %w", err)
	}
	return st, nil
}
