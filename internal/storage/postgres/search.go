package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JakeFAU/gemini-search/internal/ranking"
)

// rootSetLimit caps the root set of a single query.
const rootSetLimit = 50000

const rootSetSQL = `
SELECT url, COALESCE(cross_site_links::text, '[]'), COALESCE(content_type, ''),
	COALESCE(size, 0), COALESCE(indexed_content_hash, ''),
	(ts_rank_cd(title_vector, plainto_tsquery($1)) * 50
		+ ts_rank_cd(search_vector, plainto_tsquery($1)))::float8 AS rank
FROM pages
WHERE search_vector @@ plainto_tsquery($1)
ORDER BY rank DESC
LIMIT $2`

// RootSet returns the pages matching query with their text rank.
func (s *Store) RootSet(ctx context.Context, query string) ([]ranking.RootPage, error) {
	rows, err := s.db.Query(ctx, rootSetSQL, query, rootSetLimit)
	if err != nil {
		return nil, fmt.Errorf("query root set: %w", err)
	}
	defer rows.Close()

	var pages []ranking.RootPage
	for rows.Next() {
		var (
			p     ranking.RootPage
			links string
		)
		if err := rows.Scan(&p.URL, &links, &p.ContentType, &p.Size, &p.ContentHash, &p.Rank); err != nil {
			return nil, fmt.Errorf("scan root page: %w", err)
		}
		if err := json.Unmarshal([]byte(links), &p.CrossSiteLinks); err != nil {
			// Malformed link lists only lose edges.
			p.CrossSiteLinks = nil
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query root set: %w", err)
	}
	return pages, nil
}

const baseSetSQL = `
SELECT links.to_url, links.url
FROM pages JOIN links ON pages.url = links.to_url
WHERE links.is_cross_site = TRUE AND pages.search_vector @@ plainto_tsquery($1)`

// BaseSet returns the cross-site edges pointing into the root set of query.
func (s *Store) BaseSet(ctx context.Context, query string) ([]ranking.BaseLink, error) {
	rows, err := s.db.Query(ctx, baseSetSQL, query)
	if err != nil {
		return nil, fmt.Errorf("query base set: %w", err)
	}
	defer rows.Close()

	var links []ranking.BaseLink
	for rows.Next() {
		var l ranking.BaseLink
		if err := rows.Scan(&l.Dest, &l.Source); err != nil {
			return nil, fmt.Errorf("scan base link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query base set: %w", err)
	}
	return links, nil
}

const summariesSQL = `
SELECT url, COALESCE(title, ''), COALESCE(content_type, ''), COALESCE(size, 0),
	ts_headline(SUBSTRING(COALESCE(content_body, ''), 0, 5000), plainto_tsquery($1),
		'StartSel="", StopSel="", MinWords=23, MaxWords=37, MaxFragments=1, FragmentDelimiter=" ... "'),
	last_crawl_success_at
FROM pages WHERE url = ANY($2)`

// PageSummaries loads display data for urls, with a query-highlighted
// preview. Unknown URLs are absent from the result.
func (s *Store) PageSummaries(ctx context.Context, query string, urls []string) (map[string]ranking.PageSummary, error) {
	out := make(map[string]ranking.PageSummary, len(urls))
	if len(urls) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, summariesSQL, query, urls)
	if err != nil {
		return nil, fmt.Errorf("query page summaries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p ranking.PageSummary
		if err := rows.Scan(&p.URL, &p.Title, &p.ContentType, &p.Size, &p.Preview, &p.LastCrawledAt); err != nil {
			return nil, fmt.Errorf("scan page summary: %w", err)
		}
		out[p.URL] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query page summaries: %w", err)
	}
	return out, nil
}

// Backlinks lists the pages linking to target, split by locality.
func (s *Store) Backlinks(ctx context.Context, target string) (ranking.Backlinks, error) {
	rows, err := s.db.Query(ctx, `SELECT url, is_cross_site FROM links WHERE to_url = $1`, target)
	if err != nil {
		return ranking.Backlinks{}, fmt.Errorf("query backlinks: %w", err)
	}
	defer rows.Close()
	out := ranking.Backlinks{Internal: []string{}, External: []string{}}
	for rows.Next() {
		var (
			src       string
			crossSite bool
		)
		if err := rows.Scan(&src, &crossSite); err != nil {
			return ranking.Backlinks{}, fmt.Errorf("scan backlink: %w", err)
		}
		if crossSite {
			out.External = append(out.External, src)
		} else {
			out.Internal = append(out.Internal, src)
		}
	}
	if err := rows.Err(); err != nil {
		return ranking.Backlinks{}, fmt.Errorf("query backlinks: %w", err)
	}
	return out, nil
}
