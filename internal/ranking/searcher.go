package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/gemini-search/internal/gemurl"
	"github.com/JakeFAU/gemini-search/internal/metrics"
)

// Defaults for SearcherConfig.
const (
	DefaultPageSize    = 10
	DefaultCacheTTL    = 600 * time.Second
	DefaultCacheSize   = 1024
	DefaultMaxInFlight = 120

	// rankTimeout bounds a shared ranking computation once it is detached
	// from the request that started it.
	rankTimeout = 2 * time.Minute

	noPreview = "No preview provided"
)

var (
	// ErrEmptyQuery is returned when the input holds only filters.
	ErrEmptyQuery = errors.New("empty search query")
	// ErrBusy is returned when too many searches are running.
	ErrBusy = errors.New("too many searches in flight")
	// ErrBadURL is returned by Backlinks for input that is not a URL.
	ErrBadURL = errors.New("not a valid url")
)

// Algorithm selects the link analysis used for ranking.
type Algorithm string

// Supported algorithms.
const (
	AlgorithmHITS  Algorithm = "hits"
	AlgorithmSALSA Algorithm = "salsa"
)

// ParseAlgorithm maps a configured name to an Algorithm. Unknown names fall
// back to HITS with ok=false.
func ParseAlgorithm(name string) (Algorithm, bool) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case AlgorithmHITS, "":
		return AlgorithmHITS, true
	case AlgorithmSALSA:
		return AlgorithmSALSA, true
	}
	return AlgorithmHITS, false
}

// Rank runs the algorithm over g.
func (a Algorithm) Rank(g *Graph) ([]float64, int) {
	if a == AlgorithmSALSA {
		return SALSA(g.In, g.Out)
	}
	return HITS(g.In, g.Out)
}

// Store provides the search data.
type Store interface {
	RootSet(ctx context.Context, query string) ([]RootPage, error)
	BaseSet(ctx context.Context, query string) ([]BaseLink, error)
	PageSummaries(ctx context.Context, query string, urls []string) (map[string]PageSummary, error)
	Backlinks(ctx context.Context, target string) (Backlinks, error)
}

// SearcherConfig tunes a Searcher. Zero values take defaults.
type SearcherConfig struct {
	Algorithm   Algorithm
	PageSize    int
	CacheTTL    time.Duration
	CacheSize   int
	MaxInFlight int64
}

// Searcher answers ranked queries. Ranked lists are cached per text query;
// filters and pagination are applied to the cached list.
type Searcher struct {
	store       Store
	algorithm   Algorithm
	pageSize    int
	maxInFlight int64
	inFlight    atomic.Int64
	cache       *expirable.LRU[string, []Ranked]
	group       singleflight.Group
	logger      *zap.Logger
}

// NewSearcher builds a Searcher over store.
func NewSearcher(store Store, cfg SearcherConfig, logger *zap.Logger) *Searcher {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmHITS
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		store:       store,
		algorithm:   cfg.Algorithm,
		pageSize:    cfg.PageSize,
		maxInFlight: cfg.MaxInFlight,
		cache:       expirable.NewLRU[string, []Ranked](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:      logger,
	}
}

// Search parses input, ranks the text query and returns page (zero based)
// of the filtered results.
func (s *Searcher) Search(ctx context.Context, input string, page int) (Page, error) {
	start := time.Now()
	query, filter := ParseQuery(input)
	if query == "" {
		return Page{}, ErrEmptyQuery
	}
	if s.inFlight.Add(1) > s.maxInFlight {
		s.inFlight.Add(-1)
		return Page{}, ErrBusy
	}
	defer s.inFlight.Add(-1)

	ranked, cached, err := s.ranked(ctx, query)
	if err != nil {
		return Page{}, err
	}
	if !filter.Empty() {
		filtered := make([]Ranked, 0, len(ranked))
		for _, r := range ranked {
			if filter.Match(gemurl.Parse(r.URL).Host(), r.ContentType, r.Size) {
				filtered = append(filtered, r)
			}
		}
		ranked = filtered
	}

	out := Page{Query: query, Total: len(ranked), Page: page, PageSize: s.pageSize, Cached: cached}
	window := Paginate(ranked, page, s.pageSize)
	urls := make([]string, len(window))
	for i, r := range window {
		urls[i] = r.URL
	}
	summaries, err := s.store.PageSummaries(ctx, query, urls)
	if err != nil {
		return Page{}, fmt.Errorf("load result details: %w", err)
	}
	out.Results = make([]Result, 0, len(window))
	for _, r := range window {
		sum, ok := summaries[r.URL]
		if !ok {
			s.logger.Warn("ranked url missing from store", zap.String("url", r.URL))
			continue
		}
		preview := sum.Preview
		if strings.TrimSpace(preview) == "" {
			preview = noPreview
		}
		out.Results = append(out.Results, Result{
			URL:           r.URL,
			Title:         sum.Title,
			ContentType:   sum.ContentType,
			Preview:       preview,
			Size:          sum.Size,
			LastCrawledAt: sum.LastCrawledAt,
			Score:         r.Score,
		})
	}

	cache := "miss"
	if cached {
		cache = "hit"
	}
	metrics.ObserveSearch(cache, time.Since(start))
	s.logger.Debug("search",
		zap.String("query", query),
		zap.Bool("cached", cached),
		zap.Int("total", out.Total),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

// ranked returns the cached list for query, computing it once when several
// callers miss at the same time.
func (s *Searcher) ranked(ctx context.Context, query string) ([]Ranked, bool, error) {
	if r, ok := s.cache.Get(query); ok {
		return r, true, nil
	}
	v, err, _ := s.group.Do(query, func() (any, error) {
		// Every caller waiting on query shares this result.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rankTimeout)
		defer cancel()
		r, err := s.Rank(rctx, query)
		if err != nil {
			return nil, err
		}
		s.cache.Add(query, r)
		return r, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]Ranked), false, nil
}

// Rank computes the deduplicated, score-ordered results of a text query.
func (s *Searcher) Rank(ctx context.Context, query string) ([]Ranked, error) {
	root, err := s.store.RootSet(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load root set: %w", err)
	}
	if len(root) == 0 {
		return []Ranked{}, nil
	}
	base, err := s.store.BaseSet(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load base set: %w", err)
	}

	g := BuildGraph(root, base)
	scores, iters := s.algorithm.Rank(g)
	results := Dedup(Score(g, scores))
	s.logger.Debug("ranked query",
		zap.String("query", query),
		zap.String("algorithm", string(s.algorithm)),
		zap.Int("root", len(root)),
		zap.Int("nodes", g.Len()),
		zap.Int("iterations", iters),
		zap.Int("results", len(results)))
	return results, nil
}

// Backlinks lists the pages linking to input. Input without a scheme is
// retried as a gemini URL.
func (s *Searcher) Backlinks(ctx context.Context, input string) (string, Backlinks, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", Backlinks{}, ErrBadURL
	}
	u := gemurl.Parse(input)
	if !u.Valid() || u.Protocol() == "" {
		u = gemurl.Parse("gemini://" + strings.TrimPrefix(input, "//"))
	}
	if !u.Valid() {
		return "", Backlinks{}, ErrBadURL
	}
	target := u.String()
	links, err := s.store.Backlinks(ctx, target)
	if err != nil {
		return "", Backlinks{}, err
	}
	return target, links, nil
}
