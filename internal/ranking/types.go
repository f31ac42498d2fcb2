package ranking

import "time"

// RootPage is a page whose text matches the query.
type RootPage struct {
	URL            string
	CrossSiteLinks []string
	ContentType    string
	Size           int64
	ContentHash    string
	Rank           float64
}

// BaseLink is a cross-site edge from Source into a root page Dest.
type BaseLink struct {
	Source string
	Dest   string
}

// PageSummary is the display data of one search hit.
type PageSummary struct {
	URL           string
	Title         string
	ContentType   string
	Preview       string
	Size          int64
	LastCrawledAt *time.Time
}

// Backlinks lists the pages linking to a URL.
type Backlinks struct {
	Internal []string `json:"internal"`
	External []string `json:"external"`
}

// Ranked is a root-set page with its blended score.
type Ranked struct {
	URL         string
	ContentType string
	Size        int64
	ContentHash string
	Score       float64
}

// Result is one displayed search hit.
type Result struct {
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	ContentType   string     `json:"content_type"`
	Preview       string     `json:"preview"`
	Size          int64      `json:"size"`
	LastCrawledAt *time.Time `json:"last_crawled_at,omitempty"`
	Score         float64    `json:"score"`
}

// Page is one page of search results.
type Page struct {
	Query    string   `json:"query"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Cached   bool     `json:"cached"`
	Results  []Result `json:"results"`
}
