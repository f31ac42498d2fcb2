package store

import "time"

// ContentTypeCount is the number of pages served with one content type.
type ContentTypeCount struct {
	ContentType string `json:"content_type"`
	Count       int64  `json:"count"`
}

// Statistics summarises the search index.
type Statistics struct {
	PageCount    int64              `json:"page_count"`
	DomainCount  int64              `json:"domain_count"`
	ContentTypes []ContentTypeCount `json:"content_types"`
	GeneratedAt  time.Time          `json:"generated_at"`
}

// KnownHost is a distinct host:port seen by the crawler.
type KnownHost struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// IndexStatus is the operator view of crawl coverage.
type IndexStatus struct {
	Domains    int64 `json:"domains"`
	Pages      int64 `json:"pages"`
	NeedUpdate int64 `json:"need_update"`
}
