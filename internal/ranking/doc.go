// Package ranking scores full-text search hits with link analysis. A query's
// root set (pages matching the text) and base set (pages linking into it
// from other hosts) form a graph that is ranked with HITS or SALSA; graph
// and text scores are blended, near-duplicates are merged and the list is
// paginated.
package ranking
