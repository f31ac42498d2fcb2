// Package progress carries crawl run events from the crawler to pluggable
// sinks. Emit never blocks the crawler; a background goroutine batches events
// and hands them to sinks such as the run log in Postgres or Prometheus.
package progress
