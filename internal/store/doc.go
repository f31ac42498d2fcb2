// Package store defines the persisted crawl-run and index statistics models
// shared by the API and the progress sinks. Implementations live in other
// packages; this package must not import database drivers.
package store
