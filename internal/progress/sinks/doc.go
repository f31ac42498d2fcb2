// Package sinks holds the progress consumers: structured logs, Prometheus
// run collectors and the persistent run log.
package sinks
