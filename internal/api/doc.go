// Package api hosts the HTTP server, middleware and REST handlers of the
// search service. Notable routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/search, /v1/backlinks, /v1/statistics and /v1/hosts for
//     index queries.
//   - POST /v1/seeds to add a URL to the crawl frontier.
//   - GET /v1/runs and /v1/runs/{run_id}/hosts for crawl progress via the
//     store.RunRepository interface.
package api
