// Package metrics exposes Prometheus collectors for the crawler and search
// service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/gemini-search/internal/gemurl"
)

var (
	crawlerPagesTotal             *prometheus.CounterVec
	crawlerBytesTotal             *prometheus.CounterVec
	crawlerFetchDurationSeconds   *prometheus.HistogramVec
	crawlerInFlight               prometheus.Gauge
	crawlerPolicyRejectionsTotal  *prometheus.CounterVec
	crawlerRobotsFetchesTotal     *prometheus.CounterVec
	crawlerRateLimitDelaysSeconds *prometheus.HistogramVec
	httpRequestsTotal             *prometheus.CounterVec
	httpRequestDurationSeconds    *prometheus.HistogramVec
	searchDurationSeconds         *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times; the Observe helpers call it
// on first use.
func Init() {
	once.Do(func() {
		crawlerPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Total number of crawl attempts, labeled by host and outcome.",
			},
			[]string{"host", "outcome"},
		)

		crawlerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_bytes_total",
				Help: "Total number of body bytes fetched, labeled by host.",
			},
			[]string{"host"},
		)

		crawlerFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_fetch_duration_seconds",
				Help:    "Histogram of Gemini fetch latencies, labeled by status class.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"class"},
		)

		crawlerInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_in_flight",
				Help: "Number of crawl pipelines currently running.",
			},
		)

		crawlerPolicyRejectionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_policy_rejections_total",
				Help: "Total number of URLs rejected by crawl policy, labeled by reason.",
			},
			[]string{"reason"},
		)

		crawlerRobotsFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_robots_fetches_total",
				Help: "Total number of robots.txt fetches, labeled by result.",
			},
			[]string{"result"},
		)

		crawlerRateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_rate_limit_delays_seconds",
				Help:    "Histogram of per-host rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		searchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_duration_seconds",
				Help:    "Histogram of ranked search latencies, labeled by cache result.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"cache"},
		)
	})
}

// SanitizeHost extracts a lowercase host from a URL for use as a label.
// It returns "unknown" if the URL is invalid.
func SanitizeHost(rawURL string) string {
	if !strings.Contains(rawURL, "://") && !strings.HasPrefix(rawURL, "//") {
		rawURL = "gemini://" + rawURL
	}
	u := gemurl.Parse(rawURL)
	if !u.Valid() || u.Host() == "" {
		return "unknown"
	}
	return u.Host()
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawl records the outcome of one crawl attempt.
func ObserveCrawl(rawURL string, outcome string, bytesFetched int) {
	Init()
	host := SanitizeHost(rawURL)
	crawlerPagesTotal.WithLabelValues(host, outcome).Inc()
	if bytesFetched > 0 {
		crawlerBytesTotal.WithLabelValues(host).Add(float64(bytesFetched))
	}
}

// ObserveFetch records a fetch latency under its status class ("2x", "3x",
// ...) or "error".
func ObserveFetch(class string, duration time.Duration) {
	Init()
	crawlerFetchDurationSeconds.WithLabelValues(class).Observe(duration.Seconds())
}

// StatusClass renders a Gemini status as its class label.
func StatusClass(status int) string {
	if status < 10 || status > 69 {
		return "error"
	}
	return strconv.Itoa(status/10) + "x"
}

// IncInFlight increments the in-flight pipeline gauge.
func IncInFlight() {
	Init()
	crawlerInFlight.Inc()
}

// DecInFlight decrements the in-flight pipeline gauge.
func DecInFlight() {
	Init()
	crawlerInFlight.Dec()
}

// ObservePolicyRejection counts a URL rejected for reason.
func ObservePolicyRejection(reason string) {
	Init()
	crawlerPolicyRejectionsTotal.WithLabelValues(reason).Inc()
}

// ObserveRobotsFetch counts a robots.txt fetch by result.
func ObserveRobotsFetch(result string) {
	Init()
	crawlerRobotsFetchesTotal.WithLabelValues(result).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(host string, duration time.Duration) {
	Init()
	crawlerRateLimitDelaysSeconds.WithLabelValues(host).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveSearch records a search latency; cache is "hit" or "miss".
func ObserveSearch(cache string, duration time.Duration) {
	Init()
	searchDurationSeconds.WithLabelValues(cache).Observe(duration.Seconds())
}
