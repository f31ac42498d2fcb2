// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/gemini-search/internal/api"
	"github.com/JakeFAU/gemini-search/internal/crawler"
	geminifetcher "github.com/JakeFAU/gemini-search/internal/fetcher/gemini"
	"github.com/JakeFAU/gemini-search/internal/logging"
	"github.com/JakeFAU/gemini-search/internal/policy"
	"github.com/JakeFAU/gemini-search/internal/policy/ratelimit"
	"github.com/JakeFAU/gemini-search/internal/progress"
	"github.com/JakeFAU/gemini-search/internal/ranking"
	"github.com/JakeFAU/gemini-search/internal/storage/postgres"
)

// AppName names the XDG config directory.
const AppName = "gemini-search"

// EnvPrefix prefixes every environment override, e.g. GEMCRAWL_DB_DSN.
const EnvPrefix = "GEMCRAWL"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Robots   RobotsConfig   `mapstructure:"robots"`
	Ranking  RankingConfig  `mapstructure:"ranking"`
	DB       DBConfig       `mapstructure:"db"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Progress ProgressConfig `mapstructure:"progress"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// Crawl runs the crawler inside the serve command.
	Crawl bool `mapstructure:"crawl"`
}

// CrawlerConfig governs the dispatch loop and crawl pipeline.
type CrawlerConfig struct {
	Concurrency        int           `mapstructure:"concurrency"`
	ForceReindex       bool          `mapstructure:"force_reindex"`
	SeedFile           string        `mapstructure:"seed_file"`
	UserAgents         []string      `mapstructure:"user_agents"`
	BlockedDomains     []string      `mapstructure:"blocked_domains"`
	BlockedPrefixes    []string      `mapstructure:"blocked_prefixes"`
	ClaimBatch         int           `mapstructure:"claim_batch"`
	RecrawlAfter       time.Duration `mapstructure:"recrawl_after"`
	RequeueAfter       time.Duration `mapstructure:"requeue_after"`
	FailureThreshold   int           `mapstructure:"failure_threshold"`
	GCAfter            time.Duration `mapstructure:"gc_after"`
	ProxyErrorCooldown time.Duration `mapstructure:"proxy_error_cooldown"`
	PerHostRPS         float64       `mapstructure:"per_host_rps"`
	PerHostBurst       int           `mapstructure:"per_host_burst"`
}

// FetchConfig bounds every Gemini request.
type FetchConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxBytes        int64         `mapstructure:"max_bytes"`
	MaxTransferTime time.Duration `mapstructure:"max_transfer_time"`
	MaxRedirects    int           `mapstructure:"max_redirects"`
	RobotsTimeout   time.Duration `mapstructure:"robots_timeout"`
	RobotsMaxBytes  int64         `mapstructure:"robots_max_bytes"`
}

// RobotsConfig controls robots.txt caching.
type RobotsConfig struct {
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	CacheSize  int           `mapstructure:"cache_size"`
	PersistTTL time.Duration `mapstructure:"persist_ttl"`
	// CacheFailures stores "no policy" when robots.txt cannot be fetched.
	CacheFailures bool `mapstructure:"cache_failures"`
}

// RankingConfig selects the link analysis and sizes the result cache.
type RankingConfig struct {
	Algorithm   string        `mapstructure:"algorithm"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	CacheSize   int           `mapstructure:"cache_size"`
	PageSize    int           `mapstructure:"page_size"`
	MaxInFlight int64         `mapstructure:"max_in_flight"`
}

// DBConfig controls access to Postgres.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// LoggingConfig selects the zap encoder and minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ProgressConfig tunes the crawl event hub.
type ProgressConfig struct {
	BufferSize     int           `mapstructure:"buffer_size"`
	MaxBatchEvents int           `mapstructure:"max_batch_events"`
	MaxBatchWait   time.Duration `mapstructure:"max_batch_wait"`
	// Heartbeat is the interval of in-flight crawl reports.
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

// Load builds a Config from an optional .env file, a config file and the
// environment. With an empty path the XDG config home is searched for
// gemini-search/config.yaml; a missing file there is not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path == "" {
		path = defaultConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ConfigDir returns the XDG configuration directory of the application.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

func defaultConfigFile() string {
	path := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.crawl", false)

	v.SetDefault("crawler.concurrency", crawler.DefaultConcurrency)
	v.SetDefault("crawler.force_reindex", false)
	v.SetDefault("crawler.user_agents", []string{"*", "indexer", "gemini-search"})
	v.SetDefault("crawler.blocked_domains", []string{})
	v.SetDefault("crawler.blocked_prefixes", []string{})
	v.SetDefault("crawler.claim_batch", crawler.DefaultClaimBatch)
	v.SetDefault("crawler.recrawl_after", crawler.DefaultRecrawlAfter.String())
	v.SetDefault("crawler.requeue_after", crawler.DefaultRequeueAfter.String())
	v.SetDefault("crawler.failure_threshold", 3)
	v.SetDefault("crawler.gc_after", crawler.DefaultGCAfter.String())
	v.SetDefault("crawler.proxy_error_cooldown", crawler.DefaultProxyErrorCooldown.String())
	v.SetDefault("crawler.per_host_rps", 2.0)
	v.SetDefault("crawler.per_host_burst", 2)

	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("fetch.max_bytes", 2500000)
	v.SetDefault("fetch.max_transfer_time", "25s")
	v.SetDefault("fetch.max_redirects", 5)
	v.SetDefault("fetch.robots_timeout", "10s")
	v.SetDefault("fetch.robots_max_bytes", 2500000)

	v.SetDefault("robots.cache_ttl", "60s")
	v.SetDefault("robots.cache_size", 4096)
	v.SetDefault("robots.persist_ttl", "168h")
	v.SetDefault("robots.cache_failures", false)

	v.SetDefault("ranking.algorithm", string(ranking.AlgorithmHITS))
	v.SetDefault("ranking.cache_ttl", ranking.DefaultCacheTTL.String())
	v.SetDefault("ranking.cache_size", ranking.DefaultCacheSize)
	v.SetDefault("ranking.page_size", ranking.DefaultPageSize)
	v.SetDefault("ranking.max_in_flight", ranking.DefaultMaxInFlight)

	v.SetDefault("db.max_conns", 16)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime", "1h")

	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")

	v.SetDefault("progress.buffer_size", 4096)
	v.SetDefault("progress.max_batch_events", 1000)
	v.SetDefault("progress.max_batch_wait", "500ms")
	v.SetDefault("progress.heartbeat", crawler.DefaultProgressInterval.String())
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.FailureThreshold <= 0 {
		return fmt.Errorf("crawler.failure_threshold must be > 0")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be > 0")
	}
	if c.Fetch.MaxTransferTime <= 0 {
		return fmt.Errorf("fetch.max_transfer_time must be > 0")
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch.max_bytes must be > 0")
	}
	if c.Fetch.MaxRedirects < 0 {
		return fmt.Errorf("fetch.max_redirects must be >= 0")
	}
	if c.Fetch.RobotsTimeout <= 0 {
		return fmt.Errorf("fetch.robots_timeout must be > 0")
	}
	if _, ok := ranking.ParseAlgorithm(c.Ranking.Algorithm); !ok {
		return fmt.Errorf("ranking.algorithm %q is not one of hits, salsa", c.Ranking.Algorithm)
	}
	if c.Ranking.PageSize <= 0 {
		return fmt.Errorf("ranking.page_size must be > 0")
	}
	return nil
}

// RequireDB reports a configuration error for commands that need Postgres.
func (c Config) RequireDB() error {
	if strings.TrimSpace(c.DB.DSN) == "" {
		return fmt.Errorf("db.dsn must be set (or %s_DB_DSN)", EnvPrefix)
	}
	return nil
}

// FetchOptions converts the fetch section for page requests.
func (c Config) FetchOptions() geminifetcher.Options {
	return geminifetcher.Options{
		Timeout:         c.Fetch.Timeout,
		MaxTransferTime: c.Fetch.MaxTransferTime,
		MaxBytes:        c.Fetch.MaxBytes,
		MaxRedirects:    c.Fetch.MaxRedirects,
	}
}

// CrawlerOptions converts the crawler section.
func (c Config) CrawlerOptions() crawler.Config {
	return crawler.Config{
		Concurrency:        c.Crawler.Concurrency,
		ForceReindex:       c.Crawler.ForceReindex,
		ClaimBatch:         c.Crawler.ClaimBatch,
		RecrawlAfter:       c.Crawler.RecrawlAfter,
		RequeueAfter:       c.Crawler.RequeueAfter,
		GCAfter:            c.Crawler.GCAfter,
		ProxyErrorCooldown: c.Crawler.ProxyErrorCooldown,
		ProgressInterval:   c.Progress.Heartbeat,
		Fetch:              c.FetchOptions(),
	}
}

// PolicyOptions converts the robots and failure settings.
func (c Config) PolicyOptions() policy.Config {
	mode := policy.RobotsFailureAllow
	if c.Robots.CacheFailures {
		mode = policy.RobotsFailureCacheEmpty
	}
	return policy.Config{
		Agents:           c.Crawler.UserAgents,
		FailureThreshold: c.Crawler.FailureThreshold,
		CacheTTL:         c.Robots.CacheTTL,
		CacheSize:        c.Robots.CacheSize,
		PersistTTL:       c.Robots.PersistTTL,
		RobotsTimeout:    c.Fetch.RobotsTimeout,
		RobotsMaxBytes:   c.Fetch.RobotsMaxBytes,
		FailureMode:      mode,
	}
}

// RateLimitOptions converts the politeness settings.
func (c Config) RateLimitOptions() ratelimit.Config {
	return ratelimit.Config{
		DefaultRPS:   c.Crawler.PerHostRPS,
		DefaultBurst: c.Crawler.PerHostBurst,
	}
}

// SearcherOptions converts the ranking section. Validate has already
// rejected unknown algorithms.
func (c Config) SearcherOptions() ranking.SearcherConfig {
	algo, _ := ranking.ParseAlgorithm(c.Ranking.Algorithm)
	return ranking.SearcherConfig{
		Algorithm:   algo,
		PageSize:    c.Ranking.PageSize,
		CacheTTL:    c.Ranking.CacheTTL,
		CacheSize:   c.Ranking.CacheSize,
		MaxInFlight: c.Ranking.MaxInFlight,
	}
}

// PostgresOptions converts the db section.
func (c Config) PostgresOptions() postgres.Config {
	return postgres.Config{
		DSN:             c.DB.DSN,
		MaxConns:        c.DB.MaxConns,
		MinConns:        c.DB.MinConns,
		MaxConnLifetime: c.DB.MaxConnLifetime,
	}
}

// ProgressOptions converts the progress section.
func (c Config) ProgressOptions() progress.Config {
	return progress.Config{
		BufferSize:     c.Progress.BufferSize,
		MaxBatchEvents: c.Progress.MaxBatchEvents,
		MaxBatchWait:   c.Progress.MaxBatchWait,
	}
}

// LoggingOptions converts the logging section.
func (c Config) LoggingOptions() logging.Options {
	return logging.Options{Development: c.Logging.Development, Level: c.Logging.Level}
}

// APIOptions converts the server section.
func (c Config) APIOptions() api.Config {
	return api.Config{
		APIKey:         c.Server.APIKey,
		RequestTimeout: c.Server.RequestTimeout,
	}
}
