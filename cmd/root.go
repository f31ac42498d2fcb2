package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/gemini-search/internal/api"
	"github.com/JakeFAU/gemini-search/internal/app"
	"github.com/JakeFAU/gemini-search/internal/config"
	"github.com/JakeFAU/gemini-search/internal/crawler"
	"github.com/JakeFAU/gemini-search/internal/logging"
	"github.com/JakeFAU/gemini-search/internal/progress"
	"github.com/JakeFAU/gemini-search/internal/ranking"
	"github.com/JakeFAU/gemini-search/internal/storage/postgres"
)

const hubCloseTimeout = 10 * time.Second

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use.
// Tests inject an App backed by a mocked pool.
type App interface {
	Close()
	Config() config.Config
	Logger() *zap.Logger
	Store() *postgres.Store
	NewCrawler(emitter progress.Emitter) (*crawler.Crawler, error)
	NewHub() (*progress.Hub, error)
	NewSearcher() *ranking.Searcher
	NewServer(seeds api.SeedAdder) *api.Server
}

// newApp is the application factory. It is a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "A crawler and link-analysis search engine for Geminispace.",
		Long: `gemini-search crawls capsules over the Gemini protocol, stores pages and
links in PostgreSQL and answers full-text queries ranked by HITS or SALSA.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := applyFlagOverrides(cmd, &cfg); err != nil {
				return err
			}

			logger, err := logging.New(cfg.LoggingOptions())
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $XDG_CONFIG_HOME/gemini-search/config.yaml)")

	cmd.AddCommand(
		newCrawlCmd(),
		newServeCmd(),
		newSearchCmd(),
		newSchemaCmd(),
		newPurgeCmd(),
		newStatusCmd(),
	)
	return cmd
}

// applyFlagOverrides copies explicitly set command flags over the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if f := flags.Lookup("seed-file"); f != nil && f.Changed {
		cfg.Crawler.SeedFile = f.Value.String()
	}
	if f := flags.Lookup("force-reindex"); f != nil && f.Changed {
		v, err := flags.GetBool("force-reindex")
		if err != nil {
			return err
		}
		cfg.Crawler.ForceReindex = v
	}
	if f := flags.Lookup("port"); f != nil && f.Changed {
		v, err := flags.GetInt("port")
		if err != nil {
			return err
		}
		cfg.Server.Port = v
	}
	if f := flags.Lookup("crawl"); f != nil && f.Changed {
		v, err := flags.GetBool("crawl")
		if err != nil {
			return err
		}
		cfg.Server.Crawl = v
	}
	return cfg.Validate()
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// closeHub drains the hub on a fresh context; the command context is usually
// already cancelled by then.
func closeHub(hub *progress.Hub, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), hubCloseTimeout)
	defer cancel()
	if err := hub.Close(ctx); err != nil {
		logger.Warn("failed to close progress hub", zap.Error(err))
	}
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the command
// context so crawls and servers stop cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
