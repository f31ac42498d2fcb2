package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/gemini-search/internal/crawler"
	"github.com/JakeFAU/gemini-search/internal/progress"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the search API",
		Long: `Starts the HTTP API for search, backlinks, index statistics, seed
submission and crawl-run progress. With --crawl the crawler runs in the
same process until the frontier is exhausted.`,
		Args: cobra.NoArgs,
		RunE: runServeCommand,
	}
	cmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	cmd.Flags().Bool("crawl", false, "run the crawler alongside the API")
	return cmd
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()

	// The crawler backs seed submission even when it is not crawling.
	emitter := progress.Discard
	if cfg.Server.Crawl {
		hub, err := appInstance.NewHub()
		if err != nil {
			return err
		}
		defer closeHub(hub, logger)
		emitter = hub
	}
	c, err := appInstance.NewCrawler(emitter)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           appInstance.NewServer(c).Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return serve(cmd.Context(), srv, c, cfg.Server.Crawl, logger)
}

func serve(ctx context.Context, srv *http.Server, c *crawler.Crawler, crawl bool, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("api shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	})

	if crawl {
		g.Go(func() error {
			if err := c.CrawlAll(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("run crawler: %w", err)
			}
			logger.Info("background crawl finished")
			return nil
		})
	}

	return g.Wait()
}
