// Package cmd defines and implements the CLI commands for the gemini-search executable.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/gemini-search/internal/crawler"
)

// newCrawlCmd creates the 'crawl' subcommand. It loads optional seeds and
// works through the persistent frontier until it is exhausted or the process
// is interrupted.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls Geminispace starting from the stored frontier",
		Long: `Claims due pages from the database, fetches them over Gemini, indexes
their content and links and queues newly discovered URLs. Seeds from
--seed-file (one URL per line, # comments allowed) are added first.`,
		Args: cobra.NoArgs,
		RunE: runCrawlCommand,
	}
	cmd.Flags().String("seed-file", "", "file with seed URLs to add before crawling")
	cmd.Flags().Bool("force-reindex", false, "reindex pages even when their content is unchanged")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()

	hub, err := appInstance.NewHub()
	if err != nil {
		return err
	}
	defer closeHub(hub, logger)

	c, err := appInstance.NewCrawler(hub)
	if err != nil {
		return err
	}

	if cfg.Crawler.SeedFile != "" {
		seeds, err := crawler.ReadSeedFile(cfg.Crawler.SeedFile)
		if err != nil {
			return err
		}
		added, err := c.AddSeeds(cmd.Context(), seeds)
		if err != nil {
			return err
		}
		logger.Info("seeds loaded",
			zap.String("file", cfg.Crawler.SeedFile),
			zap.Int("read", len(seeds)),
			zap.Int64("added", added))
	}

	if err := c.CrawlAll(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawler: %w", err)
	}

	logger.Info("crawl command finished")
	return nil
}
