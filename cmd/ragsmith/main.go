package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ragsmith/ragsmith/internal/config"
	"github.com/ragsmith/ragsmith/internal/logging"
	"github.com/ragsmith/ragsmith/pkg/crawler"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "ragsmith",
	Short: "ragsmith - website scraping for RAG/LLM ingestion",
	Long: `ragsmith crawls a website from a seed URL, extracts structured,
cleaned text from each page, and persists per-page JSON artifacts plus a
crawl index for downstream retrieval pipelines.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [URL]",
	Short: "Scrape a website and persist extracted content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seedURL := args[0]

		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)

		logger, logFile, err := logging.New(cfg.Logging.Level, cfg.Logging.Dir)
		if err != nil {
			return err
		}
		if logFile != nil {
			defer logFile.Close()
		}

		c, err := crawler.New(seedURL, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to create crawler: %w", err)
		}

		// An interrupt cancels the crawl; the batch in flight resolves and
		// the shared transport is still released.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		singlePage, _ := cmd.Flags().GetBool("single-page")
		if singlePage {
			page, err := c.ScrapePage(ctx, seedURL)
			if err != nil {
				return fmt.Errorf("scrape failed: %w", err)
			}
			if page == nil {
				return fmt.Errorf("no content extracted from %s", seedURL)
			}
			logger.Infof("Title: %s", page.Title)
			logger.Infof("Content length: %d", len(page.MainContent))
			logger.Infof("RAG content length: %d", len(page.RAGContent))
			logger.Infof("Links found: %d", len(page.Links))
		} else {
			if err := c.Crawl(ctx); err != nil {
				return fmt.Errorf("crawl failed: %w", err)
			}
		}

		if showStats, _ := cmd.Flags().GetBool("stats"); showStats {
			stats, err := c.Statistics()
			if err != nil {
				return err
			}
			fmt.Printf("Total pages visited: %d\n", stats.TotalPages)
			fmt.Printf("Failed URLs: %d\n", len(stats.FailedURLs))
			fmt.Printf("Total content size: %.2f KB\n", float64(stats.TotalContentSize)/1024)
		}

		fmt.Printf("Output saved to %s\n", c.OutputDir())
		return nil
	},
}

// applyFlags overrides loaded configuration with explicitly set CLI flags.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("output-dir") {
		cfg.Storage.OutputDir, _ = cmd.Flags().GetString("output-dir")
	}
	if cmd.Flags().Changed("max-pages") {
		cfg.Crawler.MaxPages, _ = cmd.Flags().GetInt("max-pages")
	}
	if cmd.Flags().Changed("rate-limit") {
		cfg.Crawler.RateLimit, _ = cmd.Flags().GetDuration("rate-limit")
	}
	if cmd.Flags().Changed("max-workers") {
		cfg.Crawler.MaxWorkers, _ = cmd.Flags().GetInt("max-workers")
	}
	if noRobots, _ := cmd.Flags().GetBool("no-robots"); noRobots {
		cfg.Crawler.RespectRobots = false
	}
}

func init() {
	scrapeCmd.Flags().String("output-dir", "data/scraped_content", "Directory to save scraped content")
	scrapeCmd.Flags().Bool("single-page", false, "Scrape only the provided page")
	scrapeCmd.Flags().Int("max-pages", 0, "Maximum number of pages to scrape (0 = unlimited)")
	scrapeCmd.Flags().Duration("rate-limit", time.Second, "Minimum time between requests")
	scrapeCmd.Flags().Int("max-workers", 5, "Maximum number of concurrent workers")
	scrapeCmd.Flags().Bool("no-robots", false, "Disable robots.txt compliance")
	scrapeCmd.Flags().Bool("stats", false, "Print scraping statistics after the run")

	rootCmd.AddCommand(scrapeCmd)
	rootCmd.PersistentFlags().String("config", "", "Config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
