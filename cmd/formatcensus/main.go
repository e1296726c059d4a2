package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amosWeiskopf/formatcensus/internal/config"
	"github.com/amosWeiskopf/formatcensus/internal/logging"
	"github.com/amosWeiskopf/formatcensus/internal/models"
	"github.com/amosWeiskopf/formatcensus/internal/monitoring"
	"github.com/amosWeiskopf/formatcensus/pkg/analyzer"
	"github.com/amosWeiskopf/formatcensus/pkg/crawler"
	"github.com/amosWeiskopf/formatcensus/pkg/extractor"
	"github.com/amosWeiskopf/formatcensus/pkg/fetcher"
	"github.com/amosWeiskopf/formatcensus/pkg/normalizer"
	"github.com/amosWeiskopf/formatcensus/pkg/reporter"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formatcensus [flags] <replace-spec> <trim> <lower-case>",
		Short: "Count the data formats declared across a dataset catalog",
		Long: `formatcensus reads a catalog listing page, visits every dataset detail page
it links to and counts the values of each page's "Data Format(s):" field.

  replace-spec  "key|value:key|value" rules; a label containing key becomes value
  trim          "true" strips surrounding whitespace from every label
  lower-case    "true" lower-cases every label`,
		Example: `  formatcensus "jpg|jpeg:tif|tiff" true true
  formatcensus --concurrency 4 --format markdown "" false false`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.ExactArgs(3),
		SilenceErrors: true,
		RunE:          runCensus,
	}

	flags := cmd.Flags()
	flags.String("config", "", "Config file path")
	flags.String("base-url", "https://www.aoncadis.org/", "Catalog base URL")
	flags.String("listing-path", "scienceKeywordTopic/Atmosphere.html", "Listing page path, relative to the base URL")
	flags.String("link-prefix", crawler.DefaultLinkPrefix, "Path prefix of detail page links")
	flags.Int("concurrency", 1, "Detail pages fetched at once")
	flags.Bool("skip-failed", false, "Record failed detail pages and keep going")
	flags.Int64("max-bytes", crawler.DefaultMaxBytes, "Maximum bytes of text kept per detail page")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout, 0 disables it")
	flags.String("user-agent", "", "User-Agent header")
	flags.Bool("robots", false, "Skip detail pages disallowed by robots.txt")
	flags.String("text-mode", string(extractor.TextModeBody), "Page text rendering (body, main)")
	flags.String("format", string(reporter.FormatText), "Output format (text, json, yaml, markdown, tsv)")
	flags.String("output", "", "Output file for the report")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file after the run")
	flags.String("log-level", "info", "Log level")
	flags.String("log-format", "json", "Log format (json, console)")

	return cmd
}

func runCensus(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	// Rules are checked before anything touches the network.
	rules, err := normalizer.ParseRules(args[0])
	if err != nil {
		return err
	}
	trim := normalizer.ParseBool(args[1])
	lowerCase := normalizer.ParseBool(args[2])

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	for _, rule := range rules.Shadowed() {
		logger.Warn("replace rule never applies, an earlier rule has the same key",
			zap.String("key", rule.Key), zap.String("value", rule.Value))
	}

	listingURL, _ := cfg.ListingURL()
	policy, _ := crawler.ParseFailurePolicy(cfg.Crawler.FailurePolicy)
	mode, _ := extractor.ParseTextMode(cfg.Crawler.TextMode)
	format, _ := reporter.ParseFormat(cfg.Output.Format)

	f := fetcher.New(
		fetcher.WithUserAgent(cfg.Crawler.UserAgent),
		fetcher.WithTimeout(cfg.Crawler.Timeout),
		fetcher.WithMaxBodyBytes(cfg.Crawler.MaxBodyBytes),
		fetcher.WithExtractor(extractor.New(mode)),
		fetcher.WithLogger(logger.Named("fetcher")),
	)
	metrics := monitoring.NewMetrics()

	opts := []crawler.Option{
		crawler.WithListingURL(listingURL),
		crawler.WithLinkPrefix(cfg.Catalog.LinkPrefix),
		crawler.WithMaxBytes(cfg.Crawler.MaxBytes),
		crawler.WithConcurrency(cfg.Crawler.Concurrency),
		crawler.WithFailurePolicy(policy),
		crawler.WithLogger(logger.Named("crawler")),
		crawler.WithMetrics(metrics),
		crawler.WithProgress(func(p crawler.Progress) {
			logger.Debug("detail page done", zap.String("url", p.URL), zap.Int("done", p.Done), zap.Int("total", p.Total))
		}),
	}
	if cfg.Crawler.FollowRobotsTxt {
		opts = append(opts, crawler.WithRobots(f))
	}

	c, err := crawler.New(f, normalizer.New(rules, normalizer.WithTrim(trim), normalizer.WithLowerCase(lowerCase)), opts...)
	if err != nil {
		return fmt.Errorf("failed to create crawler: %w", err)
	}

	result, err := c.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("census failed: %w", err)
	}

	summary, err := analyzer.New().Analyze(result)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := writeReport(cmd.OutOrStdout(), cfg.Output.Path, format, result, summary); err != nil {
		return err
	}
	if cfg.Output.Path != "" {
		logger.Info("report saved", zap.String("path", cfg.Output.Path))
	}

	if cfg.Output.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}

// writeReport writes to path when set, otherwise to stdout
func writeReport(stdout io.Writer, path string, format reporter.Format, result *models.CensusResult, summary *models.CensusSummary) error {
	if path == "" {
		return reporter.New(format).Write(stdout, result, summary)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := reporter.New(format).Write(file, result, summary); err != nil {
		file.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return file.Close()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "formatcensus:", err)
		stop()
		os.Exit(1)
	}
}
