package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"

	"github.com/amosWeiskopf/formatcensus/internal/models"
	"github.com/amosWeiskopf/formatcensus/internal/monitoring"
	"github.com/amosWeiskopf/formatcensus/pkg/extractor"
	"github.com/amosWeiskopf/formatcensus/pkg/normalizer"
	"github.com/amosWeiskopf/formatcensus/pkg/utils"
)

const (
	DefaultListingURL = "https://www.aoncadis.org/scienceKeywordTopic/Atmosphere.html"
	DefaultLinkPrefix = "/dataset"
	DefaultMaxBytes   = 10 << 20
)

// Crawler walks the catalog listing, visits every detail page and counts the
// declared data formats.
type Crawler struct {
	fetcher     Fetcher
	normalizer  *normalizer.Normalizer
	listingURL  *url.URL
	linkPrefix  string
	maxBytes    int64
	concurrency int
	policy      FailurePolicy
	robots      RobotsPolicy
	logger      *zap.Logger
	metrics     *monitoring.Metrics
	progress    func(Progress)
	progressMu  sync.Mutex

	rawListingURL string
}

// Option configures a Crawler
type Option func(*Crawler)

// WithListingURL sets the catalog listing page
func WithListingURL(u string) Option {
	return func(c *Crawler) {
		c.rawListingURL = u
	}
}

// WithLinkPrefix sets the path prefix that marks detail page links
func WithLinkPrefix(prefix string) Option {
	return func(c *Crawler) {
		c.linkPrefix = prefix
	}
}

// WithMaxBytes bounds the text extracted from one detail page
func WithMaxBytes(n int64) Option {
	return func(c *Crawler) {
		c.maxBytes = n
	}
}

// WithConcurrency sets how many detail pages are fetched at once
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		c.concurrency = n
	}
}

// WithFailurePolicy sets what a failed detail page does to the run
func WithFailurePolicy(p FailurePolicy) Option {
	return func(c *Crawler) {
		c.policy = p
	}
}

// WithRobots skips detail pages the policy does not allow
func WithRobots(r RobotsPolicy) Option {
	return func(c *Crawler) {
		c.robots = r
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records run metrics into m
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *Crawler) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithProgress calls fn after each detail page. fn is never called
// concurrently.
func WithProgress(fn func(Progress)) Option {
	return func(c *Crawler) {
		c.progress = fn
	}
}

// New creates a Crawler
func New(f Fetcher, n *normalizer.Normalizer, opts ...Option) (*Crawler, error) {
	if f == nil {
		return nil, errors.New("crawler: nil fetcher")
	}
	if n == nil {
		return nil, errors.New("crawler: nil normalizer")
	}

	c := &Crawler{
		fetcher:       f,
		normalizer:    n,
		rawListingURL: DefaultListingURL,
		linkPrefix:    DefaultLinkPrefix,
		maxBytes:      DefaultMaxBytes,
		concurrency:   1,
		policy:        FailFast,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	u, err := url.Parse(c.rawListingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid listing URL %q: want an absolute http(s) URL", c.rawListingURL)
	}
	c.listingURL = u

	if c.linkPrefix == "" {
		return nil, errors.New("crawler: empty link prefix")
	}
	if c.maxBytes <= 0 {
		return nil, fmt.Errorf("crawler: max bytes must be positive, got %d", c.maxBytes)
	}
	if c.concurrency < 1 {
		return nil, fmt.Errorf("crawler: concurrency must be at least 1, got %d", c.concurrency)
	}
	if c.metrics == nil {
		c.metrics = monitoring.NewMetrics()
	}
	return c, nil
}

// ListingURL returns the listing page the crawler starts from
func (c *Crawler) ListingURL() string {
	return c.listingURL.String()
}

type pageResult struct {
	url    string
	labels []models.FormatLabel
	err    error
}

// Run performs one census. The returned table is built fresh for every run.
// With FailFast any fetch failure aborts the run and no result is returned.
func (c *Crawler) Run(ctx context.Context) (*models.CensusResult, error) {
	started := time.Now()
	listing := c.listingURL.String()
	c.logger.Info("census started",
		zap.String("listing_url", listing),
		zap.String("link_prefix", c.linkPrefix),
		zap.Int("concurrency", c.concurrency),
		zap.Stringer("failure_policy", c.policy),
	)
	c.transition(StateIdle, listing)

	fetchStart := time.Now()
	links, err := c.fetcher.DiscoverLinks(ctx, listing)
	if err != nil {
		c.metrics.IncErrors("listing_failed")
		return nil, fmt.Errorf("%w: listing %s: %w", ErrFetch, listing, err)
	}
	c.metrics.IncPagesFetched("listing")
	c.metrics.ObserveFetch("listing", time.Since(fetchStart).Seconds())
	c.transition(StateListingFetched, listing)

	details := FilterLinks(c.listingURL, c.linkPrefix, links)
	for range details {
		c.metrics.IncLinks("kept")
	}
	for i := len(details); i < len(links); i++ {
		c.metrics.IncLinks("dropped")
	}

	result := &models.CensusResult{
		ListingURL:      listing,
		LinksDiscovered: len(links),
		StartedAt:       started,
	}

	details = c.applyRobots(ctx, details, result)
	c.logger.Info("detail pages selected",
		zap.Int("links", len(links)),
		zap.Int("detail_pages", len(details)),
		zap.Int("skipped", result.PagesSkipped),
	)

	pages, err := c.visit(ctx, details)
	if err != nil {
		return nil, err
	}

	table := models.NewFrequencyTable()
	for _, page := range pages {
		if page.err != nil {
			result.Failures = append(result.Failures, models.PageFailure{URL: page.url, Error: page.err.Error()})
			continue
		}
		table.ObserveAll(page.labels)
		for _, label := range page.labels {
			c.metrics.IncLabel(string(label))
		}
		result.DetailPages++
		c.transition(StateCounted, page.url)
	}

	result.Table = table
	result.Duration = time.Since(started)
	c.metrics.RunDuration.Set(result.Duration.Seconds())
	c.metrics.DistinctLabels.Set(float64(table.Len()))
	c.transition(StateDone, listing)
	c.logger.Info("census finished",
		zap.Int("detail_pages", result.DetailPages),
		zap.Int("failures", len(result.Failures)),
		zap.Int("distinct_labels", table.Len()),
		zap.Int("observations", table.Total()),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// visit processes every detail page. Results keep the order of urls no matter
// how many pages are in flight.
func (c *Crawler) visit(ctx context.Context, urls []string) ([]pageResult, error) {
	results := make([]pageResult, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	var done int
	for i, u := range urls {
		i, u := i, u
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// A slot may free up only after another page failed.
			if err := gctx.Err(); err != nil {
				return err
			}
			labels, err := c.processPage(gctx, u)
			results[i] = pageResult{url: u, labels: labels, err: err}
			c.report(u, &done, len(urls), err)

			if err != nil && c.policy == FailFast {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// processPage runs one detail page through fetch, extraction and normalization
func (c *Crawler) processPage(ctx context.Context, pageURL string) ([]models.FormatLabel, error) {
	start := time.Now()
	text, err := c.fetcher.ExtractText(ctx, pageURL, c.maxBytes)
	if err != nil {
		c.metrics.IncErrors("detail_failed")
		if c.policy == SkipFailed && ctx.Err() == nil {
			c.logger.Warn("skipping failed detail page", zap.String("url", pageURL), zap.Error(err))
		}
		return nil, fmt.Errorf("%w: detail %s: %w", ErrFetch, pageURL, err)
	}
	c.metrics.IncPagesFetched("detail")
	c.metrics.ObserveFetch("detail", time.Since(start).Seconds())
	c.transition(StateDetailFetched, pageURL)

	raw, found := extractor.FindFormatTokens(text)
	c.transition(StateExtracted, pageURL)

	// The unknown sentinel is not a declared format, so rules never rewrite it.
	labels := []models.FormatLabel{extractor.UnknownFormat}
	if found {
		labels = c.normalizer.Normalize(raw)
	}
	c.transition(StateNormalized, pageURL)

	c.logger.Debug("detail page processed",
		zap.String("url", pageURL),
		zap.Strings("raw", raw),
		zap.Int("labels", len(labels)),
	)
	return labels, nil
}

func (c *Crawler) applyRobots(ctx context.Context, urls []string, result *models.CensusResult) []string {
	if c.robots == nil {
		return urls
	}
	allowed := make([]string, 0, len(urls))
	for _, u := range urls {
		if !c.robots.Allowed(ctx, u) {
			c.logger.Info("skipped detail page disallowed by robots.txt", zap.String("url", u))
			c.metrics.IncLinks("disallowed")
			result.PagesSkipped++
			continue
		}
		allowed = append(allowed, u)
	}
	return allowed
}

func (c *Crawler) report(pageURL string, done *int, total int, err error) {
	c.progressMu.Lock()
	defer c.progressMu.Unlock()
	*done++
	if c.progress != nil {
		c.progress(Progress{URL: pageURL, Done: *done, Total: total, Err: err})
	}
}

func (c *Crawler) transition(s State, pageURL string) {
	c.logger.Debug("state", zap.Stringer("state", s), zap.String("url", pageURL))
}

// FilterLinks resolves links against the listing URL and keeps those whose
// path starts with prefix. Links to other sites, non-http schemes and
// unparseable references are dropped. Each page is returned once, in
// discovery order, without its fragment.
func FilterLinks(listing *url.URL, prefix string, links []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, link := range links {
		resolved, err := utils.ResolveURL(listing, link)
		if err != nil {
			continue
		}
		resolved = utils.NormalizeURL(resolved)

		u, err := url.Parse(resolved)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		if !sameSite(listing.Hostname(), u.Hostname()) {
			continue
		}
		if !utils.HasPathPrefix(resolved, prefix) || seen[resolved] {
			continue
		}
		seen[resolved] = true
		out = append(out, resolved)
	}
	return out
}

func sameSite(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	if net.ParseIP(a) != nil || net.ParseIP(b) != nil {
		return false
	}
	da, errA := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(a))
	db, errB := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(b))
	return errA == nil && errB == nil && da == db
}
