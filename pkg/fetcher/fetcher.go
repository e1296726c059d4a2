package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/amosWeiskopf/formatcensus/pkg/extractor"
)

const (
	defaultUserAgent    = "formatcensus/1.0 (+https://github.com/amosWeiskopf/formatcensus)"
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 20 << 20
)

// ErrStatus is wrapped by FetchError when the server answers with a non-2xx status
var ErrStatus = errors.New("unexpected status")

// FetchError describes a failed retrieval or extraction of one page
type FetchError struct {
	URL        string
	Op         string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %v %d", e.Op, e.URL, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPFetcher retrieves catalog pages over HTTP and hands them to an Extractor
type HTTPFetcher struct {
	client       *http.Client
	extractor    *extractor.Extractor
	userAgent    string
	timeout      time.Duration
	maxBodyBytes int64
	logger       *zap.Logger

	robotsMu sync.Mutex
	robots   map[string]*robotstxt.RobotsData
}

// Option configures an HTTPFetcher
type Option func(*HTTPFetcher)

// WithClient replaces the default HTTP client
func WithClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.timeout = d
	}
}

// WithMaxBodyBytes limits how much of a response body is read
func WithMaxBodyBytes(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

// WithExtractor sets the extractor used for links and text
func WithExtractor(e *extractor.Extractor) Option {
	return func(f *HTTPFetcher) {
		f.extractor = e
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates an HTTPFetcher
func New(opts ...Option) *HTTPFetcher {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     30 * time.Second,
	}

	f := &HTTPFetcher{
		client:       &http.Client{Transport: transport, Jar: jar},
		extractor:    extractor.New(extractor.TextModeBody),
		userAgent:    defaultUserAgent,
		timeout:      defaultTimeout,
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       zap.NewNop(),
		robots:       make(map[string]*robotstxt.RobotsData),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DiscoverLinks returns every hyperlink reference on the page at pageURL
func (f *HTTPFetcher) DiscoverLinks(ctx context.Context, pageURL string) ([]string, error) {
	body, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	links, err := f.extractor.ExtractLinks(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Op: "extract links", Err: err}
	}
	f.logger.Debug("discovered links", zap.String("url", pageURL), zap.Int("links", len(links)))
	return links, nil
}

// ExtractText returns the plain text of the page at pageURL. Rendering stops
// after maxBytes bytes of text.
func (f *HTTPFetcher) ExtractText(ctx context.Context, pageURL string, maxBytes int64) (string, error) {
	body, err := f.get(ctx, pageURL)
	if err != nil {
		return "", err
	}

	text, cut, err := f.extractor.ExtractText(body, int(maxBytes))
	if err != nil {
		return "", &FetchError{URL: pageURL, Op: "extract text", Err: err}
	}
	if cut {
		f.logger.Warn("page text truncated", zap.String("url", pageURL), zap.Int64("max_bytes", maxBytes))
	}
	return text, nil
}

// Allowed reports whether robots.txt of the page's host permits fetching it.
// Missing or unreadable robots files allow everything.
func (f *HTTPFetcher) Allowed(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return true
	}

	robots := f.robotsFor(ctx, u)
	if robots == nil {
		return true
	}
	return robots.TestAgent(u.RequestURI(), f.userAgent)
}

func (f *HTTPFetcher) robotsFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host

	f.robotsMu.Lock()
	defer f.robotsMu.Unlock()
	if robots, ok := f.robots[key]; ok {
		return robots
	}

	robots, err := f.fetchRobots(ctx, key+"/robots.txt")
	if err != nil {
		f.logger.Debug("robots.txt unavailable", zap.String("host", u.Host), zap.Error(err))
	}
	f.robots[key] = robots
	return robots
}

func (f *HTTPFetcher) fetchRobots(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	resp, err := f.do(ctx, robotsURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return robotstxt.FromStatusAndBytes(resp.StatusCode, body)
}

func (f *HTTPFetcher) get(ctx context.Context, pageURL string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	resp, err := f.do(ctx, pageURL)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Op: "get", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: pageURL, Op: "get", StatusCode: resp.StatusCode, Err: ErrStatus}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Op: "read body", Err: err}
	}
	if int64(len(body)) > f.maxBodyBytes {
		f.logger.Warn("response body truncated", zap.String("url", pageURL), zap.Int64("max_body_bytes", f.maxBodyBytes))
		body = body[:f.maxBodyBytes]
	}

	f.logger.Debug("fetched page",
		zap.String("url", pageURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
	)
	return body, nil
}

func (f *HTTPFetcher) do(ctx context.Context, pageURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	return f.client.Do(req)
}
