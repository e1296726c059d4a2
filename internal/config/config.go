package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/amosWeiskopf/formatcensus/pkg/crawler"
	"github.com/amosWeiskopf/formatcensus/pkg/extractor"
	"github.com/amosWeiskopf/formatcensus/pkg/reporter"
)

// Config holds all application configuration
type Config struct {
	// Catalog configuration
	Catalog CatalogConfig `mapstructure:"catalog"`

	// Crawler configuration
	Crawler CrawlerConfig `mapstructure:"crawler"`

	// Output configuration
	Output OutputConfig `mapstructure:"output"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// CatalogConfig locates the listing page and its detail links
type CatalogConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	ListingPath string `mapstructure:"listing_path"`
	LinkPrefix  string `mapstructure:"link_prefix"`
}

// CrawlerConfig holds crawler-specific configuration
type CrawlerConfig struct {
	UserAgent       string        `mapstructure:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxBytes        int64         `mapstructure:"max_bytes"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	Concurrency     int           `mapstructure:"concurrency"`
	FailurePolicy   string        `mapstructure:"failure_policy"` // "fail-fast" or "skip-failed"
	FollowRobotsTxt bool          `mapstructure:"follow_robots_txt"`
	TextMode        string        `mapstructure:"text_mode"` // "body" or "main"
}

// OutputConfig selects where and how the census is written
type OutputConfig struct {
	Format      string `mapstructure:"format"`
	Path        string `mapstructure:"path"`
	MetricsFile string `mapstructure:"metrics_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// flagKeys maps command line flags onto configuration keys
var flagKeys = map[string]string{
	"base-url":     "catalog.base_url",
	"listing-path": "catalog.listing_path",
	"link-prefix":  "catalog.link_prefix",
	"user-agent":   "crawler.user_agent",
	"timeout":      "crawler.timeout",
	"max-bytes":    "crawler.max_bytes",
	"concurrency":  "crawler.concurrency",
	"robots":       "crawler.follow_robots_txt",
	"text-mode":    "crawler.text_mode",
	"format":       "output.format",
	"output":       "output.path",
	"metrics-file": "output.metrics_file",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
}

// Load reads configuration from defaults, the config file, FORMATCENSUS_*
// environment variables and flags, in increasing order of precedence.
// flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("formatcensus")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.formatcensus")
	}

	setDefaults(v)
	bindEnvVars(v)
	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error, we'll use defaults and env
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Catalog defaults
	v.SetDefault("catalog.base_url", "https://www.aoncadis.org/")
	v.SetDefault("catalog.listing_path", "scienceKeywordTopic/Atmosphere.html")
	v.SetDefault("catalog.link_prefix", crawler.DefaultLinkPrefix)

	// Crawler defaults
	v.SetDefault("crawler.user_agent", "")
	v.SetDefault("crawler.timeout", "30s")
	v.SetDefault("crawler.max_bytes", crawler.DefaultMaxBytes)
	v.SetDefault("crawler.max_body_bytes", 2*crawler.DefaultMaxBytes)
	v.SetDefault("crawler.concurrency", 1)
	v.SetDefault("crawler.failure_policy", crawler.FailFast.String())
	v.SetDefault("crawler.follow_robots_txt", false)
	v.SetDefault("crawler.text_mode", string(extractor.TextModeBody))

	// Output defaults
	v.SetDefault("output.format", string(reporter.FormatText))
	v.SetDefault("output.path", "")
	v.SetDefault("output.metrics_file", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars maps crawler.max_bytes to FORMATCENSUS_CRAWLER_MAX_BYTES and so on
func bindEnvVars(v *viper.Viper) {
	v.SetEnvPrefix("FORMATCENSUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	if f := flags.Lookup("skip-failed"); f != nil && f.Changed && f.Value.String() == "true" {
		v.Set("crawler.failure_policy", crawler.SkipFailed.String())
	}
	return nil
}

// ListingURL resolves the listing path against the base URL
func (c *Config) ListingURL() (string, error) {
	base, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.Catalog.BaseURL)
	}
	ref, err := url.Parse(c.Catalog.ListingPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidListingPath, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := c.ListingURL(); err != nil {
		return err
	}
	if c.Catalog.LinkPrefix == "" {
		return ErrInvalidLinkPrefix
	}
	if c.Crawler.Timeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.Crawler.Timeout)
	}
	if c.Crawler.MaxBytes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxBytes, c.Crawler.MaxBytes)
	}
	if c.Crawler.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxBodyBytes, c.Crawler.MaxBodyBytes)
	}
	if c.Crawler.Concurrency < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, c.Crawler.Concurrency)
	}
	if _, err := crawler.ParseFailurePolicy(c.Crawler.FailurePolicy); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFailurePolicy, c.Crawler.FailurePolicy)
	}
	if _, err := extractor.ParseTextMode(c.Crawler.TextMode); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTextMode, c.Crawler.TextMode)
	}
	if _, err := reporter.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "text", "":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}
	return nil
}
