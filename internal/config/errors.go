package config

import "errors"

var (
	ErrInvalidBaseURL       = errors.New("catalog.base_url must be an absolute http(s) URL")
	ErrInvalidListingPath   = errors.New("catalog.listing_path is invalid")
	ErrInvalidLinkPrefix    = errors.New("catalog.link_prefix must not be empty")
	ErrInvalidTimeout       = errors.New("crawler.timeout must not be negative")
	ErrInvalidMaxBytes      = errors.New("crawler.max_bytes must be positive")
	ErrInvalidMaxBodyBytes  = errors.New("crawler.max_body_bytes must be positive")
	ErrInvalidConcurrency   = errors.New("crawler.concurrency must be at least 1")
	ErrInvalidFailurePolicy = errors.New("crawler.failure_policy is unknown")
	ErrInvalidTextMode      = errors.New("crawler.text_mode is unknown")
	ErrInvalidFormat        = errors.New("output.format is unknown")
	ErrInvalidLogFormat     = errors.New("logging.format is unknown")
)
