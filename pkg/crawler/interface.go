package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Fetcher retrieves catalog pages. Implementations turn the listing page into
// hyperlinks and detail pages into plain body text.
type Fetcher interface {
	// DiscoverLinks returns every hyperlink reference on the page
	DiscoverLinks(ctx context.Context, pageURL string) ([]string, error)

	// ExtractText returns the rendered body text, at most maxBytes long
	ExtractText(ctx context.Context, pageURL string, maxBytes int64) (string, error)
}

// RobotsPolicy decides whether a detail page may be fetched
type RobotsPolicy interface {
	Allowed(ctx context.Context, pageURL string) bool
}

// ErrFetch is matched by every error caused by a failed page retrieval
var ErrFetch = errors.New("fetch failed")

// FailurePolicy decides what a failed detail page does to the run
type FailurePolicy int

const (
	// FailFast aborts the whole run on the first failure
	FailFast FailurePolicy = iota
	// SkipFailed records the failure and continues with the next page
	SkipFailed
)

func (p FailurePolicy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case SkipFailed:
		return "skip-failed"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// ParseFailurePolicy parses "fail-fast" or "skip-failed"
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(s) {
	case "fail-fast", "":
		return FailFast, nil
	case "skip-failed", "skip":
		return SkipFailed, nil
	default:
		return FailFast, fmt.Errorf("unknown failure policy %q", s)
	}
}

// State is a step of a census run
type State int

const (
	StateIdle State = iota
	StateListingFetched
	StateDetailFetched
	StateExtracted
	StateNormalized
	StateCounted
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListingFetched:
		return "listing-fetched"
	case StateDetailFetched:
		return "detail-fetched"
	case StateExtracted:
		return "extracted"
	case StateNormalized:
		return "normalized"
	case StateCounted:
		return "counted"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Progress is reported after every detail page has been counted
type Progress struct {
	URL   string
	Done  int
	Total int
	Err   error
}
