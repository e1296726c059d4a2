package models

import "time"

// FormatLabel is a canonical file format name such as "pdf" or "unknown"
type FormatLabel string

// FrequencyTable counts how often each format label was observed.
// Labels are remembered in the order they were first seen.
type FrequencyTable struct {
	counts map[FormatLabel]int
	order  []FormatLabel
}

// NewFrequencyTable returns an empty table
func NewFrequencyTable() *FrequencyTable {
	return &FrequencyTable{counts: make(map[FormatLabel]int)}
}

// Observe increments the count for label, creating it at 1 when absent
func (t *FrequencyTable) Observe(label FormatLabel) {
	if t.counts == nil {
		t.counts = make(map[FormatLabel]int)
	}
	if _, ok := t.counts[label]; !ok {
		t.order = append(t.order, label)
	}
	t.counts[label]++
}

// ObserveAll observes every label in order
func (t *FrequencyTable) ObserveAll(labels []FormatLabel) {
	for _, label := range labels {
		t.Observe(label)
	}
}

// Count returns the number of observations of label
func (t *FrequencyTable) Count(label FormatLabel) int {
	return t.counts[label]
}

// Labels returns the distinct labels in first-seen order
func (t *FrequencyTable) Labels() []FormatLabel {
	out := make([]FormatLabel, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of distinct labels
func (t *FrequencyTable) Len() int {
	return len(t.order)
}

// Total returns the sum of all counts
func (t *FrequencyTable) Total() int {
	total := 0
	for _, n := range t.counts {
		total += n
	}
	return total
}

// Merge adds every count of other into t. Labels new to t are appended in
// other's order.
func (t *FrequencyTable) Merge(other *FrequencyTable) {
	if other == nil {
		return
	}
	if t.counts == nil {
		t.counts = make(map[FormatLabel]int)
	}
	for _, label := range other.order {
		if _, ok := t.counts[label]; !ok {
			t.order = append(t.order, label)
		}
		t.counts[label] += other.counts[label]
	}
}

// Map returns a copy of the counts keyed by label
func (t *FrequencyTable) Map() map[FormatLabel]int {
	out := make(map[FormatLabel]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// PageFailure records a detail page that could not be fetched when the
// crawl is configured to skip failures.
type PageFailure struct {
	URL   string `json:"url" yaml:"url"`
	Error string `json:"error" yaml:"error"`
}

// CensusResult contains the results of one crawl run
type CensusResult struct {
	ListingURL      string          `json:"listing_url" yaml:"listing_url"`
	Table           *FrequencyTable `json:"-" yaml:"-"`
	LinksDiscovered int             `json:"links_discovered" yaml:"links_discovered"`
	DetailPages     int             `json:"detail_pages" yaml:"detail_pages"`
	PagesSkipped    int             `json:"pages_skipped" yaml:"pages_skipped"`
	Failures        []PageFailure   `json:"failures,omitempty" yaml:"failures,omitempty"`
	StartedAt       time.Time       `json:"started_at" yaml:"started_at"`
	Duration        time.Duration   `json:"duration" yaml:"duration"`
}
