package models

import "time"

// CensusSummary is the analyzed view of a census run used by the reports
type CensusSummary struct {
	ListingURL   string        `json:"listing_url" yaml:"listing_url"`
	GeneratedAt  time.Time     `json:"generated_at" yaml:"generated_at"`
	DetailPages  int           `json:"detail_pages" yaml:"detail_pages"`
	Observations int           `json:"observations" yaml:"observations"`
	Distinct     int           `json:"distinct_labels" yaml:"distinct_labels"`
	UnknownShare float64       `json:"unknown_share" yaml:"unknown_share"`
	Formats      []LabelShare  `json:"formats" yaml:"formats"`
	Findings     []Finding     `json:"findings,omitempty" yaml:"findings,omitempty"`
	Failures     []PageFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// LabelShare is one format label with its count and share of all observations
type LabelShare struct {
	Label FormatLabel `json:"label" yaml:"label"`
	Count int         `json:"count" yaml:"count"`
	Share float64     `json:"share" yaml:"share"`
}

// Finding represents an observation about the catalog's format metadata
type Finding struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Severity    string `json:"severity" yaml:"severity"`
}
