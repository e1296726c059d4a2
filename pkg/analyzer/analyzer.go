package analyzer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/amosWeiskopf/formatcensus/internal/models"
	"github.com/amosWeiskopf/formatcensus/pkg/extractor"
	"github.com/amosWeiskopf/formatcensus/pkg/utils"
)

// Analyzer derives shares, rankings and findings from a census result
type Analyzer struct {
	config *Config
}

// Config holds analyzer configuration
type Config struct {
	// UnknownLabel is the label that marks pages without a format field
	UnknownLabel models.FormatLabel
	// UnknownWarnShare raises a finding when unknown labels exceed this share
	UnknownWarnShare float64
	// Now is used for the report timestamp
	Now func() time.Time
}

// New creates a new Analyzer instance
func New() *Analyzer {
	return &Analyzer{
		config: &Config{
			UnknownLabel:     extractor.UnknownFormat,
			UnknownWarnShare: 0.25,
			Now:              time.Now,
		},
	}
}

// NewWithConfig creates an Analyzer with custom configuration
func NewWithConfig(config *Config) *Analyzer {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Analyzer{config: config}
}

// Analyze summarizes a census result. Formats are ranked by count, ties
// keep first-seen order.
func (a *Analyzer) Analyze(result *models.CensusResult) (*models.CensusSummary, error) {
	if result == nil || result.Table == nil {
		return nil, errors.New("analyzer: empty census result")
	}
	table := result.Table

	summary := &models.CensusSummary{
		ListingURL:   result.ListingURL,
		GeneratedAt:  a.config.Now(),
		DetailPages:  result.DetailPages,
		Observations: table.Total(),
		Distinct:     table.Len(),
		Failures:     result.Failures,
	}

	summary.Formats = a.rank(table)
	if summary.Observations > 0 {
		summary.UnknownShare = float64(table.Count(a.config.UnknownLabel)) / float64(summary.Observations)
	}
	summary.Findings = a.generateFindings(summary, result)
	return summary, nil
}

func (a *Analyzer) rank(table *models.FrequencyTable) []models.LabelShare {
	total := table.Total()
	shares := make([]models.LabelShare, 0, table.Len())
	for _, label := range table.Labels() {
		count := table.Count(label)
		share := 0.0
		if total > 0 {
			share = float64(count) / float64(total)
		}
		shares = append(shares, models.LabelShare{Label: label, Count: count, Share: share})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Count > shares[j].Count
	})
	return shares
}

// generateFindings flags metadata quality problems in the catalog
func (a *Analyzer) generateFindings(summary *models.CensusSummary, result *models.CensusResult) []models.Finding {
	findings := []models.Finding{}

	if summary.UnknownShare > a.config.UnknownWarnShare {
		findings = append(findings, models.Finding{
			Type:        "Missing Format Field",
			Description: fmt.Sprintf("%.0f%% of observations carry no declared data format", summary.UnknownShare*100),
			Severity:    "medium",
		})
	}

	if n := result.Table.Count(""); n > 0 {
		findings = append(findings, models.Finding{
			Type:        "Empty Format",
			Description: fmt.Sprintf("%d observations have an empty format value", n),
			Severity:    "low",
		})
	}

	// Labels differing only in case or whitespace suggest the run
	// should enable trimming or lower-casing.
	variants := make(map[string][]string)
	for _, label := range result.Table.Labels() {
		key := strings.ToLower(utils.CleanText(string(label)))
		variants[key] = append(variants[key], string(label))
	}
	for _, label := range result.Table.Labels() {
		key := strings.ToLower(utils.CleanText(string(label)))
		spellings := variants[key]
		if len(spellings) < 2 || spellings[0] != string(label) {
			continue
		}
		findings = append(findings, models.Finding{
			Type:        "Inconsistent Spelling",
			Description: fmt.Sprintf("%q is spelled %d ways: %s", key, len(spellings), strings.Join(quote(spellings), ", ")),
			Severity:    "low",
		})
	}

	if len(result.Failures) > 0 {
		findings = append(findings, models.Finding{
			Type:        "Failed Pages",
			Description: fmt.Sprintf("%d detail pages could not be fetched and are not counted", len(result.Failures)),
			Severity:    "high",
		})
	}

	if result.PagesSkipped > 0 {
		findings = append(findings, models.Finding{
			Type:        "Disallowed Pages",
			Description: fmt.Sprintf("%d detail pages were skipped because robots.txt disallows them", result.PagesSkipped),
			Severity:    "low",
		})
	}

	return findings
}

func quote(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
