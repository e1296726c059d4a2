package reporter

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/amosWeiskopf/formatcensus/internal/models"
)

func sampleResult() (*models.CensusResult, *models.CensusSummary) {
	table := models.NewFrequencyTable()
	table.ObserveAll([]models.FormatLabel{"pdf", "jpeg", "pdf", ""})

	result := &models.CensusResult{
		ListingURL:  "https://catalog.example.org/list.html",
		Table:       table,
		DetailPages: 3,
		Failures:    []models.PageFailure{{URL: "https://catalog.example.org/dataset/9.html", Error: "status 500"}},
	}
	summary := &models.CensusSummary{
		ListingURL:   result.ListingURL,
		GeneratedAt:  time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
		DetailPages:  3,
		Observations: 4,
		Distinct:     3,
		Formats: []models.LabelShare{
			{Label: "pdf", Count: 2, Share: 0.5},
			{Label: "jpeg", Count: 1, Share: 0.25},
			{Label: "", Count: 1, Share: 0.25},
		},
		Findings: []models.Finding{{Type: "Empty Format", Description: "1 observations have an empty format value", Severity: "low"}},
		Failures: result.Failures,
	}
	return result, summary
}

func TestWriteText(t *testing.T) {
	table := models.NewFrequencyTable()
	for _, page := range [][]models.FormatLabel{{"pdf"}, {"pdf"}, {"jpeg"}} {
		table.ObserveAll(page)
	}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, table))
	assert.Equal(t, "pdf,jpeg,\n2,1,\n", buf.String())
}

func TestWriteTextEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, models.NewFrequencyTable()))
	assert.Equal(t, "\n\n", buf.String())
}

func TestReporterFormats(t *testing.T) {
	result, summary := sampleResult()

	tests := []struct {
		format Format
		check  func(t *testing.T, out string)
	}{
		{
			format: FormatText,
			check: func(t *testing.T, out string) {
				assert.Equal(t, "pdf,jpeg,,\n2,1,1,\n", out)
			},
		},
		{
			format: FormatTSV,
			check: func(t *testing.T, out string) {
				assert.Equal(t, "label\tcount\npdf\t2\njpeg\t1\n\t1\n", out)
			},
		},
		{
			format: FormatJSON,
			check: func(t *testing.T, out string) {
				var decoded models.CensusSummary
				require.NoError(t, json.Unmarshal([]byte(out), &decoded))
				assert.Equal(t, summary.Formats, decoded.Formats)
				assert.Contains(t, out, `"distinct_labels": 3`)
			},
		},
		{
			format: FormatYAML,
			check: func(t *testing.T, out string) {
				var decoded map[string]any
				require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
				assert.Equal(t, 4, decoded["observations"])
				assert.Contains(t, out, "listing_url: https://catalog.example.org/list.html")
			},
		},
		{
			format: FormatMarkdown,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "# Data Format Census")
				assert.Contains(t, out, "| `pdf` | 2 | 50.0% |")
				assert.Contains(t, out, "| (empty) | 1 | 25.0% |")
				assert.Contains(t, out, "**Empty Format** (low)")
				assert.Contains(t, out, "## Failed Pages")
				assert.Contains(t, out, "2026-10-18 09:30:00 UTC")
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, New(tt.format).Write(&buf, result, summary))
			tt.check(t, buf.String())
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: "md", want: FormatMarkdown},
		{in: "yml", want: FormatYAML},
		{in: "tsv", want: FormatTSV},
		{in: "html", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteUnsupportedFormat(t *testing.T) {
	result, summary := sampleResult()
	err := New("html").Write(&bytes.Buffer{}, result, summary)
	assert.Error(t, err)
}
