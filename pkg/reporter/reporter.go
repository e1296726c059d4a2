package reporter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"gopkg.in/yaml.v3"

	"github.com/amosWeiskopf/formatcensus/internal/models"
)

// Format is an output format name
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatTSV      Format = "tsv"
)

// ParseFormat validates an output format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML, FormatMarkdown, FormatTSV:
		return f, nil
	case "":
		return FormatText, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Reporter renders census results in various formats
type Reporter struct {
	format Format
}

// New creates a new Reporter instance
func New(format Format) *Reporter {
	if format == "" {
		format = FormatText
	}
	return &Reporter{format: format}
}

// Write renders the report. The text and tsv formats only need the
// frequency table; the others render the summary.
func (r *Reporter) Write(w io.Writer, result *models.CensusResult, summary *models.CensusSummary) error {
	switch r.format {
	case FormatText:
		return WriteText(w, result.Table)
	case FormatTSV:
		return writeTSV(w, result.Table)
	case FormatJSON:
		return writeJSON(w, summary)
	case FormatYAML:
		return writeYAML(w, summary)
	case FormatMarkdown:
		return writeMarkdown(w, summary)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// WriteText prints two lines: every label followed by a comma, then every
// count followed by a comma, both in the table's label order.
func WriteText(w io.Writer, table *models.FrequencyTable) error {
	var labels, counts strings.Builder
	for _, label := range table.Labels() {
		labels.WriteString(string(label))
		labels.WriteByte(',')
		counts.WriteString(strconv.Itoa(table.Count(label)))
		counts.WriteByte(',')
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", labels.String(), counts.String())
	return err
}

func writeTSV(w io.Writer, table *models.FrequencyTable) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "label\tcount")
	for _, label := range table.Labels() {
		fmt.Fprintf(bw, "%s\t%d\n", strings.ReplaceAll(string(label), "\t", " "), table.Count(label))
	}
	return bw.Flush()
}

func writeJSON(w io.Writer, summary *models.CensusSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, summary *models.CensusSummary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return enc.Close()
}

func writeMarkdown(w io.Writer, summary *models.CensusSummary) error {
	md := markdown.NewMarkdown(w)

	md.H1("Data Format Census")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Listing", summary.ListingURL},
			{"Generated", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Detail Pages", strconv.Itoa(summary.DetailPages)},
			{"Observations", strconv.Itoa(summary.Observations)},
			{"Distinct Formats", strconv.Itoa(summary.Distinct)},
			{"Unknown Share", formatShare(summary.UnknownShare)},
		},
	})
	md.PlainText("")

	md.H2("Formats")
	md.PlainText("")
	if len(summary.Formats) == 0 {
		md.PlainText("No formats observed.")
	} else {
		rows := make([][]string, 0, len(summary.Formats))
		for _, f := range summary.Formats {
			rows = append(rows, []string{displayLabel(f.Label), strconv.Itoa(f.Count), formatShare(f.Share)})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Format", "Count", "Share"},
			Rows:   rows,
		})
	}
	md.PlainText("")

	if len(summary.Findings) > 0 {
		md.H2("Findings")
		md.PlainText("")
		items := make([]string, 0, len(summary.Findings))
		for _, f := range summary.Findings {
			items = append(items, fmt.Sprintf("**%s** (%s): %s", f.Type, f.Severity, f.Description))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(summary.Failures) > 0 {
		md.H2("Failed Pages")
		md.PlainText("")
		rows := make([][]string, 0, len(summary.Failures))
		for _, f := range summary.Failures {
			rows = append(rows, []string{f.URL, f.Error})
		}
		md.Table(markdown.TableSet{Header: []string{"URL", "Error"}, Rows: rows})
		md.PlainText("")
	}

	return md.Build()
}

func formatShare(share float64) string {
	return strconv.FormatFloat(share*100, 'f', 1, 64) + "%"
}

func displayLabel(label models.FormatLabel) string {
	if label == "" {
		return "(empty)"
	}
	return "`" + string(label) + "`"
}
