package normalizer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/amosWeiskopf/formatcensus/internal/models"
)

// Normalizer maps raw format tokens to canonical labels
type Normalizer struct {
	rules     Rules
	trim      bool
	lowerCase bool
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithTrim strips leading and trailing whitespace from every token and from
// every rule value, so replaced labels are trimmed as well.
func WithTrim(enabled bool) Option {
	return func(n *Normalizer) {
		n.trim = enabled
	}
}

// WithLowerCase lower-cases every token. Rule keys are lower-cased before
// matching and rule values before they are emitted, so a rule written as
// "Portable Document Format|PDF" matches "portable document format" and
// yields "pdf".
func WithLowerCase(enabled bool) Option {
	return func(n *Normalizer) {
		n.lowerCase = enabled
	}
}

// New creates a Normalizer applying rules in order. Rules are stored in the
// same case and trim form as the tokens they are matched against.
func New(rules Rules, opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}

	n.rules = make(Rules, len(rules))
	for i, rule := range rules {
		n.rules[i] = Rule{Key: n.fold(rule.Key), Value: n.clean(rule.Value)}
	}
	return n
}

// Normalize maps every raw token to a label. The output always has the same
// length and order as raw.
func (n *Normalizer) Normalize(raw []string) []models.FormatLabel {
	out := make([]models.FormatLabel, len(raw))
	for i, token := range raw {
		out[i] = n.NormalizeToken(token)
	}
	return out
}

// NormalizeToken cleans a single token and applies the first matching rule
func (n *Normalizer) NormalizeToken(token string) models.FormatLabel {
	cleaned := n.clean(token)
	for _, rule := range n.rules {
		if strings.Contains(cleaned, rule.Key) {
			return models.FormatLabel(rule.Value)
		}
	}
	return models.FormatLabel(cleaned)
}

// Rules returns the rules as applied, after case folding
func (n *Normalizer) Rules() Rules {
	out := make(Rules, len(n.rules))
	copy(out, n.rules)
	return out
}

func (n *Normalizer) clean(s string) string {
	if n.trim {
		s = strings.TrimSpace(s)
	}
	return n.fold(s)
}

func (n *Normalizer) fold(s string) string {
	if n.lowerCase {
		// Casers are stateful, so one is built per call.
		s = cases.Lower(language.Und).String(s)
	}
	return s
}
