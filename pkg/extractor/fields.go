package extractor

import (
	"regexp"
	"strings"
)

// UnknownFormat is the token produced for pages without a data format field
const UnknownFormat = "unknown"

// formatField matches the declared format list of a catalog detail page,
// e.g. "Data Format(s): JPEG, PNG".
var formatField = regexp.MustCompile(`Data Format\(s\):\s*([\w, ?]*)`)

// ExtractFormatTokens returns the raw comma separated tokens of the first
// "Data Format(s):" field in text. Tokens keep their surrounding whitespace.
// Text without the field yields a single UnknownFormat token.
func ExtractFormatTokens(text string) []string {
	tokens, ok := FindFormatTokens(text)
	if !ok {
		return []string{UnknownFormat}
	}
	return tokens
}

// FindFormatTokens is ExtractFormatTokens without the sentinel: ok is false
// when text has no "Data Format(s):" field.
func FindFormatTokens(text string) (tokens []string, ok bool) {
	m := formatField.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return splitTokens(m[1]), true
}

// splitTokens splits on commas and drops trailing empty tokens, keeping at
// least one token.
func splitTokens(field string) []string {
	tokens := strings.Split(field, ",")
	end := len(tokens)
	for end > 1 && tokens[end-1] == "" {
		end--
	}
	return tokens[:end]
}
