package utils

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var space = regexp.MustCompile(`\s+`)

// CleanText collapses runs of whitespace and trims the result
func CleanText(text string) string {
	return strings.TrimSpace(space.ReplaceAllString(text, " "))
}

// TruncateBytes cuts s to at most maxBytes bytes without splitting a UTF-8
// sequence. It reports whether anything was cut. maxBytes <= 0 means no limit.
func TruncateBytes(s string, maxBytes int) (string, bool) {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s, false
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], true
}

// ResolveURL resolves ref against base
func ResolveURL(base *url.URL, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(refURL).String(), nil
}

// HasPathPrefix reports whether the path of rawURL starts with prefix
func HasPathPrefix(rawURL, prefix string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Path, prefix)
}

// NormalizeURL drops the fragment and lower-cases scheme and host so that
// equivalent links compare equal.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}
