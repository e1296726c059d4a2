package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a\n\tb   c \n"))
	assert.Equal(t, "", CleanText(" \n "))
}

func TestTruncateBytes(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		max     int
		want    string
		wantCut bool
	}{
		{name: "short", in: "abc", max: 10, want: "abc"},
		{name: "exact", in: "abc", max: 3, want: "abc"},
		{name: "cut ascii", in: "abcdef", max: 4, want: "abcd", wantCut: true},
		{name: "no limit", in: "abcdef", max: 0, want: "abcdef"},
		{name: "rune boundary", in: "aé", max: 2, want: "a", wantCut: true},
		{name: "whole rune fits", in: "aéb", max: 3, want: "aé", wantCut: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cut := TruncateBytes(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCut, cut)
		})
	}
}

func TestResolveURL(t *testing.T) {
	base, err := url.Parse("https://www.aoncadis.org/scienceKeywordTopic/Atmosphere.html")
	require.NoError(t, err)

	got, err := ResolveURL(base, "/dataset/1.html")
	require.NoError(t, err)
	assert.Equal(t, "https://www.aoncadis.org/dataset/1.html", got)

	got, err = ResolveURL(base, "Ocean.html")
	require.NoError(t, err)
	assert.Equal(t, "https://www.aoncadis.org/scienceKeywordTopic/Ocean.html", got)

	_, err = ResolveURL(base, "http://[::1")
	assert.Error(t, err)
}

func TestHasPathPrefix(t *testing.T) {
	assert.True(t, HasPathPrefix("/dataset/1.html", "/dataset"))
	assert.True(t, HasPathPrefix("https://www.aoncadis.org/dataset/x", "/dataset"))
	assert.False(t, HasPathPrefix("/about.html", "/dataset"))
	assert.False(t, HasPathPrefix("dataset/1.html", "/dataset"))
	assert.False(t, HasPathPrefix("http://[::1", "/dataset"))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.org/dataset/1", NormalizeURL("HTTPS://Example.ORG/dataset/1#files"))
	assert.Equal(t, "/dataset/1?x=1", NormalizeURL("/dataset/1?x=1"))
}
