package normalizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRules(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    Rules
		wantErr bool
	}{
		{
			name: "single rule",
			spec: "Portable Document Format|PDF",
			want: Rules{{Key: "Portable Document Format", Value: "PDF"}},
		},
		{
			name: "multiple rules keep order",
			spec: "Excel|xls:Comma Separated|csv:ASCII|text",
			want: Rules{
				{Key: "Excel", Value: "xls"},
				{Key: "Comma Separated", Value: "csv"},
				{Key: "ASCII", Value: "text"},
			},
		},
		{
			name: "empty spec",
			spec: "",
			want: nil,
		},
		{
			name: "trailing separator",
			spec: "a|b:",
			want: Rules{{Key: "a", Value: "b"}},
		},
		{
			name:    "no pipe",
			spec:    "abc",
			wantErr: true,
		},
		{
			name:    "two pipes",
			spec:    "a|b|c",
			wantErr: true,
		},
		{
			name:    "empty group in the middle",
			spec:    "a|b::c|d",
			wantErr: true,
		},
		{
			name:    "empty key",
			spec:    "|PDF",
			wantErr: true,
		},
		{
			name:    "empty value",
			spec:    "pdf|",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRules(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrConfigParse))
				var parseErr *ConfigParseError
				assert.True(t, errors.As(err, &parseErr))
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigParseErrorMessage(t *testing.T) {
	_, err := ParseRules("a|b:abc")
	require.Error(t, err)

	var parseErr *ConfigParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 1, parseErr.Index)
	assert.Equal(t, "abc", parseErr.Group)
	assert.Contains(t, err.Error(), `group 2 "abc"`)
}

func TestRulesShadowed(t *testing.T) {
	rules, err := ParseRules("pdf|PDF:csv|CSV:pdf|Acrobat")
	require.NoError(t, err)

	assert.Equal(t, Rules{{Key: "pdf", Value: "Acrobat"}}, rules.Shadowed())
	assert.Empty(t, rules[:2].Shadowed())
}

func TestRulesString(t *testing.T) {
	spec := "Excel|xls:ASCII|text"
	rules, err := ParseRules(spec)
	require.NoError(t, err)
	assert.Equal(t, spec, rules.String())
}

func TestParseBool(t *testing.T) {
	assert.True(t, ParseBool("true"))
	assert.True(t, ParseBool("TRUE"))
	assert.True(t, ParseBool("True"))
	assert.False(t, ParseBool("false"))
	assert.False(t, ParseBool("yes"))
	assert.False(t, ParseBool("1"))
	assert.False(t, ParseBool(""))
}
