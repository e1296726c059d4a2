package normalizer

import (
	"errors"
	"fmt"
	"strings"
)

const (
	groupSeparator = ":"
	pairSeparator  = "|"
)

// ErrConfigParse is matched by every replace-spec parse failure
var ErrConfigParse = errors.New("invalid replace spec")

// ConfigParseError describes a malformed rule group in a replace spec
type ConfigParseError struct {
	Group  string
	Index  int
	Reason string
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("invalid replace spec: group %d %q: %s", e.Index+1, e.Group, e.Reason)
}

func (e *ConfigParseError) Unwrap() error {
	return ErrConfigParse
}

// Rule replaces any token containing Key with Value
type Rule struct {
	Key   string `mapstructure:"key" yaml:"key"`
	Value string `mapstructure:"value" yaml:"value"`
}

// Rules is an ordered rule list. The first rule whose key matches a token wins.
type Rules []Rule

// ParseRules parses a replace spec of the form "key1|value1:key2|value2".
// An empty spec yields no rules. Trailing empty groups are ignored.
func ParseRules(spec string) (Rules, error) {
	if spec == "" {
		return nil, nil
	}

	groups := strings.Split(spec, groupSeparator)
	for len(groups) > 0 && groups[len(groups)-1] == "" {
		groups = groups[:len(groups)-1]
	}

	rules := make(Rules, 0, len(groups))
	for i, group := range groups {
		if n := strings.Count(group, pairSeparator); n != 1 {
			return nil, &ConfigParseError{
				Group:  group,
				Index:  i,
				Reason: fmt.Sprintf("expected exactly one %q, found %d", pairSeparator, n),
			}
		}
		key, value, _ := strings.Cut(group, pairSeparator)
		if key == "" {
			return nil, &ConfigParseError{Group: group, Index: i, Reason: "empty key"}
		}
		if value == "" {
			return nil, &ConfigParseError{Group: group, Index: i, Reason: "empty value"}
		}
		rules = append(rules, Rule{Key: key, Value: value})
	}
	return rules, nil
}

// Shadowed returns the rules that can never fire because an earlier rule
// has the same key.
func (r Rules) Shadowed() Rules {
	seen := make(map[string]bool, len(r))
	var shadowed Rules
	for _, rule := range r {
		if seen[rule.Key] {
			shadowed = append(shadowed, rule)
			continue
		}
		seen[rule.Key] = true
	}
	return shadowed
}

// String renders the rules back into replace-spec form
func (r Rules) String() string {
	parts := make([]string, len(r))
	for i, rule := range r {
		parts[i] = rule.Key + pairSeparator + rule.Value
	}
	return strings.Join(parts, groupSeparator)
}

// ParseBool reports whether s is "true", ignoring case. Anything else is false.
func ParseBool(s string) bool {
	return strings.EqualFold(s, "true")
}
