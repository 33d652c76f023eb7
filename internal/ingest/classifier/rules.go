// Package classifier decides whether an inquiry is a genuine sales inquiry.
// Stage one is a deterministic spam pre-filter; stage two asks the model.
package classifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules configures the deterministic pre-filter. Operators can override
// the compiled defaults with a YAML file.
type Rules struct {
	SpamDomains      []string `yaml:"spam_domains"`
	SpamKeywords     []string `yaml:"spam_keywords"`
	MaxDistinctLinks int      `yaml:"max_distinct_links"`
}

// DefaultRules returns the built-in blacklist.
func DefaultRules() Rules {
	return Rules{
		SpamDomains: []string{
			"spam.com",
			"test.com",
			"example.com",
		},
		SpamKeywords: []string{
			"unsubscribe",
			"click here to opt out",
			"this is an advertisement",
			"viagra",
			"cialis",
			"casino",
			"lottery",
			"congratulations you've won",
		},
		MaxDistinctLinks: 10,
	}
}

// LoadRules reads rules from the given YAML path. An empty path returns
// the defaults; a missing list in the file keeps the default for it.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("failed to read spam rules: %w", err)
	}

	var loaded Rules
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return rules, fmt.Errorf("failed to parse spam rules: %w", err)
	}

	if len(loaded.SpamDomains) > 0 {
		rules.SpamDomains = loaded.SpamDomains
	}
	if len(loaded.SpamKeywords) > 0 {
		rules.SpamKeywords = loaded.SpamKeywords
	}
	if loaded.MaxDistinctLinks > 0 {
		rules.MaxDistinctLinks = loaded.MaxDistinctLinks
	}

	return rules, nil
}
