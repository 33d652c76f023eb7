package classifier

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRulesEmptyPathReturnsDefaults(t *testing.T) {
	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules.SpamDomains) == 0 || len(rules.SpamKeywords) == 0 {
		t.Fatal("expected built-in blacklists")
	}
	if rules.MaxDistinctLinks != 10 {
		t.Fatalf("expected default link threshold 10, got %d", rules.MaxDistinctLinks)
	}
}

func TestLoadRulesMergesOverridesPerField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "spam_keywords:\n  - krypto\nmax_distinct_links: 5\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules.SpamKeywords) != 1 || rules.SpamKeywords[0] != "krypto" {
		t.Fatalf("expected keyword override, got %v", rules.SpamKeywords)
	}
	if rules.MaxDistinctLinks != 5 {
		t.Fatalf("expected link threshold override, got %d", rules.MaxDistinctLinks)
	}
	if len(rules.SpamDomains) != len(DefaultRules().SpamDomains) {
		t.Fatalf("expected default domains kept, got %v", rules.SpamDomains)
	}
}

func TestLoadRulesFailsOnMissingOrInvalidFile(t *testing.T) {
	if _, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("spam_domains: {not: a list"), 0o600); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}
	if _, err := LoadRules(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}
