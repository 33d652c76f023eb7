package phone

import "testing"

func TestNormalizeE164DefaultsToNorwegianRegion(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"912 34 567", "+4791234567"},
		{"91234567", "+4791234567"},
		{"+47 912 34 567", "+4791234567"},
		{"0047 912 34 567", "+4791234567"},
	}
	for _, c := range cases {
		if got := NormalizeE164(c.in); got != c.want {
			t.Fatalf("NormalizeE164(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeE164FallsBackToTrimmedInput(t *testing.T) {
	if got := NormalizeE164("  ring meg  "); got != "ring meg" {
		t.Fatalf("expected trimmed input back, got %q", got)
	}
	if got := NormalizeE164("12345"); got != "12345" {
		t.Fatalf("expected invalid number kept verbatim, got %q", got)
	}
	if got := NormalizeE164("   "); got != "" {
		t.Fatalf("expected empty result for blank input, got %q", got)
	}
}

func TestIdentityKeyRejectsWhatNormalizeTolerates(t *testing.T) {
	key, ok := IdentityKey("912 34 567")
	if !ok || key != "+4791234567" {
		t.Fatalf("expected valid identity key, got %q %v", key, ok)
	}

	if _, ok := IdentityKey("ring meg"); ok {
		t.Fatal("expected no identity key for prose")
	}
	if _, ok := IdentityKey("12345"); ok {
		t.Fatal("expected no identity key for an invalid number")
	}
	if _, ok := IdentityKey(""); ok {
		t.Fatal("expected no identity key for empty input")
	}
}
