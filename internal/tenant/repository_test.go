package tenant

import "testing"

func TestCanonicalAddressStripsDisplayName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Oslo Bil Leads <Leads@OsloBil.example.no>", "leads@oslobil.example.no"},
		{"\"Leads, Oslo\" <leads@oslobil.example.no>", "leads@oslobil.example.no"},
		{"  LEADS@oslobil.example.no  ", "leads@oslobil.example.no"},
		{"not an address", "not an address"},
	}
	for _, c := range cases {
		if got := canonicalAddress(c.in); got != c.want {
			t.Fatalf("canonicalAddress(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStripPlusTagReducesToBaseAddress(t *testing.T) {
	base, ok := stripPlusTag("leads+golf@oslobil.example.no")
	if !ok || base != "leads@oslobil.example.no" {
		t.Fatalf("unexpected base %q %v", base, ok)
	}

	if _, ok := stripPlusTag("leads@oslobil.example.no"); ok {
		t.Fatal("expected no rewrite without a plus tag")
	}
	if _, ok := stripPlusTag("no-at-sign"); ok {
		t.Fatal("expected no rewrite without a host part")
	}
}
