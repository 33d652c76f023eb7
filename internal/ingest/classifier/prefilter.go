package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"autolead_backend/internal/ingest/domain"
	"autolead_backend/platform/htmltext"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"')]+`)

// Prefilter rejects obvious spam before any AI call is made.
type Prefilter struct {
	rules Rules
}

// NewPrefilter creates a pre-filter with the given rules.
func NewPrefilter(rules Rules) *Prefilter {
	return &Prefilter{rules: rules}
}

// Check returns true with a reason when the inquiry should be rejected as
// not relevant without invoking the model. The sender-domain blacklist
// only applies to the email path; website forms and lead ads do not carry
// untrusted sender domains in the same way.
func (p *Prefilter) Check(inquiry *domain.RawInquiry) (bool, string) {
	if inquiry.Source == domain.SourceEmail {
		if domainName := senderDomain(inquiry.SenderEmail); domainName != "" {
			for _, blocked := range p.rules.SpamDomains {
				if strings.EqualFold(domainName, blocked) {
					return true, fmt.Sprintf("sender domain %q is blacklisted", domainName)
				}
			}
		}
	}

	subject := strings.ToLower(inquiry.Subject)
	body := strings.ToLower(inquiry.Body)
	for _, keyword := range p.rules.SpamKeywords {
		if subject != "" && strings.Contains(subject, keyword) {
			return true, fmt.Sprintf("subject contains spam keyword %q", keyword)
		}
		if strings.Contains(body, keyword) {
			return true, fmt.Sprintf("body contains spam keyword %q", keyword)
		}
	}

	if links := p.countLinks(inquiry); links >= p.rules.MaxDistinctLinks {
		return true, fmt.Sprintf("contains %d distinct links (likely newsletter or marketing)", links)
	}

	return false, ""
}

// countLinks counts distinct hyperlinks. HTML bodies (kept verbatim in
// metadata by the email adapter) are parsed; plain text falls back to URL
// pattern matching.
func (p *Prefilter) countLinks(inquiry *domain.RawInquiry) int {
	if html, ok := inquiry.Metadata["html"].(string); ok && html != "" {
		return htmltext.CountDistinctLinks(html)
	}

	seen := map[string]bool{}
	for _, match := range urlPattern.FindAllString(inquiry.Body, -1) {
		seen[match] = true
	}
	return len(seen)
}

func senderDomain(email string) string {
	_, domainName, ok := strings.Cut(email, "@")
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(domainName))
}
