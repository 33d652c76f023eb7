package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"autolead_backend/internal/ingest/domain"
	"autolead_backend/internal/ingest/transport"
	"autolead_backend/internal/tenant"
	"autolead_backend/platform/apperr"
	"autolead_backend/platform/htmltext"
)

// EmailAdapter normalizes relay-parsed inbound email. The relay is a
// trusted hop; there is no cryptographic authenticity check on this path,
// only the deterministic dedup key.
type EmailAdapter struct{}

// NewEmailAdapter creates an email adapter.
func NewEmailAdapter() *EmailAdapter {
	return &EmailAdapter{}
}

// Build converts a parsed inbound email into an inquiry envelope.
// Every email is persisted for audit regardless of classification, so the
// envelope must always be constructible from a syntactically sane payload.
func (a *EmailAdapter) Build(t *tenant.Tenant, req transport.InboundEmailRequest, arrivedAt time.Time) (*domain.RawInquiry, error) {
	senderName, senderEmail := parseSender(req.From)
	if senderEmail == "" {
		return nil, apperr.Validation("inbound email has no parseable sender address")
	}

	body := strings.TrimSpace(req.Text)
	if body == "" && req.HTML != "" {
		body = htmltext.ToText(req.HTML)
	}
	if body == "" {
		return nil, apperr.Validation("inbound email has no body")
	}

	return &domain.RawInquiry{
		TenantID:    t.ID,
		Source:      domain.SourceEmail,
		ExternalKey: messageID(req, arrivedAt),
		SenderName:  senderName,
		SenderEmail: senderEmail,
		Subject:     strings.TrimSpace(req.Subject),
		Body:        body,
		Metadata: map[string]any{
			"to":       req.To,
			"envelope": req.Envelope,
			"spf":      req.SPF,
			"html":     req.HTML,
		},
		State:      domain.StateTenantResolved,
		ReceivedAt: arrivedAt,
	}, nil
}

// messageID returns the relay-provided Message-ID when present, otherwise
// a deterministic hash of (from, to, subject, arrival hour). The hour
// bucket makes provider redelivery of the same message idempotent while
// still separating genuinely new messages with identical headers.
func messageID(req transport.InboundEmailRequest, arrivedAt time.Time) string {
	if id := headerMessageID(req.Headers); id != "" {
		return id
	}

	bucket := arrivedAt.UTC().Truncate(time.Hour).Format(time.RFC3339)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s", req.From, req.To, req.Subject, bucket)))
	return "derived-" + hex.EncodeToString(sum[:])
}

func headerMessageID(headers string) string {
	for _, line := range strings.Split(headers, "\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Message-ID") {
			continue
		}
		return strings.Trim(strings.TrimSpace(value), "<>")
	}
	return ""
}

// parseSender splits an RFC 5322 From value into display name and address.
// Malformed values fall back to treating the raw string as an address.
func parseSender(from string) (name, address string) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(from))
	if err != nil {
		raw := strings.TrimSpace(from)
		if strings.Contains(raw, "@") {
			return "", raw
		}
		return "", ""
	}
	return strings.TrimSpace(parsed.Name), strings.ToLower(parsed.Address)
}
