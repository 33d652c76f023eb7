package adapter

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"autolead_backend/internal/ingest/domain"
	"autolead_backend/internal/ingest/transport"
	"autolead_backend/internal/tenant"
	"autolead_backend/platform/apperr"
)

func emailTenant() *tenant.Tenant {
	return &tenant.Tenant{
		ID:   uuid.New(),
		Name: "Oslo Bil AS",
		Channels: tenant.ChannelSettings{
			EmailEnabled:      true,
			ForwardingAddress: "leads@oslobil.example.no",
		},
	}
}

func TestEmailBuildUsesHeaderMessageIDAsExternalKey(t *testing.T) {
	req := transport.InboundEmailRequest{
		To:      "leads@oslobil.example.no",
		From:    "Ola Nordmann <ola@nordmann.no>",
		Subject: "Interessert i Golf",
		Text:    "Hei, er bilen fortsatt tilgjengelig?",
		Headers: "Received: by relay\nMessage-ID: <abc-123@mail.nordmann.no>\nDate: whenever",
	}

	inquiry, err := NewEmailAdapter().Build(emailTenant(), req, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inquiry.ExternalKey != "abc-123@mail.nordmann.no" {
		t.Fatalf("expected header message id as external key, got %q", inquiry.ExternalKey)
	}
	if inquiry.SenderName != "Ola Nordmann" || inquiry.SenderEmail != "ola@nordmann.no" {
		t.Fatalf("unexpected sender %q <%q>", inquiry.SenderName, inquiry.SenderEmail)
	}
	if inquiry.Source != domain.SourceEmail {
		t.Fatalf("expected email source, got %q", inquiry.Source)
	}
	if inquiry.State != domain.StateTenantResolved {
		t.Fatalf("expected tenant_resolved state, got %q", inquiry.State)
	}
}

func TestEmailBuildDerivesStableKeyWithinTheSameHour(t *testing.T) {
	req := transport.InboundEmailRequest{
		To:      "leads@oslobil.example.no",
		From:    "ola@nordmann.no",
		Subject: "Golf",
		Text:    "Hei",
	}
	adapter := NewEmailAdapter()

	base := time.Date(2026, 3, 14, 10, 5, 0, 0, time.UTC)
	first, err := adapter.Build(emailTenant(), req, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := adapter.Build(emailTenant(), req, base.Add(40*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(first.ExternalKey, "derived-") {
		t.Fatalf("expected derived key, got %q", first.ExternalKey)
	}
	if first.ExternalKey != second.ExternalKey {
		t.Fatal("expected identical derived keys within the same hour bucket")
	}

	third, err := adapter.Build(emailTenant(), req, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ExternalKey == third.ExternalKey {
		t.Fatal("expected a different derived key in a later hour bucket")
	}
}

func TestEmailBuildFallsBackToHTMLBody(t *testing.T) {
	req := transport.InboundEmailRequest{
		To:   "leads@oslobil.example.no",
		From: "kari@nordmann.no",
		HTML: "<html><body><p>Hei!</p><p>Kan jeg komme på visning?</p></body></html>",
	}

	inquiry, err := NewEmailAdapter().Build(emailTenant(), req, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(inquiry.Body, "Kan jeg komme på visning?") {
		t.Fatalf("expected HTML-derived body, got %q", inquiry.Body)
	}
	if html, _ := inquiry.Metadata["html"].(string); html == "" {
		t.Fatal("expected raw HTML to be kept in metadata")
	}
}

func TestEmailBuildRejectsEmptyBodyAndUnparseableSender(t *testing.T) {
	adapter := NewEmailAdapter()

	_, err := adapter.Build(emailTenant(), transport.InboundEmailRequest{
		From: "ola@nordmann.no",
	}, time.Now())
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for empty body, got %v", err)
	}

	_, err = adapter.Build(emailTenant(), transport.InboundEmailRequest{
		From: "no address here",
		Text: "Hei",
	}, time.Now())
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for missing sender, got %v", err)
	}
}

func TestEmailBuildAcceptsBareAddressSender(t *testing.T) {
	req := transport.InboundEmailRequest{
		From: "Ola Nordmann ola@nordmann.no",
		Text: "Hei",
	}

	inquiry, err := NewEmailAdapter().Build(emailTenant(), req, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inquiry.SenderEmail != "Ola Nordmann ola@nordmann.no" {
		t.Fatalf("expected raw fallback address, got %q", inquiry.SenderEmail)
	}
}
