package adapter

import (
	"fmt"
	"strings"
	"time"

	"autolead_backend/internal/ingest/domain"
	"autolead_backend/internal/meta"
	"autolead_backend/internal/tenant"
	"autolead_backend/platform/phone"
)

// Meta delivers test submissions with this fixed leadgen id.
const testLeadgenID = "444444444444"

// SocialAdapter materializes lead ad submissions. The webhook itself only
// references a leadgen id; the caller fetches the field values from the
// Graph API before this adapter builds the envelope.
type SocialAdapter struct{}

// NewSocialAdapter creates a social adapter.
func NewSocialAdapter() *SocialAdapter {
	return &SocialAdapter{}
}

// Build converts a fetched lead ad submission into an inquiry envelope.
// Provider test submissions are flagged in metadata so the notifier can
// suppress outbound traffic while the lead itself is still recorded.
func (a *SocialAdapter) Build(t *tenant.Tenant, leadgenID, formID, adID string, lead *meta.Lead) *domain.RawInquiry {
	senderName := lead.Value("full_name", "name")
	senderEmail := strings.ToLower(lead.Value("email"))
	senderPhone := ""
	if raw := lead.Value("phone_number", "phone"); raw != "" {
		senderPhone = phone.NormalizeE164(raw)
	}

	receivedAt := time.Now()
	if parsed, err := time.Parse("2006-01-02T15:04:05-0700", lead.CreatedTime); err == nil {
		receivedAt = parsed
	}

	return &domain.RawInquiry{
		TenantID:    t.ID,
		Source:      domain.SourceSocial,
		ExternalKey: leadgenID,
		SenderName:  senderName,
		SenderEmail: senderEmail,
		SenderPhone: senderPhone,
		Body:        fieldSummary(lead),
		Metadata: map[string]any{
			"leadgen_id": leadgenID,
			"form_id":    formID,
			"ad_id":      adID,
			"page_id":    t.Channels.MetaPageID,
			"is_test":    isTestLead(leadgenID, lead),
		},
		State:      domain.StateTenantResolved,
		ReceivedAt: receivedAt,
	}
}

// fieldSummary renders every answered form question as one line so the
// classifier and extractor see the full submission.
func fieldSummary(lead *meta.Lead) string {
	var b strings.Builder
	for _, field := range lead.FieldData {
		if len(field.Values) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", field.Name, strings.Join(field.Values, ", "))
	}
	return strings.TrimSpace(b.String())
}

func isTestLead(leadgenID string, lead *meta.Lead) bool {
	if leadgenID == testLeadgenID {
		return true
	}
	for _, field := range lead.FieldData {
		for _, value := range field.Values {
			if strings.EqualFold(strings.TrimSpace(value), "test lead: dummy data for testing") {
				return true
			}
		}
	}
	return false
}
