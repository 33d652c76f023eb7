package classifier

import (
	"context"
	"encoding/json"

	"autolead_backend/internal/ingest/domain"
	"autolead_backend/platform/logger"
	"autolead_backend/platform/phone"
)

// Extractor derives a structured LeadDraft from the free-text body of a
// genuine inquiry.
type Extractor struct {
	ai  Completer
	log *logger.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(ai Completer, log *logger.Logger) *Extractor {
	return &Extractor{ai: ai, log: log}
}

type extractionPayload struct {
	CustomerName *string `json:"customer_name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Interest     *string `json:"interest"`
	Urgency      *string `json:"urgency"`
	Source       *string `json:"source"`
}

// Extract returns the draft and whether the result is degraded. Failure
// falls back to a minimal draft from sender hints; it never blocks commit.
func (e *Extractor) Extract(ctx context.Context, inquiry *domain.RawInquiry, tenantName string) (domain.LeadDraft, bool) {
	raw, err := e.ai.Complete(ctx, "", extractionPrompt(inquiry, tenantName))
	if err != nil {
		e.log.AIDegraded("extraction", err)
		return domain.MinimalDraft(inquiry), true
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		e.log.AIDegraded("extraction", err)
		return domain.MinimalDraft(inquiry), true
	}

	draft := domain.LeadDraft{
		Name:        orFallback(payload.CustomerName, inquiry.SenderName),
		Email:       orFallback(payload.Email, inquiry.SenderEmail),
		Phone:       inquiry.SenderPhone,
		Interest:    orFallback(payload.Interest, ""),
		Urgency:     domain.UrgencyMedium,
		SourceLabel: orFallback(payload.Source, string(inquiry.Source)),
	}
	if payload.Phone != nil && *payload.Phone != "" {
		draft.Phone = phone.NormalizeE164(*payload.Phone)
	}
	if payload.Urgency != nil {
		draft.Urgency = domain.NormalizeUrgency(*payload.Urgency)
	}

	return draft, false
}

func orFallback(value *string, fallback string) string {
	if value != nil && *value != "" {
		return *value
	}
	return fallback
}
