// Package adapter converts source-specific webhook payloads into the
// common RawInquiry shape and performs each source's authenticity checks.
package adapter

import (
	"autolead_backend/internal/ingest/domain"
	"autolead_backend/internal/ingest/transport"
	"autolead_backend/internal/tenant"
	"autolead_backend/platform/apperr"
	"autolead_backend/platform/phone"
	"autolead_backend/platform/validator"
)

// FormAdapter normalizes website form submissions. The endpoint is
// intentionally public per tenant, so there is no signature check; the
// rate limiter and validation are the only gatekeepers.
type FormAdapter struct {
	val *validator.Validator
}

// NewFormAdapter creates a form adapter.
func NewFormAdapter(val *validator.Validator) *FormAdapter {
	return &FormAdapter{val: val}
}

// Build validates the submission and produces the inquiry envelope plus a
// draft carrying the caller-provided structured fields. Validation reports
// every failing field, not just the first.
func (a *FormAdapter) Build(t *tenant.Tenant, req transport.FormSubmissionRequest) (*domain.RawInquiry, domain.LeadDraft, error) {
	if err := a.val.Struct(req); err != nil {
		return nil, domain.LeadDraft{}, apperr.Validation("invalid form submission").
			WithDetails(validator.FieldErrors(err))
	}

	normalizedPhone := ""
	if req.Phone != "" {
		normalizedPhone = phone.NormalizeE164(req.Phone)
	}

	inquiry := &domain.RawInquiry{
		TenantID:    t.ID,
		Source:      domain.SourceWebsite,
		SenderName:  req.Name,
		SenderEmail: req.Email,
		SenderPhone: normalizedPhone,
		Body:        req.Message,
		Metadata: map[string]any{
			"vehicle_interest": req.VehicleInterest,
			"source_url":       req.SourceURL,
		},
		State: domain.StateTenantResolved,
	}

	draft := domain.LeadDraft{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       normalizedPhone,
		Interest:    req.VehicleInterest,
		Urgency:     domain.UrgencyMedium,
		SourceLabel: string(domain.SourceWebsite),
	}

	return inquiry, draft, nil
}
