package classifier

import (
	"context"
	"encoding/json"
	"fmt"

	"autolead_backend/internal/ingest/domain"
	"autolead_backend/platform/logger"
)

// Completer is the single-turn completion surface of the model client.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Classifier runs the two-stage classification: deterministic pre-filter,
// then an AI call constrained to a fixed label set.
type Classifier struct {
	prefilter *Prefilter
	ai        Completer
	model     string
	log       *logger.Logger
}

// NewClassifier creates a classifier. The model name is stamped onto every
// AI-backed result for audit.
func NewClassifier(prefilter *Prefilter, ai Completer, model string, log *logger.Logger) *Classifier {
	return &Classifier{prefilter: prefilter, ai: ai, model: model, log: log}
}

// Prefiltered runs only the deterministic stage. The synchronous form
// path uses it so no AI call ever happens inside a request.
func (c *Classifier) Prefiltered(inquiry *domain.RawInquiry) (bool, string) {
	return c.prefilter.Check(inquiry)
}

type classificationPayload struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
}

// Classify never returns an error: AI failure degrades to uncertain with
// zero confidence so the inquiry reaches a human instead of being dropped.
func (c *Classifier) Classify(ctx context.Context, inquiry *domain.RawInquiry) domain.ClassificationResult {
	if rejected, reason := c.prefilter.Check(inquiry); rejected {
		return domain.ClassificationResult{
			InquiryID:  inquiry.ID,
			Label:      domain.CategoryNotRelevant,
			Confidence: 1,
			Rationale:  reason,
		}
	}

	raw, err := c.ai.Complete(ctx, "", classificationPrompt(inquiry))
	if err != nil {
		c.log.AIDegraded("classification", err)
		return c.degraded(inquiry, "AI classification failed: "+err.Error())
	}

	var payload classificationPayload
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		c.log.AIDegraded("classification", err)
		return c.degraded(inquiry, "AI returned malformed classification")
	}

	label := domain.Category(payload.Classification)
	if !domain.ValidCategory(label) || payload.Confidence < 0 || payload.Confidence > 1 {
		c.log.AIDegraded("classification", fmt.Errorf("invalid payload: label=%q confidence=%v", payload.Classification, payload.Confidence))
		return c.degraded(inquiry, "AI returned an unknown label or confidence")
	}

	return domain.ClassificationResult{
		InquiryID:  inquiry.ID,
		Label:      label,
		Confidence: payload.Confidence,
		Rationale:  payload.Reasoning,
		Model:      c.model,
	}
}

// degraded builds the fallback result, still stamped with the model that
// was attempted.
func (c *Classifier) degraded(inquiry *domain.RawInquiry, reason string) domain.ClassificationResult {
	result := domain.DegradedClassification(inquiry.ID, reason)
	result.Model = c.model
	return result
}
