package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"autolead_backend/internal/ingest/domain"
)

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// stripCodeFence tolerates models wrapping their JSON in a markdown code
// block despite being told not to.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	if match := codeFencePattern.FindStringSubmatch(trimmed); match != nil {
		return match[1]
	}
	return trimmed
}

func inquiryContent(inquiry *domain.RawInquiry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s\n", inquiry.Source)
	fmt.Fprintf(&b, "From: %s <%s>\n", inquiry.SenderName, inquiry.SenderEmail)
	if inquiry.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", inquiry.Subject)
	}
	fmt.Fprintf(&b, "\nMessage:\n%s", inquiry.Body)
	return b.String()
}

func classificationPrompt(inquiry *domain.RawInquiry) string {
	return fmt.Sprintf(`Analyze this inbound message to a car dealership and classify it into one of these categories:

1. genuine_inquiry: The sender is interested in buying, test driving, or learning more about a vehicle
2. not_relevant: Marketing, scams, vendor mail, or automated messages unrelated to car sales
3. uncertain: Cannot determine with confidence (needs human review)

Message to analyze:
%s

Respond ONLY with valid JSON in this exact format (no markdown, no extra text):
{
  "classification": "genuine_inquiry|not_relevant|uncertain",
  "confidence": 0.85,
  "reasoning": "Brief explanation of why this message was classified this way"
}`, inquiryContent(inquiry))
}

func extractionPrompt(inquiry *domain.RawInquiry, tenantName string) string {
	return fmt.Sprintf(`Extract lead information from this sales inquiry sent to the dealership %q.

Message:
%s

Extract the following information and respond ONLY with valid JSON (no markdown, no extra text):
{
  "customer_name": "Full name if mentioned, otherwise null",
  "email": "Email address (use the sender address if not mentioned in the body)",
  "phone": "Phone number if mentioned, otherwise null",
  "interest": "Which vehicle model(s) they are interested in",
  "urgency": "high|medium|low (based on language like 'urgent', 'asap', 'when available')",
  "source": "Short label for where this inquiry originated, inferred from content"
}

If a field cannot be determined, use null. Never guess values.`, tenantName, inquiryContent(inquiry))
}
