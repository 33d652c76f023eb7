package transport

import "time"

// FormSubmissionResponse is returned synchronously to website forms.
// Status is "created" for a fresh lead and "updated" for a dedup match.
type FormSubmissionResponse struct {
	LeadID string `json:"lead_id"`
	Status string `json:"status"`
}

// AckResponse acknowledges a webhook whose processing continues async.
type AckResponse struct {
	Status string `json:"status"`
}

// InquiryResponse is the admin view of one stored inquiry.
type InquiryResponse struct {
	ID             string                  `json:"id"`
	TenantID       string                  `json:"tenant_id"`
	Source         string                  `json:"source"`
	SenderName     string                  `json:"sender_name"`
	SenderEmail    string                  `json:"sender_email"`
	SenderPhone    string                  `json:"sender_phone"`
	Subject        string                  `json:"subject"`
	Body           string                  `json:"body"`
	PipelineState  string                  `json:"pipeline_state"`
	StateReason    string                  `json:"state_reason,omitempty"`
	LeadID         *string                 `json:"lead_id,omitempty"`
	Classification *ClassificationResponse `json:"classification,omitempty"`
	ReceivedAt     time.Time               `json:"received_at"`
}

// ClassificationResponse is the admin view of a classification result.
type ClassificationResponse struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Rationale  string    `json:"rationale"`
	Model      string    `json:"model,omitempty"`
	Degraded   bool      `json:"degraded"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReprocessResponse confirms a reprocess task was enqueued.
type ReprocessResponse struct {
	InquiryID string `json:"inquiry_id"`
	Enqueued  bool   `json:"enqueued"`
}
