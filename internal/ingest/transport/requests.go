// Package transport defines the wire shapes of the public webhook
// endpoints and the admin API.
package transport

// FormSubmissionRequest is the JSON body of a website form submission.
type FormSubmissionRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Message         string `json:"message" validate:"required"`
	Phone           string `json:"phone"`
	VehicleInterest string `json:"vehicle_interest"`
	SourceURL       string `json:"source_url"`
}

// InboundEmailRequest is the form-encoded payload the email relay posts
// after parsing an inbound message (SendGrid Inbound Parse shape).
type InboundEmailRequest struct {
	To       string `form:"to"`
	From     string `form:"from"`
	Subject  string `form:"subject"`
	Text     string `form:"text"`
	HTML     string `form:"html"`
	Headers  string `form:"headers"`
	Envelope string `form:"envelope"`
	SPF      string `form:"SPF"`
}

// MetaWebhookPayload is the notification body Meta posts for lead ads.
// It only references leadgen ids; field values are fetched separately.
type MetaWebhookPayload struct {
	Object string      `json:"object"`
	Entry  []MetaEntry `json:"entry"`
}

// MetaEntry is one page's batch of changes in a webhook delivery.
type MetaEntry struct {
	ID      string       `json:"id"`
	Time    int64        `json:"time"`
	Changes []MetaChange `json:"changes"`
}

// MetaChange is a single changed field on a page.
type MetaChange struct {
	Field string          `json:"field"`
	Value MetaChangeValue `json:"value"`
}

// MetaChangeValue carries the leadgen reference.
type MetaChangeValue struct {
	LeadgenID   string `json:"leadgen_id"`
	PageID      string `json:"page_id"`
	FormID      string `json:"form_id"`
	AdID        string `json:"ad_id"`
	CreatedTime int64  `json:"created_time"`
}
