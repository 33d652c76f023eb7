// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"github.com/google/uuid"

	"autolead_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Ingest Domain Events
// =============================================================================

// LeadCommitted is published when the pipeline commits a canonical lead,
// whether freshly created or merged into an existing one.
type LeadCommitted struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	TenantID  uuid.UUID `json:"tenantId"`
	InquiryID uuid.UUID `json:"inquiryId"`
	Source    string    `json:"source"`
	Merged    bool      `json:"merged"`
	IsTest    bool      `json:"isTest"`
}

func (e LeadCommitted) EventName() string { return "ingest.lead.committed" }

// InquiryArchived is published when an inbound event terminates without a
// lead (spam or not relevant). Kept for audit subscribers.
type InquiryArchived struct {
	BaseEvent
	InquiryID uuid.UUID `json:"inquiryId"`
	TenantID  uuid.UUID `json:"tenantId"`
	Source    string    `json:"source"`
	State     string    `json:"state"`
	Reason    string    `json:"reason"`
}

func (e InquiryArchived) EventName() string { return "ingest.inquiry.archived" }

// =============================================================================
// Notify Domain Events
// =============================================================================

// AutoResponseSent is published after the customer auto-response email has
// been delivered for a committed lead.
type AutoResponseSent struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	Degraded bool      `json:"degraded"`
}

func (e AutoResponseSent) EventName() string { return "notify.auto_response.sent" }
