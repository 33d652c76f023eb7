// Package domain holds the core types of the ingestion pipeline: the
// normalized inquiry envelope, classification results, lead drafts and the
// canonical lead record.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"autolead_backend/platform/phone"
)

// Source identifies where an inbound event came from.
type Source string

const (
	SourceWebsite Source = "website"
	SourceEmail   Source = "email"
	SourceSocial  Source = "social"
)

// RawInquiry is the immutable, source-tagged envelope an adapter produces
// from one inbound event. The metadata blob keeps the source payload
// verbatim for audit and debugging.
type RawInquiry struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Source      Source
	ExternalKey string
	SenderName  string
	SenderEmail string
	SenderPhone string
	Subject     string
	Body        string
	Metadata    map[string]any
	State       PipelineState
	StateReason string
	LeadID      *uuid.UUID
	ReceivedAt  time.Time
}

// IsTest reports whether the provider marked this submission as a test.
func (r *RawInquiry) IsTest() bool {
	v, ok := r.Metadata["is_test"].(bool)
	return ok && v
}

// Identity is the contact identity used for dedup matching.
type Identity struct {
	// Email is the lowercased sender address, preferred when present.
	Email string
	// Phone is the E.164 number, used as fallback when no email exists.
	Phone string
}

// ContactIdentity derives the dedup identity from sender hints. The second
// return is false when neither a usable email nor a valid phone exists, in
// which case dedup is skipped and a fresh lead is always created.
func (r *RawInquiry) ContactIdentity() (Identity, bool) {
	email := strings.ToLower(strings.TrimSpace(r.SenderEmail))
	if email != "" {
		return Identity{Email: email}, true
	}
	if e164, ok := phone.IdentityKey(r.SenderPhone); ok {
		return Identity{Phone: e164}, true
	}
	return Identity{}, false
}

// Key returns the identity as one string for lock keying.
func (i Identity) Key() string {
	if i.Email != "" {
		return "email:" + i.Email
	}
	return "phone:" + i.Phone
}

// DedupWindow returns how far back a matching lead counts as a continuation
// of the same inquiry. Form resubmissions are near-immediate double-clicks;
// email and social contacts continue a relationship for a week.
func DedupWindow(source Source) time.Duration {
	if source == SourceWebsite {
		return 5 * time.Minute
	}
	return 7 * 24 * time.Hour
}

// Category is the classification outcome for an inquiry.
type Category string

const (
	CategoryGenuine     Category = "genuine_inquiry"
	CategoryNotRelevant Category = "not_relevant"
	CategoryUncertain   Category = "uncertain"
)

// ValidCategory reports whether the label is one the pipeline understands.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryGenuine, CategoryNotRelevant, CategoryUncertain:
		return true
	}
	return false
}

// ClassificationResult is the outcome of classifying one RawInquiry.
// Recomputation (reprocessing) stores a new result that supersedes the
// prior one; results themselves are immutable.
type ClassificationResult struct {
	ID         uuid.UUID
	InquiryID  uuid.UUID
	Label      Category
	Confidence float64
	Rationale  string
	// Model records which model produced the verdict, so superseding
	// reprocess results stay auditable. Empty for deterministic
	// pre-filter rejections.
	Model     string
	Degraded  bool
	CreatedAt time.Time
}

// DegradedClassification is the documented fallback for a failed or
// malformed classification: uncertain with zero confidence, routed to a
// human instead of being dropped.
func DegradedClassification(inquiryID uuid.UUID, reason string) ClassificationResult {
	return ClassificationResult{
		InquiryID:  inquiryID,
		Label:      CategoryUncertain,
		Confidence: 0,
		Rationale:  reason,
		Degraded:   true,
	}
}

// Urgency expresses how quickly a customer expects contact.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// NormalizeUrgency maps arbitrary model output to a known urgency,
// defaulting to medium.
func NormalizeUrgency(raw string) Urgency {
	switch Urgency(strings.ToLower(strings.TrimSpace(raw))) {
	case UrgencyHigh:
		return UrgencyHigh
	case UrgencyLow:
		return UrgencyLow
	default:
		return UrgencyMedium
	}
}

// PriorityScore maps urgency to the lead's numeric priority.
func PriorityScore(u Urgency) int {
	switch u {
	case UrgencyHigh:
		return 70
	case UrgencyLow:
		return 50
	default:
		return 60
	}
}

// LeadDraft is the structured extraction from an inquiry body. It is never
// persisted on its own; it feeds lead creation or update.
type LeadDraft struct {
	Name        string
	Email       string
	Phone       string
	Interest    string
	Urgency     Urgency
	SourceLabel string
}

// MinimalDraft builds the fallback draft straight from sender hints, used
// when extraction fails. Interest stays empty and urgency defaults.
func MinimalDraft(r *RawInquiry) LeadDraft {
	return LeadDraft{
		Name:        r.SenderName,
		Email:       r.SenderEmail,
		Phone:       r.SenderPhone,
		Urgency:     UrgencyMedium,
		SourceLabel: string(r.Source),
	}
}

// LeadStatus is the lead lifecycle state. This pipeline only ever sets
// "new" on create and "contacted" after the auto-response goes out.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusWon       LeadStatus = "won"
	LeadStatusLost      LeadStatus = "lost"
)

// Lead is the canonical customer inquiry record.
type Lead struct {
	ID                   uuid.UUID
	TenantID             uuid.UUID
	Name                 string
	Email                string
	Phone                string
	Interest             string
	Urgency              Urgency
	Priority             int
	Status               LeadStatus
	Source               Source
	IsTest               bool
	Metadata             map[string]any
	LastContactAt        time.Time
	FirstResponseSeconds *int
	CreatedAt            time.Time
}

// Direction of a conversation entry. This pipeline writes inbound entries;
// the notifier appends the outbound auto-response.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Author kinds for conversation entries.
type Author string

const (
	AuthorCustomer Author = "customer"
	AuthorAI       Author = "ai"
	AuthorHuman    Author = "human"
)

// ConversationEntry is one message in a lead's history. Append-only.
type ConversationEntry struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Direction Direction
	Author    Author
	Channel   Source
	Subject   string
	Body      string
	CreatedAt time.Time
}
