package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"autolead_backend/internal/events"
	"autolead_backend/internal/ingest/domain"
	"autolead_backend/internal/tenant"
	"autolead_backend/platform/logger"
)

const defaultSubject = "Takk for din henvendelse"

// TenantStore resolves the tenant a lead belongs to.
type TenantStore interface {
	ByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
}

// Store is the persistence surface the notifier needs.
type Store interface {
	LeadByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	InquiryContext(ctx context.Context, inquiryID uuid.UUID) (subject, body string, receivedAt time.Time, err error)
	MarkContacted(ctx context.Context, leadID uuid.UUID, firstResponseSeconds int) error
	AppendEntry(ctx context.Context, entry *domain.ConversationEntry) error
	MarkNotified(ctx context.Context, inquiryID uuid.UUID, state domain.PipelineState, reason string) error
}

// Service sends the customer auto-response for a committed lead and records
// the outcome. It runs from the task queue, after the webhook has long been
// acked.
type Service struct {
	repo      Store
	tenants   TenantStore
	responder *Responder
	sender    Sender
	bus       events.Bus
	log       *logger.Logger
}

// NewService creates the notify service. A nil sender disables delivery;
// leads are still bookkept so the pipeline reaches its final state.
func NewService(repo Store, tenants TenantStore, responder *Responder, sender Sender, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		tenants:   tenants,
		responder: responder,
		sender:    sender,
		bus:       bus,
		log:       log,
	}
}

// Dispatch delivers the auto-response for one committed lead. A delivery
// failure is returned so the task queue retries; everything before delivery
// that cannot succeed on retry finishes the inquiry without sending.
func (s *Service) Dispatch(ctx context.Context, leadID, inquiryID uuid.UUID) error {
	lead, err := s.repo.LeadByID(ctx, leadID)
	if err != nil {
		return err
	}
	log := s.log.WithTenantID(lead.TenantID.String())

	if lead.IsTest {
		return s.skip(ctx, inquiryID, "test submission, notification suppressed", log, lead)
	}
	if lead.Email == "" {
		return s.skip(ctx, inquiryID, "no customer email, auto-response skipped", log, lead)
	}
	if s.sender == nil {
		return s.skip(ctx, inquiryID, "email delivery disabled", log, lead)
	}

	owner, err := s.tenants.ByID(ctx, lead.TenantID)
	if err != nil {
		return err
	}

	subject, body, receivedAt, err := s.repo.InquiryContext(ctx, inquiryID)
	if err != nil {
		return err
	}

	response, degraded := s.responder.Generate(ctx, lead.Name, lead.Interest, body, owner.Name)

	if err := s.sender.Send(ctx, lead.Email, replySubject(subject), response); err != nil {
		log.Error("auto-response delivery failed", "leadId", leadID.String(), "error", err)
		return err
	}

	if err := s.repo.AppendEntry(ctx, &domain.ConversationEntry{
		LeadID:    lead.ID,
		Direction: domain.DirectionOutbound,
		Author:    domain.AuthorAI,
		Channel:   domain.SourceEmail,
		Subject:   replySubject(subject),
		Body:      response,
	}); err != nil {
		return err
	}

	firstResponse := int(time.Since(receivedAt).Seconds())
	if firstResponse < 0 {
		firstResponse = 0
	}
	if err := s.repo.MarkContacted(ctx, lead.ID, firstResponse); err != nil {
		return err
	}

	if err := s.repo.MarkNotified(ctx, inquiryID, domain.StateNotified, "auto-response sent"); err != nil {
		return err
	}
	log.PipelineOutcome(inquiryID.String(), string(lead.Source), string(domain.StateNotified), lead.ID.String())

	s.bus.Publish(ctx, events.AutoResponseSent{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		TenantID:  lead.TenantID,
		Degraded:  degraded,
	})
	return nil
}

// skip finishes the inquiry without sending anything.
func (s *Service) skip(ctx context.Context, inquiryID uuid.UUID, reason string, log *logger.Logger, lead *domain.Lead) error {
	if err := s.repo.MarkNotified(ctx, inquiryID, domain.StateNotified, reason); err != nil {
		return err
	}
	log.PipelineOutcome(inquiryID.String(), string(lead.Source), string(domain.StateNotified), lead.ID.String())
	return nil
}

func replySubject(inbound string) string {
	if inbound == "" {
		return defaultSubject
	}
	return "Re: " + inbound
}
