// Package service orchestrates the ingestion pipeline: adapter output in,
// committed lead (or audited rejection) out.
package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"autolead_backend/internal/events"
	"autolead_backend/internal/ingest/adapter"
	"autolead_backend/internal/ingest/classifier"
	"autolead_backend/internal/ingest/domain"
	"autolead_backend/internal/ingest/repository"
	"autolead_backend/internal/ingest/transport"
	"autolead_backend/internal/meta"
	"autolead_backend/internal/tenant"
	"autolead_backend/platform/apperr"
	"autolead_backend/platform/config"
	"autolead_backend/platform/logger"
)

// Store is the persistence surface the orchestrator needs.
// Satisfied by *repository.Repository.
type Store interface {
	SaveInquiry(ctx context.Context, inquiry *domain.RawInquiry) (*domain.RawInquiry, bool, error)
	InquiryByID(ctx context.Context, id uuid.UUID) (*domain.RawInquiry, error)
	ListInquiries(ctx context.Context, tenantID uuid.UUID, state domain.PipelineState, limit int) ([]*domain.RawInquiry, error)
	UpdateState(ctx context.Context, id uuid.UUID, state domain.PipelineState, reason string) error
	SaveClassification(ctx context.Context, result *domain.ClassificationResult) error
	LatestClassification(ctx context.Context, inquiryID uuid.UUID) (*domain.ClassificationResult, error)
	LeadByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	Commit(ctx context.Context, inquiry *domain.RawInquiry, draft domain.LeadDraft, persistInquiry bool) (*repository.CommitResult, error)
}

// Queue enqueues the async pipeline tasks. Satisfied by *pipeline.Client.
type Queue interface {
	EnqueueProcess(ctx context.Context, inquiryID uuid.UUID) error
	EnqueueReprocess(ctx context.Context, inquiryID uuid.UUID) error
	EnqueueNotify(ctx context.Context, leadID, inquiryID uuid.UUID) error
}

// LeadFetcher retrieves lead ad field data. Satisfied by *meta.Client.
type LeadFetcher interface {
	FetchLead(ctx context.Context, leadgenID, pageToken string) (*meta.Lead, error)
}

// Service sequences the pipeline per inbound event.
type Service struct {
	resolver  *tenant.Resolver
	forms     *adapter.FormAdapter
	emails    *adapter.EmailAdapter
	social    *adapter.SocialAdapter
	class     *classifier.Classifier
	extractor *classifier.Extractor
	repo      Store
	queue     Queue
	bus       events.Bus
	graph     LeadFetcher
	metaCfg   config.MetaConfig
	log       *logger.Logger
}

// NewService wires the orchestrator.
func NewService(
	resolver *tenant.Resolver,
	forms *adapter.FormAdapter,
	emails *adapter.EmailAdapter,
	social *adapter.SocialAdapter,
	class *classifier.Classifier,
	extractor *classifier.Extractor,
	repo Store,
	queue Queue,
	bus events.Bus,
	graph LeadFetcher,
	metaCfg config.MetaConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		resolver:  resolver,
		forms:     forms,
		emails:    emails,
		social:    social,
		class:     class,
		extractor: extractor,
		repo:      repo,
		queue:     queue,
		bus:       bus,
		graph:     graph,
		metaCfg:   metaCfg,
		log:       log,
	}
}

// Form submission statuses returned to the caller.
const (
	StatusCreated  = "created"
	StatusUpdated  = "updated"
	StatusRejected = "rejected"
	StatusAccepted = "accepted"
)

// SubmitForm handles a website form synchronously: validate, pre-filter,
// dedup and commit in one request so the caller gets the lead id back.
// The AI-free pre-filter keeps the synchronous path fast; classification
// of form traffic is the deterministic filter only.
func (s *Service) SubmitForm(ctx context.Context, tenantID uuid.UUID, req transport.FormSubmissionRequest) (*transport.FormSubmissionResponse, error) {
	t, err := s.resolver.ResolveForm(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	inquiry, draft, err := s.forms.Build(t, req)
	if err != nil {
		return nil, err
	}

	if rejected, reason := s.class.Prefiltered(inquiry); rejected {
		inquiry.State = domain.StateArchivedSpam
		inquiry.StateReason = reason
		if _, _, err := s.repo.SaveInquiry(ctx, inquiry); err != nil {
			return nil, err
		}
		s.log.WithContext(ctx).PipelineOutcome(inquiry.ID.String(), string(inquiry.Source), string(domain.StateArchivedSpam), "")
		return &transport.FormSubmissionResponse{Status: StatusRejected}, nil
	}

	result, err := s.repo.Commit(ctx, inquiry, draft, true)
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, inquiry, result)

	status := StatusCreated
	if result.Merged {
		status = StatusUpdated
	}
	return &transport.FormSubmissionResponse{
		LeadID: result.Lead.ID.String(),
		Status: status,
	}, nil
}

// IngestEmail durably records a relayed email and acknowledges; the rest
// of the pipeline runs on the worker.
func (s *Service) IngestEmail(ctx context.Context, req transport.InboundEmailRequest) error {
	t, err := s.resolver.ResolveEmail(ctx, req.To)
	if err != nil {
		return err
	}

	inquiry, err := s.emails.Build(t, req, time.Now())
	if err != nil {
		return err
	}

	stored, created, err := s.repo.SaveInquiry(ctx, inquiry)
	if err != nil {
		return err
	}

	return s.continueAsync(ctx, stored, created)
}

// continueAsync hands a stored inquiry to the worker. A redelivered
// message whose stored inquiry is already terminal is acked as a no-op,
// but a non-terminal one is re-enqueued: the provider redelivers exactly
// because an earlier enqueue (or the process) failed after SaveInquiry,
// and Process is idempotent for every state it can find.
func (s *Service) continueAsync(ctx context.Context, stored *domain.RawInquiry, created bool) error {
	if !created && stored.State.Terminal() {
		return nil
	}
	return s.queue.EnqueueProcess(ctx, stored.ID)
}

// VerifySocial answers the Meta webhook verification handshake.
func (s *Service) VerifySocial(mode, token, challenge, clientIP string) (string, error) {
	expected := s.metaCfg.GetMetaVerifyToken()
	if mode != "subscribe" || expected == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		s.log.SecurityEvent("verify_token_mismatch", string(domain.SourceSocial), clientIP,
			"webhook verification rejected")
		return "", apperr.Unauthorized("verify token mismatch")
	}
	return challenge, nil
}

// IngestSocial validates the webhook signature, materializes each leadgen
// entry from the Graph API and records the inquiries. Entries are fetched
// concurrently; one bad entry does not block the others, but its error
// fails the delivery so the provider redelivers.
func (s *Service) IngestSocial(ctx context.Context, rawBody []byte, signatureHeader, clientIP string) error {
	if !adapter.ValidateSignature(rawBody, signatureHeader, s.metaCfg.GetMetaAppSecret()) {
		s.log.SecurityEvent("invalid_signature", string(domain.SourceSocial), clientIP,
			"X-Hub-Signature-256 rejected")
		return apperr.Unauthorized("invalid webhook signature")
	}

	var payload transport.MetaWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return apperr.BadRequest("malformed webhook payload")
	}
	if payload.Object != "page" {
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "leadgen" || change.Value.LeadgenID == "" {
				continue
			}
			change := change
			pageID := change.Value.PageID
			if pageID == "" {
				pageID = entry.ID
			}
			group.Go(func() error {
				return s.ingestLeadgen(groupCtx, pageID, change.Value)
			})
		}
	}

	return group.Wait()
}

func (s *Service) ingestLeadgen(ctx context.Context, pageID string, value transport.MetaChangeValue) error {
	t, err := s.resolver.ResolveSocial(ctx, pageID)
	if err != nil {
		return err
	}

	fetched, err := s.graph.FetchLead(ctx, value.LeadgenID, t.Channels.MetaPageToken)
	if err != nil {
		return err
	}

	inquiry := s.social.Build(t, value.LeadgenID, value.FormID, value.AdID, fetched)

	stored, created, err := s.repo.SaveInquiry(ctx, inquiry)
	if err != nil {
		return err
	}

	return s.continueAsync(ctx, stored, created)
}

// Process runs the async stages for a stored inquiry: classify, extract,
// commit, request notification. With reprocess set it re-enters at the
// classification stage, superseding the stored result.
func (s *Service) Process(ctx context.Context, inquiryID uuid.UUID, reprocess bool) error {
	inquiry, err := s.repo.InquiryByID(ctx, inquiryID)
	if err != nil {
		return err
	}

	log := s.log.WithTenantID(inquiry.TenantID.String())

	if !reprocess {
		switch inquiry.State {
		case domain.StateNotified, domain.StateRejected, domain.StateArchivedSpam:
			return nil
		case domain.StateCommitted:
			// Crash between commit and notify: the lead exists, only the
			// notification request is outstanding.
			return s.requestNotify(ctx, inquiry)
		}
	}

	result := s.class.Classify(ctx, inquiry)
	if err := s.repo.SaveClassification(ctx, &result); err != nil {
		return err
	}
	if err := s.repo.UpdateState(ctx, inquiry.ID, domain.StateClassified, result.Rationale); err != nil {
		return err
	}

	if result.Label == domain.CategoryNotRelevant {
		if err := s.repo.UpdateState(ctx, inquiry.ID, domain.StateArchivedSpam, result.Rationale); err != nil {
			return err
		}
		log.PipelineOutcome(inquiry.ID.String(), string(inquiry.Source), string(domain.StateArchivedSpam), "")
		s.bus.Publish(ctx, events.InquiryArchived{
			BaseEvent: events.NewBaseEvent(),
			InquiryID: inquiry.ID,
			TenantID:  inquiry.TenantID,
			Source:    string(inquiry.Source),
			State:     string(domain.StateArchivedSpam),
			Reason:    result.Rationale,
		})
		return nil
	}

	// Extraction only runs for confirmed genuine inquiries; uncertain ones
	// are committed from sender hints and left for human review.
	draft := domain.MinimalDraft(inquiry)
	if result.Label == domain.CategoryGenuine {
		tenantName := ""
		if t, err := s.resolver.ResolveForm(ctx, inquiry.TenantID); err == nil {
			tenantName = t.Name
		}
		var degraded bool
		draft, degraded = s.extractor.Extract(ctx, inquiry, tenantName)
		if !degraded {
			if err := s.repo.UpdateState(ctx, inquiry.ID, domain.StateExtracted, ""); err != nil {
				return err
			}
		}
	}

	commitResult, err := s.repo.Commit(ctx, inquiry, draft, false)
	if err != nil {
		// Conflict means a concurrent commit won; asynq retries and the
		// next attempt resolves idempotently.
		return err
	}

	s.afterCommit(ctx, inquiry, commitResult)
	return nil
}

// Reprocess enqueues re-classification of a stored inquiry.
func (s *Service) Reprocess(ctx context.Context, inquiryID uuid.UUID) error {
	if _, err := s.repo.InquiryByID(ctx, inquiryID); err != nil {
		return err
	}
	return s.queue.EnqueueReprocess(ctx, inquiryID)
}

// InquiryView loads an inquiry with its current classification for the
// admin surface.
func (s *Service) InquiryView(ctx context.Context, inquiryID uuid.UUID) (*domain.RawInquiry, *domain.ClassificationResult, error) {
	inquiry, err := s.repo.InquiryByID(ctx, inquiryID)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.repo.LatestClassification(ctx, inquiryID)
	if err != nil {
		return nil, nil, err
	}
	return inquiry, result, nil
}

// ListInquiries lists a tenant's inquiries for the admin surface.
func (s *Service) ListInquiries(ctx context.Context, tenantID uuid.UUID, state domain.PipelineState, limit int) ([]*domain.RawInquiry, error) {
	return s.repo.ListInquiries(ctx, tenantID, state, limit)
}

// afterCommit publishes the committed event and requests notification.
// Provider test submissions keep their lead but never notify.
func (s *Service) afterCommit(ctx context.Context, inquiry *domain.RawInquiry, result *repository.CommitResult) {
	log := s.log.WithTenantID(inquiry.TenantID.String())
	log.PipelineOutcome(inquiry.ID.String(), string(inquiry.Source), string(domain.StateCommitted), result.Lead.ID.String())

	s.bus.Publish(ctx, events.LeadCommitted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    result.Lead.ID,
		TenantID:  inquiry.TenantID,
		InquiryID: inquiry.ID,
		Source:    string(inquiry.Source),
		Merged:    result.Merged,
		IsTest:    result.Lead.IsTest,
	})

	if result.Lead.IsTest {
		if err := s.repo.UpdateState(ctx, inquiry.ID, domain.StateCommitted, "test submission, notification suppressed"); err != nil {
			log.DatabaseError("mark test inquiry", err)
		}
		return
	}

	if err := s.requestNotify(ctx, inquiry); err != nil {
		// Fire-and-forget per contract: the lead stands, the failure is
		// logged for operators.
		log.Error("failed to request notification",
			"inquiry_id", inquiry.ID.String(),
			"error", err.Error(),
		)
	}
}

func (s *Service) requestNotify(ctx context.Context, inquiry *domain.RawInquiry) error {
	if inquiry.LeadID == nil {
		return apperr.Internal("inquiry committed without lead reference")
	}
	return s.queue.EnqueueNotify(ctx, *inquiry.LeadID, inquiry.ID)
}
