package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"autolead_backend/internal/ingest/adapter"
	"autolead_backend/internal/ingest/classifier"
	"autolead_backend/internal/ingest/domain"
	"autolead_backend/internal/ingest/repository"
	"autolead_backend/internal/ingest/transport"
	"autolead_backend/internal/meta"
	"autolead_backend/internal/tenant"
	"autolead_backend/platform/apperr"
	"autolead_backend/platform/events"
	"autolead_backend/platform/logger"
	"autolead_backend/platform/validator"
)

// ---- fakes ----

type fakeTenantStore struct {
	tenant *tenant.Tenant
}

func (f *fakeTenantStore) ByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	if f.tenant == nil || f.tenant.ID != id {
		return nil, apperr.NotFound("tenant not found")
	}
	return f.tenant, nil
}

func (f *fakeTenantStore) ByForwardingAddress(ctx context.Context, address string) (*tenant.Tenant, error) {
	if f.tenant == nil || f.tenant.Channels.ForwardingAddress != address {
		return nil, apperr.NotFound("tenant not found")
	}
	return f.tenant, nil
}

func (f *fakeTenantStore) ByPageID(ctx context.Context, pageID string) (*tenant.Tenant, error) {
	if f.tenant == nil || f.tenant.Channels.MetaPageID != pageID {
		return nil, apperr.NotFound("tenant not found")
	}
	return f.tenant, nil
}

type stateChange struct {
	state  domain.PipelineState
	reason string
}

type fakeStore struct {
	inquiries       map[uuid.UUID]*domain.RawInquiry
	existingByKey   *domain.RawInquiry
	classifications []*domain.ClassificationResult
	states          map[uuid.UUID][]stateChange
	commits         int
	commitPersisted []bool
	commitMerged    bool
	commitErr       error
	lastDraft       domain.LeadDraft
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		inquiries: map[uuid.UUID]*domain.RawInquiry{},
		states:    map[uuid.UUID][]stateChange{},
	}
}

func (f *fakeStore) SaveInquiry(ctx context.Context, inquiry *domain.RawInquiry) (*domain.RawInquiry, bool, error) {
	if f.existingByKey != nil && inquiry.ExternalKey != "" && inquiry.ExternalKey == f.existingByKey.ExternalKey {
		return f.existingByKey, false, nil
	}
	if inquiry.ID == uuid.Nil {
		inquiry.ID = uuid.New()
	}
	f.inquiries[inquiry.ID] = inquiry
	return inquiry, true, nil
}

func (f *fakeStore) InquiryByID(ctx context.Context, id uuid.UUID) (*domain.RawInquiry, error) {
	inquiry, ok := f.inquiries[id]
	if !ok {
		return nil, apperr.NotFound("inquiry not found")
	}
	return inquiry, nil
}

func (f *fakeStore) ListInquiries(ctx context.Context, tenantID uuid.UUID, state domain.PipelineState, limit int) ([]*domain.RawInquiry, error) {
	var out []*domain.RawInquiry
	for _, inquiry := range f.inquiries {
		if inquiry.TenantID == tenantID {
			out = append(out, inquiry)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateState(ctx context.Context, id uuid.UUID, state domain.PipelineState, reason string) error {
	f.states[id] = append(f.states[id], stateChange{state, reason})
	if inquiry, ok := f.inquiries[id]; ok {
		inquiry.State = state
		inquiry.StateReason = reason
	}
	return nil
}

func (f *fakeStore) SaveClassification(ctx context.Context, result *domain.ClassificationResult) error {
	f.classifications = append(f.classifications, result)
	return nil
}

func (f *fakeStore) LatestClassification(ctx context.Context, inquiryID uuid.UUID) (*domain.ClassificationResult, error) {
	for i := len(f.classifications) - 1; i >= 0; i-- {
		if f.classifications[i].InquiryID == inquiryID {
			return f.classifications[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) LeadByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	return nil, apperr.NotFound("lead not found")
}

func (f *fakeStore) Commit(ctx context.Context, inquiry *domain.RawInquiry, draft domain.LeadDraft, persistInquiry bool) (*repository.CommitResult, error) {
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	f.commits++
	f.commitPersisted = append(f.commitPersisted, persistInquiry)
	f.lastDraft = draft

	lead := &domain.Lead{
		ID:       uuid.New(),
		TenantID: inquiry.TenantID,
		Name:     draft.Name,
		Email:    draft.Email,
		Source:   inquiry.Source,
		IsTest:   inquiry.IsTest(),
	}
	inquiry.State = domain.StateCommitted
	inquiry.LeadID = &lead.ID
	if persistInquiry {
		f.inquiries[inquiry.ID] = inquiry
	}
	return &repository.CommitResult{Lead: lead, Merged: f.commitMerged}, nil
}

type fakeQueue struct {
	process   []uuid.UUID
	reprocess []uuid.UUID
	notify    []uuid.UUID
	err       error
}

func (f *fakeQueue) EnqueueProcess(ctx context.Context, inquiryID uuid.UUID) error {
	f.process = append(f.process, inquiryID)
	return f.err
}

func (f *fakeQueue) EnqueueReprocess(ctx context.Context, inquiryID uuid.UUID) error {
	f.reprocess = append(f.reprocess, inquiryID)
	return f.err
}

func (f *fakeQueue) EnqueueNotify(ctx context.Context, leadID, inquiryID uuid.UUID) error {
	f.notify = append(f.notify, leadID)
	return f.err
}

type fakeGraph struct {
	lead *meta.Lead
	err  error
}

func (f *fakeGraph) FetchLead(ctx context.Context, leadgenID, pageToken string) (*meta.Lead, error) {
	return f.lead, f.err
}

type fakeAI struct {
	response string
	err      error
	calls    int
}

func (f *fakeAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.calls++
	return f.response, f.err
}

type fakeMetaConfig struct {
	appSecret   string
	verifyToken string
}

func (f fakeMetaConfig) GetMetaAppSecret() string    { return f.appSecret }
func (f fakeMetaConfig) GetMetaVerifyToken() string  { return f.verifyToken }
func (f fakeMetaConfig) GetMetaGraphVersion() string { return "v19.0" }

// recordingHandler captures slog records so tests can assert on what the
// service logged.
type recordingHandler struct {
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) find(message string) (slog.Record, bool) {
	for _, r := range h.records {
		if r.Message == message {
			return r, true
		}
	}
	return slog.Record{}, false
}

func attrValue(r slog.Record, key string) string {
	var out string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			out = a.Value.String()
			return false
		}
		return true
	})
	return out
}

// ---- harness ----

type harness struct {
	service *Service
	store   *fakeStore
	queue   *fakeQueue
	ai      *fakeAI
	tenant  *tenant.Tenant
}

func newHarness(t *testing.T, graph *fakeGraph) *harness {
	t.Helper()
	return newHarnessLogged(t, graph, logger.New("development"))
}

func newHarnessLogged(t *testing.T, graph *fakeGraph, log *logger.Logger) *harness {
	t.Helper()

	owner := &tenant.Tenant{
		ID:   uuid.New(),
		Name: "Oslo Bil AS",
		Channels: tenant.ChannelSettings{
			FormEnabled:       true,
			EmailEnabled:      true,
			SocialEnabled:     true,
			ForwardingAddress: "leads@oslobil.example.no",
			MetaPageID:        "page-1",
			MetaPageToken:     "page-token",
		},
	}

	store := newFakeStore()
	queue := &fakeQueue{}
	ai := &fakeAI{response: `{"classification":"genuine_inquiry","confidence":0.9,"reasoning":"availability question"}`}

	svc := NewService(
		tenant.NewResolver(&fakeTenantStore{tenant: owner}),
		adapter.NewFormAdapter(validator.New()),
		adapter.NewEmailAdapter(),
		adapter.NewSocialAdapter(),
		classifier.NewClassifier(classifier.NewPrefilter(classifier.DefaultRules()), ai, "test-model", log),
		classifier.NewExtractor(ai, log),
		store,
		queue,
		events.NewInMemoryBus(log),
		graph,
		fakeMetaConfig{appSecret: "app-secret", verifyToken: "verify-token"},
		log,
	)

	return &harness{service: svc, store: store, queue: queue, ai: ai, tenant: owner}
}

func validForm() transport.FormSubmissionRequest {
	return transport.FormSubmissionRequest{
		Name:            "Ola Nordmann",
		Email:           "ola@nordmann.no",
		Message:         "Er bilen fortsatt tilgjengelig?",
		VehicleInterest: "VW Golf",
	}
}

// ---- form path ----

func TestSubmitFormCommitsSynchronouslyAndRequestsNotification(t *testing.T) {
	h := newHarness(t, &fakeGraph{})

	resp, err := h.service.SubmitForm(context.Background(), h.tenant.ID, validForm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != StatusCreated {
		t.Fatalf("expected created, got %q", resp.Status)
	}
	if resp.LeadID == "" {
		t.Fatal("expected the lead id in the synchronous response")
	}
	if h.store.commits != 1 || !h.store.commitPersisted[0] {
		t.Fatal("expected one commit that persists the inquiry in the same transaction")
	}
	if len(h.queue.notify) != 1 {
		t.Fatalf("expected one notify request, got %d", len(h.queue.notify))
	}
	if h.ai.calls != 0 {
		t.Fatalf("expected no AI call on the synchronous path, got %d", h.ai.calls)
	}
}

func TestSubmitFormReportsUpdatedOnDedupMerge(t *testing.T) {
	h := newHarness(t, &fakeGraph{})
	h.store.commitMerged = true

	resp, err := h.service.SubmitForm(context.Background(), h.tenant.ID, validForm())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != StatusUpdated {
		t.Fatalf("expected updated, got %q", resp.Status)
	}
}

func TestSubmitFormRejectsSpamWithoutCommitting(t *testing.T) {
	h := newHarness(t, &fakeGraph{})

	req := validForm()
	req.Message = "click here to opt out of our newsletter"
	resp, err := h.service.SubmitForm(context.Background(), h.tenant.ID, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != StatusRejected || resp.LeadID != "" {
		t.Fatalf("expected lead-less rejection, got %+v", resp)
	}
	if h.store.commits != 0 {
		t.Fatal("expected no commit for rejected spam")
	}
	if len(h.queue.notify) != 0 {
		t.Fatal("expected no notification for rejected spam")
	}

	// The rejection is persisted for audit.
	var archived bool
	for _, inquiry := range h.store.inquiries {
		if inquiry.State == domain.StateArchivedSpam {
			archived = true
		}
	}
	if !archived {
		t.Fatal("expected the spam submission stored as archived_spam")
	}
}

func TestSubmitFormFailsForUnknownTenant(t *testing.T) {
	h := newHarness(t, &fakeGraph{})

	_, err := h.service.SubmitForm(context.Background(), uuid.New(), validForm())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

// ---- email path ----

func TestIngestEmailStoresAndEnqueues(t *testing.T) {
	h := newHarness(t, &fakeGraph{})

	err := h.service.IngestEmail(context.Background(), transport.InboundEmailRequest{
		To:      "leads@oslobil.example.no",
		From:    "Kari Nordmann <kari@nordmann.no>",
		Subject: "Golf",
		Text:    "Hei, har dere flere bilder?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.queue.process) != 1 {
		t.Fatalf("expected one process task, got %d", len(h.queue.process))
	}
}

func TestIngestEmailAcksRedeliveryWithoutReprocessing(t *testing.T) {
	h := newHarness(t, &fakeGraph{})
	h.store.existingByKey = &domain.RawInquiry{
		ID:          uuid.New(),
		ExternalKey: "abc-123@mail.nordmann.no",
		State:       domain.StateNotified,
	}

	err := h.service.IngestEmail(context.Background(), transport.InboundEmailRequest{
		To:      "leads@oslobil.example.no",
		From:    "kari@nordmann.no",
		Text:    "Hei",
		Headers: "Message-ID: <abc-123@mail.nordmann.no>",
	})
	if err != nil {
		t.Fatalf("expected redelivery to ack cleanly, got %v", err)
	}
	if len(h.queue.process) != 0 {
		t.Fatal("expected no task for a redelivered message")
	}
}

func TestIngestEmailReenqueuesRedeliveredNonTerminalInquiry(t *testing.T) {
	h := newHarness(t, &fakeGraph{})
	stranded := &domain.RawInquiry{
		ID:          uuid.New(),
		ExternalKey: "abc-123@mail.nordmann.no",
		State:       domain.StateTenantResolved,
	}
	h.store.existingByKey = stranded

	// The relay redelivers exactly when the first attempt failed after the
	// inquiry row was written, so the stored inquiry must get another task.
	err := h.service.IngestEmail(context.Background(), transport.InboundEmailRequest{
		To:      "leads@oslobil.example.no",
		From:    "kari@nordmann.no",
		Text:    "Hei",
		Headers: "Message-ID: <abc-123@mail.nordmann.no>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.queue.process) != 1 || h.queue.process[0] != stranded.ID {
		t.Fatalf("expected the stranded inquiry re-enqueued, got %v", h.queue.process)
	}
}

func TestIngestEmailRejectsUnknownForwardingAddress(t *testing.T) {
	h := newHarness(t, &fakeGraph{})

	err := h.service.IngestEmail(context.Background(), transport.InboundEmailRequest{
		To:   "someone@else.example",
		From: "kari@nordmann.no",
		Text: "Hei",
	})
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

// ---- social path ----

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func metaDelivery() []byte {
	return []byte(`{
		"object": "page",
		"entry": [{
			"id": "page-1",
			"changes": [{
				"field": "leadgen",
				"value": {"leadgen_id": "987", "form_id": "form-1", "page_id": "page-1"}
			}]
		}]
	}`)
}

func TestVerifySocialComparesTokenConstantTime(t *testing.T) {
	h := newHarness(t, &fakeGraph{})

	challenge, err := h.service.VerifySocial("subscribe", "verify-token", "challenge-42", "203.0.113.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if challenge != "challenge-42" {
		t.Fatalf("expected the challenge echoed, got %q", challenge)
	}

	if _, err := h.service.VerifySocial("subscribe", "wrong", "c", "203.0.113.9"); apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized for wrong token, got %v", err)
	}
	if _, err := h.service.VerifySocial("unsubscribe", "verify-token", "c", "203.0.113.9"); apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized for wrong mode, got %v", err)
	}
}

func TestIngestSocialRejectsInvalidSignature(t *testing.T) {
	h := newHarness(t, &fakeGraph{})

	body := metaDelivery()
	err := h.service.IngestSocial(context.Background(), body, signBody(body, "wrong-secret"), "203.0.113.9")
	if apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(h.queue.process) != 0 {
		t.Fatal("expected nothing enqueued for an unsigned delivery")
	}
}

func TestIngestSocialFetchesLeadAndEnqueues(t *testing.T) {
	graph := &fakeGraph{lead: &meta.Lead{
		ID: "987",
		FieldData: []meta.Field{
			{Name: "full_name", Values: []string{"Ola Nordmann"}},
			{Name: "email", Values: []string{"ola@nordmann.no"}},
		},
	}}
	h := newHarness(t, graph)

	body := metaDelivery()
	err := h.service.IngestSocial(context.Background(), body, signBody(body, "app-secret"), "203.0.113.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.queue.process) != 1 {
		t.Fatalf("expected one process task, got %d", len(h.queue.process))
	}
}

func TestIngestSocialIgnoresNonPageObjects(t *testing.T) {
	h := newHarness(t, &fakeGraph{})

	body := []byte(`{"object":"user","entry":[]}`)
	if err := h.service.IngestSocial(context.Background(), body, signBody(body, "app-secret"), "203.0.113.9"); err != nil {
		t.Fatalf("expected non-page objects to be acked, got %v", err)
	}
}

func TestIngestSocialReenqueuesRedeliveredNonTerminalInquiry(t *testing.T) {
	graph := &fakeGraph{lead: &meta.Lead{
		ID:        "987",
		FieldData: []meta.Field{{Name: "email", Values: []string{"ola@nordmann.no"}}},
	}}
	h := newHarness(t, graph)
	stranded := &domain.RawInquiry{
		ID:          uuid.New(),
		ExternalKey: "987",
		State:       domain.StateTenantResolved,
	}
	h.store.existingByKey = stranded

	body := metaDelivery()
	if err := h.service.IngestSocial(context.Background(), body, signBody(body, "app-secret"), "203.0.113.9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.queue.process) != 1 || h.queue.process[0] != stranded.ID {
		t.Fatalf("expected the stranded inquiry re-enqueued, got %v", h.queue.process)
	}
}

func TestIngestSocialLogsSecurityEventForInvalidSignature(t *testing.T) {
	captured := &recordingHandler{}
	h := newHarnessLogged(t, &fakeGraph{}, &logger.Logger{Logger: slog.New(captured)})

	body := metaDelivery()
	err := h.service.IngestSocial(context.Background(), body, signBody(body, "wrong-secret"), "198.51.100.7")
	if apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	record, ok := captured.find("security_event")
	if !ok {
		t.Fatal("expected a security event for the rejected signature")
	}
	if got := attrValue(record, "event"); got != "invalid_signature" {
		t.Fatalf("unexpected event %q", got)
	}
	if got := attrValue(record, "client_ip"); got != "198.51.100.7" {
		t.Fatalf("expected the client ip recorded, got %q", got)
	}
	if got := attrValue(record, "source"); got != string(domain.SourceSocial) {
		t.Fatalf("expected the social source recorded, got %q", got)
	}
}

func TestVerifySocialLogsSecurityEventForTokenMismatch(t *testing.T) {
	captured := &recordingHandler{}
	h := newHarnessLogged(t, &fakeGraph{}, &logger.Logger{Logger: slog.New(captured)})

	if _, err := h.service.VerifySocial("subscribe", "wrong", "c", "198.51.100.7"); apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	record, ok := captured.find("security_event")
	if !ok {
		t.Fatal("expected a security event for the rejected verify token")
	}
	if got := attrValue(record, "event"); got != "verify_token_mismatch" {
		t.Fatalf("unexpected event %q", got)
	}
	if got := attrValue(record, "client_ip"); got != "198.51.100.7" {
		t.Fatalf("expected the client ip recorded, got %q", got)
	}
}

func TestIngestSocialPropagatesGraphFailureForRedelivery(t *testing.T) {
	h := newHarness(t, &fakeGraph{err: apperr.Unavailable("graph api throttled the request")})

	body := metaDelivery()
	err := h.service.IngestSocial(context.Background(), body, signBody(body, "app-secret"), "203.0.113.9")
	if apperr.GetKind(err) != apperr.KindUnavailable {
		t.Fatalf("expected the graph error to fail the delivery, got %v", err)
	}
}

// ---- async pipeline ----

func storedEmailInquiry(h *harness) *domain.RawInquiry {
	inquiry := &domain.RawInquiry{
		ID:          uuid.New(),
		TenantID:    h.tenant.ID,
		Source:      domain.SourceEmail,
		SenderName:  "Kari Nordmann",
		SenderEmail: "kari@nordmann.no",
		Subject:     "Golf",
		Body:        "Hei, er bilen ledig for prøvekjøring?",
		State:       domain.StateTenantResolved,
	}
	h.store.inquiries[inquiry.ID] = inquiry
	return inquiry
}

func TestProcessGenuineInquiryExtractsCommitsAndRequestsNotification(t *testing.T) {
	h := newHarness(t, &fakeGraph{})
	inquiry := storedEmailInquiry(h)

	if err := h.service.Process(context.Background(), inquiry.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(h.store.classifications) != 1 {
		t.Fatalf("expected one stored classification, got %d", len(h.store.classifications))
	}
	if h.store.classifications[0].Label != domain.CategoryGenuine {
		t.Fatalf("unexpected label %q", h.store.classifications[0].Label)
	}
	if h.store.commits != 1 {
		t.Fatalf("expected one commit, got %d", h.store.commits)
	}
	if h.store.commitPersisted[0] {
		t.Fatal("expected the async path to update, not re-insert, the inquiry")
	}
	if len(h.queue.notify) != 1 {
		t.Fatalf("expected one notify request, got %d", len(h.queue.notify))
	}
	// Classification and extraction are two model calls.
	if h.ai.calls != 2 {
		t.Fatalf("expected two AI calls, got %d", h.ai.calls)
	}
}

func TestProcessArchivesNotRelevantWithoutLead(t *testing.T) {
	h := newHarness(t, &fakeGraph{})
	h.ai.response = `{"classification":"not_relevant","confidence":0.95,"reasoning":"vendor outreach"}`
	inquiry := storedEmailInquiry(h)

	if err := h.service.Process(context.Background(), inquiry.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inquiry.State != domain.StateArchivedSpam {
		t.Fatalf("expected archived_spam, got %q", inquiry.State)
	}
	if h.store.commits != 0 {
		t.Fatal("expected no lead for not_relevant")
	}
	if len(h.queue.notify) != 0 {
		t.Fatal("expected no notification for not_relevant")
	}
}

func TestProcessDegradedClassificationCommitsMinimalDraft(t *testing.T) {
	h := newHarness(t, &fakeGraph{})
	h.ai.err = errors.New("model unavailable")
	inquiry := storedEmailInquiry(h)

	if err := h.service.Process(context.Background(), inquiry.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.store.classifications) != 1 || !h.store.classifications[0].Degraded {
		t.Fatal("expected a persisted degraded classification")
	}
	if h.store.classifications[0].Label != domain.CategoryUncertain {
		t.Fatalf("expected uncertain label, got %q", h.store.classifications[0].Label)
	}
	if h.store.commits != 1 {
		t.Fatal("expected the lead committed from sender hints")
	}
	if h.store.lastDraft != domain.MinimalDraft(inquiry) {
		t.Fatalf("expected minimal draft, got %+v", h.store.lastDraft)
	}
	// Uncertain inquiries skip extraction entirely.
	if h.ai.calls != 1 {
		t.Fatalf("expected a single AI attempt, got %d", h.ai.calls)
	}
}

func TestProcessSkipsTerminalInquiries(t *testing.T) {
	h := newHarness(t, &fakeGraph{})
	inquiry := storedEmailInquiry(h)
	inquiry.State = domain.StateNotified

	if err := h.service.Process(context.Background(), inquiry.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ai.calls != 0 || h.store.commits != 0 {
		t.Fatal("expected a terminal inquiry to be left alone")
	}
}

func TestProcessCommittedInquiryOnlyRetriesNotification(t *testing.T) {
	h := newHarness(t, &fakeGraph{})
	inquiry := storedEmailInquiry(h)
	leadID := uuid.New()
	inquiry.State = domain.StateCommitted
	inquiry.LeadID = &leadID

	if err := h.service.Process(context.Background(), inquiry.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ai.calls != 0 || h.store.commits != 0 {
		t.Fatal("expected no reclassification after commit")
	}
	if len(h.queue.notify) != 1 || h.queue.notify[0] != leadID {
		t.Fatalf("expected the notify retry for the existing lead, got %v", h.queue.notify)
	}
}

func TestProcessSuppressesNotificationForTestLeads(t *testing.T) {
	h := newHarness(t, &fakeGraph{})
	inquiry := storedEmailInquiry(h)
	inquiry.Source = domain.SourceSocial
	inquiry.Metadata = map[string]any{"is_test": true}

	if err := h.service.Process(context.Background(), inquiry.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.store.commits != 1 {
		t.Fatal("expected the test lead to be committed")
	}
	if len(h.queue.notify) != 0 {
		t.Fatal("expected no notification for a provider test lead")
	}

	changes := h.store.states[inquiry.ID]
	last := changes[len(changes)-1]
	if last.state != domain.StateCommitted || last.reason == "" {
		t.Fatalf("expected committed state with suppression reason, got %+v", last)
	}
}

func TestProcessConflictPropagatesForRetry(t *testing.T) {
	h := newHarness(t, &fakeGraph{})
	h.store.commitErr = apperr.Conflict("concurrent commit")
	inquiry := storedEmailInquiry(h)

	err := h.service.Process(context.Background(), inquiry.ID, false)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected the conflict surfaced to the task queue, got %v", err)
	}
}

func TestReprocessRequiresExistingInquiry(t *testing.T) {
	h := newHarness(t, &fakeGraph{})

	if err := h.service.Reprocess(context.Background(), uuid.New()); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	inquiry := storedEmailInquiry(h)
	if err := h.service.Reprocess(context.Background(), inquiry.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.queue.reprocess) != 1 {
		t.Fatalf("expected one reprocess task, got %d", len(h.queue.reprocess))
	}
}

func TestReprocessSupersedesThroughNewClassification(t *testing.T) {
	h := newHarness(t, &fakeGraph{})
	inquiry := storedEmailInquiry(h)
	inquiry.State = domain.StateArchivedSpam

	if err := h.service.Process(context.Background(), inquiry.ID, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.store.classifications) != 1 {
		t.Fatal("expected the reprocess run to store a new classification")
	}
	if h.store.commits != 1 {
		t.Fatal("expected the genuine verdict to commit a lead this time")
	}
}
