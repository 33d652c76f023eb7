package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"autolead_backend/internal/ingest/domain"
	"autolead_backend/platform/apperr"
)

const leadColumns = `id, tenant_id, name, email, phone, interest, urgency, priority,
	status, source, is_test, metadata, last_contact_at, first_response_seconds, created_at`

// Dedup candidate lookups. Both are tenant-scoped and bounded by the
// source's window cutoff on the lead's creation time.
const (
	dedupByEmailQuery = `
		SELECT ` + leadColumns + ` FROM leads
		WHERE tenant_id = $1 AND lower(email) = $2 AND created_at > $3
		ORDER BY created_at DESC
		LIMIT 1`

	dedupByPhoneQuery = `
		SELECT ` + leadColumns + ` FROM leads
		WHERE tenant_id = $1 AND phone = $2 AND created_at > $3
		ORDER BY created_at DESC
		LIMIT 1`
)

// CommitResult reports what the committer did.
type CommitResult struct {
	Lead *domain.Lead
	// Merged is true when the inquiry continued an existing lead instead
	// of creating a new one.
	Merged bool
}

// Commit upserts the canonical lead for an inquiry and appends the inbound
// conversation entry, atomically. The dedup read-then-write is serialized
// per (tenant, contact identity) with a transaction-scoped advisory lock so
// two concurrent events for the same contact cannot both create a lead.
//
// When persistInquiry is true the inquiry row itself is written inside the
// same transaction (the synchronous form path); otherwise the existing row
// is linked to the lead.
func (r *Repository) Commit(ctx context.Context, inquiry *domain.RawInquiry, draft domain.LeadDraft, persistInquiry bool) (*CommitResult, error) {
	identity, hasIdentity := inquiry.ContactIdentity()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to begin commit transaction", err)
	}
	defer tx.Rollback(ctx)

	if hasIdentity {
		lockKey := inquiry.TenantID.String() + "|" + identity.Key()
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to acquire identity lock", err)
		}
	}

	var lead *domain.Lead
	merged := false
	if hasIdentity {
		lead, err = r.dedupCandidate(ctx, tx, inquiry.TenantID, identity, domain.DedupWindow(inquiry.Source))
		if err != nil {
			return nil, err
		}
	}

	if lead != nil {
		merged = true
		if err := r.mergeLead(ctx, tx, lead, draft); err != nil {
			return nil, err
		}
	} else {
		lead, err = r.insertLead(ctx, tx, inquiry, draft)
		if err != nil {
			return nil, err
		}
	}

	entry := domain.ConversationEntry{
		ID:        uuid.New(),
		LeadID:    lead.ID,
		Direction: domain.DirectionInbound,
		Author:    domain.AuthorCustomer,
		Channel:   inquiry.Source,
		Subject:   inquiry.Subject,
		Body:      inquiry.Body,
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO conversation_entries (id, lead_id, direction, author, channel, subject, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.LeadID, entry.Direction, entry.Author,
		entry.Channel, entry.Subject, entry.Body); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to append conversation entry", err)
	}

	if persistInquiry {
		if inquiry.ID == uuid.Nil {
			inquiry.ID = uuid.New()
		}
		if inquiry.ReceivedAt.IsZero() {
			inquiry.ReceivedAt = time.Now()
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO raw_inquiries
				(id, tenant_id, source, external_key, sender_name, sender_email,
				 sender_phone, subject, body, metadata, pipeline_state, lead_id, received_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			inquiry.ID, inquiry.TenantID, inquiry.Source, inquiry.ExternalKey,
			inquiry.SenderName, inquiry.SenderEmail, inquiry.SenderPhone,
			inquiry.Subject, inquiry.Body, inquiry.Metadata,
			domain.StateCommitted, lead.ID, inquiry.ReceivedAt); err != nil {
			return nil, wrapCommitErr(err)
		}
	} else {
		if _, err := tx.Exec(ctx, `
			UPDATE raw_inquiries
			SET lead_id = $2, pipeline_state = $3, updated_at = now()
			WHERE id = $1`,
			inquiry.ID, lead.ID, domain.StateCommitted); err != nil {
			return nil, wrapCommitErr(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapCommitErr(err)
	}

	inquiry.State = domain.StateCommitted
	inquiry.LeadID = &lead.ID
	return &CommitResult{Lead: lead, Merged: merged}, nil
}

// dedupCandidate finds the most recent lead for the contact identity inside
// the source's window. Matching is on lowercased email first, E.164 phone
// as fallback; candidates never cross tenants.
func (r *Repository) dedupCandidate(ctx context.Context, tx pgx.Tx, tenantID uuid.UUID, identity domain.Identity, window time.Duration) (*domain.Lead, error) {
	cutoff := time.Now().Add(-window)

	var row pgx.Row
	if identity.Email != "" {
		row = tx.QueryRow(ctx, dedupByEmailQuery, tenantID, identity.Email, cutoff)
	} else {
		row = tx.QueryRow(ctx, dedupByPhoneQuery, tenantID, identity.Phone, cutoff)
	}

	lead, err := scanLead(row)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	return lead, err
}

// mergeLead updates the matched lead's mutable fields. Only non-empty new
// values overwrite, so a sparse resubmission never erases known data.
func (r *Repository) mergeLead(ctx context.Context, tx pgx.Tx, lead *domain.Lead, draft domain.LeadDraft) error {
	applyNonEmpty(&lead.Name, draft.Name)
	applyNonEmpty(&lead.Email, draft.Email)
	applyNonEmpty(&lead.Phone, draft.Phone)
	applyNonEmpty(&lead.Interest, draft.Interest)
	lead.LastContactAt = time.Now()

	_, err := tx.Exec(ctx, `
		UPDATE leads
		SET name = $2, email = $3, phone = $4, interest = $5,
		    last_contact_at = $6, updated_at = now()
		WHERE id = $1`,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Interest, lead.LastContactAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update lead", err)
	}
	return nil
}

func (r *Repository) insertLead(ctx context.Context, tx pgx.Tx, inquiry *domain.RawInquiry, draft domain.LeadDraft) (*domain.Lead, error) {
	now := time.Now()
	lead := &domain.Lead{
		ID:            uuid.New(),
		TenantID:      inquiry.TenantID,
		Name:          draft.Name,
		Email:         draft.Email,
		Phone:         draft.Phone,
		Interest:      draft.Interest,
		Urgency:       draft.Urgency,
		Priority:      domain.PriorityScore(draft.Urgency),
		Status:        domain.LeadStatusNew,
		Source:        inquiry.Source,
		IsTest:        inquiry.IsTest(),
		Metadata:      inquiry.Metadata,
		LastContactAt: now,
		CreatedAt:     now,
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO leads
			(id, tenant_id, name, email, phone, interest, urgency, priority,
			 status, source, is_test, metadata, last_contact_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		lead.ID, lead.TenantID, lead.Name, lead.Email, lead.Phone,
		lead.Interest, lead.Urgency, lead.Priority, lead.Status,
		lead.Source, lead.IsTest, lead.Metadata, lead.LastContactAt, lead.CreatedAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to insert lead", err)
	}
	return lead, nil
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var lead domain.Lead
	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.Name, &lead.Email, &lead.Phone,
		&lead.Interest, &lead.Urgency, &lead.Priority, &lead.Status,
		&lead.Source, &lead.IsTest, &lead.Metadata, &lead.LastContactAt,
		&lead.FirstResponseSeconds, &lead.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("lead not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	return &lead, nil
}

func applyNonEmpty(target *string, value string) {
	if value != "" {
		*target = value
	}
}

// wrapCommitErr classifies a commit failure. Unique violations mean a
// concurrent commit for the same external key won the race; callers retry
// and the replay path then resolves to the winner's lead.
func wrapCommitErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Wrap(apperr.KindConflict, "concurrent commit for the same inquiry", err)
	}
	return apperr.Wrap(apperr.KindInternal, "failed to commit lead", err)
}
