package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"autolead_backend/internal/ingest/domain"
	"autolead_backend/platform/apperr"
)

// Repository covers the lead bookkeeping that follows a notification.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LeadByID loads one lead.
func (r *Repository) LeadByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, email, phone, interest, urgency, priority,
			status, source, is_test, metadata, last_contact_at, first_response_seconds, created_at
		FROM leads WHERE id = $1`, id).Scan(
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

// MarkContacted records the auto-response on the lead. The first response
// time is set once and never overwritten by later notifications.
func (r *Repository) MarkContacted(ctx context.Context, leadID uuid.UUID, firstResponseSeconds int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = $2,
			first_response_seconds = COALESCE(first_response_seconds, $3),
			last_contact_at = now(),
			updated_at = now()
		WHERE id = $1`,
		leadID, domain.LeadStatusContacted, firstResponseSeconds)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to mark lead contacted", err)
	}
	return nil
}

// AppendEntry records one outbound message in the lead's history.
func (r *Repository) AppendEntry(ctx context.Context, entry *domain.ConversationEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversation_entries (id, lead_id, direction, author, channel, subject, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.LeadID, entry.Direction, entry.Author,
		entry.Channel, entry.Subject, entry.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to append conversation entry", err)
	}
	return nil
}

// InquiryContext returns what the notifier needs from the source inquiry.
func (r *Repository) InquiryContext(ctx context.Context, inquiryID uuid.UUID) (subject, body string, receivedAt time.Time, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT subject, body, received_at FROM raw_inquiries WHERE id = $1`,
		inquiryID).Scan(&subject, &body, &receivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", time.Time{}, apperr.NotFound("inquiry not found")
	}
	if err != nil {
		return "", "", time.Time{}, apperr.Wrap(apperr.KindInternal, "failed to load inquiry", err)
	}
	return subject, body, receivedAt, nil
}

// MarkNotified moves the source inquiry to its final state.
func (r *Repository) MarkNotified(ctx context.Context, inquiryID uuid.UUID, state domain.PipelineState, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE raw_inquiries
		SET pipeline_state = $2, state_reason = $3, updated_at = now()
		WHERE id = $1`,
		inquiryID, state, reason)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update inquiry state", err)
	}
	return nil
}
