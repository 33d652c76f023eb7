// Package repository persists raw inquiries, classification results and
// canonical leads. All queries are tenant-scoped.
package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"autolead_backend/internal/ingest/domain"
	"autolead_backend/platform/apperr"
)

const uniqueViolation = "23505"

// Repository is the storage layer of the ingestion pipeline.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const inquiryColumns = `id, tenant_id, source, external_key, sender_name, sender_email,
	sender_phone, subject, body, metadata, pipeline_state, state_reason, lead_id, received_at`

// SaveInquiry persists a new raw inquiry. When the external key was already
// recorded (provider redelivery), the stored inquiry is returned instead
// and the second return is false.
func (r *Repository) SaveInquiry(ctx context.Context, inquiry *domain.RawInquiry) (*domain.RawInquiry, bool, error) {
	if inquiry.ID == uuid.Nil {
		inquiry.ID = uuid.New()
	}
	if inquiry.ReceivedAt.IsZero() {
		inquiry.ReceivedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO raw_inquiries
			(id, tenant_id, source, external_key, sender_name, sender_email,
			 sender_phone, subject, body, metadata, pipeline_state, state_reason, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		inquiry.ID, inquiry.TenantID, inquiry.Source, inquiry.ExternalKey,
		inquiry.SenderName, inquiry.SenderEmail, inquiry.SenderPhone,
		inquiry.Subject, inquiry.Body, inquiry.Metadata,
		inquiry.State, inquiry.StateReason, inquiry.ReceivedAt)
	if err == nil {
		return inquiry, true, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil, false, apperr.Wrap(apperr.KindInternal, "failed to persist inquiry", err)
	}

	existing, lookupErr := r.InquiryByExternalKey(ctx, inquiry.TenantID, inquiry.Source, inquiry.ExternalKey)
	if lookupErr != nil {
		return nil, false, lookupErr
	}
	return existing, false, nil
}

// InquiryByID loads one inquiry.
func (r *Repository) InquiryByID(ctx context.Context, id uuid.UUID) (*domain.RawInquiry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+inquiryColumns+` FROM raw_inquiries WHERE id = $1`, id)
	return scanInquiry(row)
}

// InquiryByExternalKey loads the inquiry recorded for a provider dedup key.
func (r *Repository) InquiryByExternalKey(ctx context.Context, tenantID uuid.UUID, source domain.Source, key string) (*domain.RawInquiry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+inquiryColumns+` FROM raw_inquiries
		 WHERE tenant_id = $1 AND source = $2 AND external_key = $3`,
		tenantID, source, key)
	return scanInquiry(row)
}

// ListInquiries returns a tenant's inquiries, optionally filtered by state.
func (r *Repository) ListInquiries(ctx context.Context, tenantID uuid.UUID, state domain.PipelineState, limit int) ([]*domain.RawInquiry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + inquiryColumns + ` FROM raw_inquiries WHERE tenant_id = $1`
	args := []any{tenantID}
	if state != "" {
		query += ` AND pipeline_state = $2`
		args = append(args, state)
	}
	query += ` ORDER BY received_at DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list inquiries", err)
	}
	defer rows.Close()

	var out []*domain.RawInquiry
	for rows.Next() {
		inquiry, err := scanInquiry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inquiry)
	}
	return out, rows.Err()
}

// UpdateState records a pipeline transition on the inquiry.
func (r *Repository) UpdateState(ctx context.Context, id uuid.UUID, state domain.PipelineState, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE raw_inquiries
		SET pipeline_state = $2, state_reason = $3, updated_at = now()
		WHERE id = $1`,
		id, state, reason)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update inquiry state", err)
	}
	return nil
}

// SaveClassification stores a new result and marks prior results for the
// same inquiry as superseded.
func (r *Repository) SaveClassification(ctx context.Context, result *domain.ClassificationResult) error {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE classifications SET superseded = TRUE WHERE inquiry_id = $1 AND NOT superseded`,
		result.InquiryID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to supersede classifications", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO classifications (id, inquiry_id, label, confidence, rationale, model, degraded)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.ID, result.InquiryID, result.Label, result.Confidence,
		result.Rationale, result.Model, result.Degraded); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to persist classification", err)
	}

	return tx.Commit(ctx)
}

// LatestClassification returns the current (non-superseded) result for an
// inquiry, or nil when none exists.
func (r *Repository) LatestClassification(ctx context.Context, inquiryID uuid.UUID) (*domain.ClassificationResult, error) {
	var result domain.ClassificationResult
	err := r.pool.QueryRow(ctx, `
		SELECT id, inquiry_id, label, confidence, rationale, model, degraded, created_at
		FROM classifications
		WHERE inquiry_id = $1 AND NOT superseded
		ORDER BY created_at DESC
		LIMIT 1`,
		inquiryID).Scan(
		&result.ID, &result.InquiryID, &result.Label, &result.Confidence,
		&result.Rationale, &result.Model, &result.Degraded, &result.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load classification", err)
	}
	return &result, nil
}

// LeadByID loads one lead.
func (r *Repository) LeadByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

func scanInquiry(row pgx.Row) (*domain.RawInquiry, error) {
	var inquiry domain.RawInquiry
	err := row.Scan(
		&inquiry.ID, &inquiry.TenantID, &inquiry.Source, &inquiry.ExternalKey,
		&inquiry.SenderName, &inquiry.SenderEmail, &inquiry.SenderPhone,
		&inquiry.Subject, &inquiry.Body, &inquiry.Metadata,
		&inquiry.State, &inquiry.StateReason, &inquiry.LeadID, &inquiry.ReceivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("inquiry not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load inquiry", err)
	}
	return &inquiry, nil
}
