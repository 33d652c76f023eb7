package tenant

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"autolead_backend/platform/apperr"
)

// Repository reads tenant rows. The ingestion pipeline never writes tenants;
// provisioning happens elsewhere.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tenant repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tenantColumns = `id, name, contact_email, forwarding_address, meta_page_id,
	meta_page_token, form_enabled, email_enabled, social_enabled`

// ByID resolves a tenant by its identifier (website form path segment).
func (r *Repository) ByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// ByForwardingAddress resolves a tenant by the address an email relay
// delivered to. The raw value may carry a display name
// ("Leads <leads@host>"); matching is case-insensitive on the bare
// address, and a plus-suffixed local part (leads+tag@host) matches its
// base address.
func (r *Repository) ByForwardingAddress(ctx context.Context, address string) (*Tenant, error) {
	normalized := canonicalAddress(address)
	row := r.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE lower(forwarding_address) = $1`,
		normalized)
	t, err := scanTenant(row)
	if err == nil || !apperr.Is(err, apperr.KindNotFound) {
		return t, err
	}

	base, ok := stripPlusTag(normalized)
	if !ok {
		return nil, err
	}
	row = r.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE lower(forwarding_address) = $1`,
		base)
	return scanTenant(row)
}

// ByPageID resolves a tenant by its Meta page id (social webhooks).
func (r *Repository) ByPageID(ctx context.Context, pageID string) (*Tenant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE meta_page_id = $1`, pageID)
	return scanTenant(row)
}

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.ContactEmail,
		&t.Channels.ForwardingAddress,
		&t.Channels.MetaPageID,
		&t.Channels.MetaPageToken,
		&t.Channels.FormEnabled,
		&t.Channels.EmailEnabled,
		&t.Channels.SocialEnabled,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("tenant not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load tenant", err)
	}
	if err := t.Channels.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// canonicalAddress reduces a relay-supplied recipient value to a bare
// lowercased address. Unparseable values fall back to trim+lowercase so a
// plain address that net/mail rejects still matches.
func canonicalAddress(raw string) string {
	if parsed, err := mail.ParseAddress(strings.TrimSpace(raw)); err == nil {
		return strings.ToLower(parsed.Address)
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

func stripPlusTag(address string) (string, bool) {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return "", false
	}
	local, host := address[:at], address[at:]
	plus := strings.Index(local, "+")
	if plus < 0 {
		return "", false
	}
	return local[:plus] + host, true
}
