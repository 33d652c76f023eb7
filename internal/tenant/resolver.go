package tenant

import (
	"context"

	"github.com/google/uuid"

	"autolead_backend/platform/apperr"
)

// Store is the lookup surface the resolver needs. Satisfied by *Repository.
type Store interface {
	ByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	ByForwardingAddress(ctx context.Context, address string) (*Tenant, error)
	ByPageID(ctx context.Context, pageID string) (*Tenant, error)
}

// Resolver maps an inbound event to its tenant and rejects traffic for
// channels the tenant has not enabled. A disabled channel is reported the
// same as an unknown tenant so probes cannot distinguish the two.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveForm resolves the tenant addressed by a website form submission.
func (r *Resolver) ResolveForm(ctx context.Context, tenantID uuid.UUID) (*Tenant, error) {
	return r.require(r.store.ByID(ctx, tenantID))(ChannelForm)
}

// ResolveEmail resolves the tenant owning a forwarding address.
func (r *Resolver) ResolveEmail(ctx context.Context, toAddress string) (*Tenant, error) {
	return r.require(r.store.ByForwardingAddress(ctx, toAddress))(ChannelEmail)
}

// ResolveSocial resolves the tenant owning a Meta page.
func (r *Resolver) ResolveSocial(ctx context.Context, pageID string) (*Tenant, error) {
	return r.require(r.store.ByPageID(ctx, pageID))(ChannelSocial)
}

func (r *Resolver) require(t *Tenant, err error) func(Channel) (*Tenant, error) {
	return func(ch Channel) (*Tenant, error) {
		if err != nil {
			return nil, err
		}
		if !t.Channels.Enabled(ch) {
			return nil, apperr.NotFound("tenant not found")
		}
		return t, nil
	}
}
