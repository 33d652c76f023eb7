// Package tenant resolves inbound traffic to the owning tenant and exposes
// its per-channel integration settings.
package tenant

import (
	"strings"

	"github.com/google/uuid"

	"autolead_backend/platform/apperr"
)

// Channel identifies one ingestion channel.
type Channel string

const (
	ChannelForm   Channel = "website_form"
	ChannelEmail  Channel = "email"
	ChannelSocial Channel = "social"
)

// ChannelSettings holds a tenant's integration configuration as a typed
// value object. Rows with malformed settings fail resolution instead of
// surfacing nil-map panics deep in the pipeline.
type ChannelSettings struct {
	FormEnabled       bool
	EmailEnabled      bool
	SocialEnabled     bool
	ForwardingAddress string
	MetaPageID        string
	MetaPageToken     string
}

// Validate checks internal consistency: an enabled channel must carry the
// settings it needs to operate.
func (s ChannelSettings) Validate() error {
	if s.EmailEnabled && strings.TrimSpace(s.ForwardingAddress) == "" {
		return apperr.Internal("tenant email channel enabled without forwarding address")
	}
	if s.SocialEnabled {
		if strings.TrimSpace(s.MetaPageID) == "" {
			return apperr.Internal("tenant social channel enabled without page id")
		}
		if strings.TrimSpace(s.MetaPageToken) == "" {
			return apperr.Internal("tenant social channel enabled without page token")
		}
	}
	return nil
}

// Enabled reports whether the given channel is active for this tenant.
func (s ChannelSettings) Enabled(ch Channel) bool {
	switch ch {
	case ChannelForm:
		return s.FormEnabled
	case ChannelEmail:
		return s.EmailEnabled
	case ChannelSocial:
		return s.SocialEnabled
	default:
		return false
	}
}

// Tenant is one customer account of the platform.
type Tenant struct {
	ID           uuid.UUID
	Name         string
	ContactEmail string
	Channels     ChannelSettings
}
