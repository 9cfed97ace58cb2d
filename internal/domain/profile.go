package domain

import "time"

// ContextType is the scoping boundary under which an isolated profile exists.
type ContextType string

const (
	ContextOfficial ContextType = "OFFICIAL"
	ContextCreated  ContextType = "CREATED"
	ContextInstant  ContextType = "INSTANT"
	ContextLocation ContextType = "LOCATION"
)

func (ct ContextType) Valid() bool {
	switch ct {
	case ContextOfficial, ContextCreated, ContextInstant, ContextLocation:
		return true
	}
	return false
}

// RequiresContextID reports whether profiles of this type must be scoped to a
// concrete group or meetup. LOCATION profiles may float without a scope.
func (ct ContextType) RequiresContextID() bool {
	return ct != ContextLocation
}

// ContextMeta is the per-context metadata variant. Exactly one concrete type
// exists per ContextType; each carries only the fields that type supports.
type ContextMeta interface {
	ContextType() ContextType
}

// OfficialMeta scopes a profile to a verified company or school group.
type OfficialMeta struct {
	OrganizationDomain string `json:"organization_domain"`
	MemberRole         string `json:"member_role,omitempty"`
}

func (OfficialMeta) ContextType() ContextType { return ContextOfficial }

// CreatedMeta scopes a profile to an ad-hoc user-created group.
type CreatedMeta struct {
	InvitedBy string `json:"invited_by,omitempty"`
}

func (CreatedMeta) ContextType() ContextType { return ContextCreated }

// InstantMeta scopes a profile to a time-boxed meetup.
type InstantMeta struct {
	MeetupTitle string    `json:"meetup_title"`
	StartsAt    time.Time `json:"starts_at"`
}

func (InstantMeta) ContextType() ContextType { return ContextInstant }

// LocationMeta scopes a profile to location-based discovery.
type LocationMeta struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusM   float64 `json:"radius_m"`
}

func (LocationMeta) ContextType() ContextType { return ContextLocation }

// Profile is an isolated per-context identity facade over an Account.
// AccountID is carried for ownership checks only and is never serialized;
// Sanitize is the single path through which profile data leaves the service.
type Profile struct {
	ID          string            `json:"id" db:"id"`
	AccountID   string            `json:"-" db:"account_id"`
	ContextType ContextType       `json:"context_type" db:"context_type"`
	ContextID   string            `json:"context_id" db:"context_id"`
	Nickname    string            `json:"nickname" db:"nickname"`
	Bio         *string           `json:"bio" db:"bio"`
	Age         *int              `json:"age" db:"age"`
	Interests   []string          `json:"interests" db:"interests"`
	PhotoURL    *string           `json:"photo_url" db:"photo_url"`
	RealName    *string           `json:"-" db:"real_name"`
	Anonymity   AnonymitySettings `json:"anonymity" db:"-"`
	IsActive    bool              `json:"is_active" db:"is_active"`
	ExpiresAt   *time.Time        `json:"expires_at" db:"expires_at"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}

// Expired reports lazy, read-time expiry for INSTANT profiles. Correctness
// never depends on the background sweep having run.
func (p *Profile) Expired(now time.Time) bool {
	return p.ContextType == ContextInstant && p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

func (p *Profile) SameContext(other *Profile) bool {
	return p.ContextType == other.ContextType && p.ContextID == other.ContextID
}

// PublicProfile is the sanitized cross-boundary view of a Profile. It has no
// account-derived fields at all; optional members are present only when the
// current reveal stage unlocks them.
type PublicProfile struct {
	ProfileID   string      `json:"profile_id"`
	ContextType ContextType `json:"context_type"`
	ContextID   string      `json:"context_id,omitempty"`
	Nickname    string      `json:"nickname"`
	Age         *int        `json:"age,omitempty"`
	Interests   []string    `json:"interests,omitempty"`
	PhotoURL    *string     `json:"photo_url,omitempty"`
	RealName    *string     `json:"real_name,omitempty"`
}

// DeactivationReason records why a profile left its context.
type DeactivationReason string

const (
	ReasonContextLeft DeactivationReason = "CONTEXT_LEFT"
	ReasonExpired     DeactivationReason = "EXPIRED"
)
