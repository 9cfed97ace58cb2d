package domain

import "time"

type SubscriptionTier string

const (
	TierBasic    SubscriptionTier = "BASIC"
	TierAdvanced SubscriptionTier = "ADVANCED"
	TierPremium  SubscriptionTier = "PREMIUM"
)

// Account is the root identity. It never crosses the trust boundary of the
// owning user's own client: no handler response embeds it except /auth/me.
type Account struct {
	ID               string           `json:"id" db:"id"`
	PhoneNumberHash  string           `json:"-" db:"phone_number_hash"`
	VerificationHash *string          `json:"-" db:"verification_hash"`
	Tier             SubscriptionTier `json:"tier" db:"tier"`
	VerifiedAt       *time.Time       `json:"verified_at" db:"verified_at"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}

func (a *Account) IsVerified() bool {
	return a.VerifiedAt != nil
}
