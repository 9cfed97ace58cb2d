package domain

import "time"

// Action is a quota-gated operation.
type Action string

const (
	ActionRegisterInterest Action = "REGISTER_INTEREST"
	ActionSendLike         Action = "SEND_LIKE"
	ActionSendSuperLike    Action = "SEND_SUPER_LIKE"
)

// QuotaDecision is the outcome of a policy check. Denials carry the reason
// code; Allowed decisions have an empty reason.
type QuotaDecision struct {
	Allowed bool         `json:"allowed"`
	Reason  DenialReason `json:"reason,omitempty"`
}

var Allowed = QuotaDecision{Allowed: true}

func Deny(reason DenialReason) QuotaDecision {
	return QuotaDecision{Allowed: false, Reason: reason}
}

// InterestRegistration is the subject of the concurrent-count quota. It frees
// its quota slot only when deleted or expired, never on a clock boundary.
type InterestRegistration struct {
	ID          string      `json:"id" db:"id"`
	AccountID   string      `json:"-" db:"account_id"`
	Kind        string      `json:"kind" db:"kind"`
	ContextType ContextType `json:"context_type" db:"context_type"`
	ExpiresAt   *time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// QuotaUsage is the per-account snapshot reported to clients.
type QuotaUsage struct {
	LikesToday      int64 `json:"likes_today"`
	SuperLikesToday int64 `json:"super_likes_today"`
	ActiveInterests int   `json:"active_interests"`
}
