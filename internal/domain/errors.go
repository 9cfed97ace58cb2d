package domain

import (
	"errors"
	"fmt"
)

// Validation errors: reject immediately, never retry.
var (
	ErrSelfLike         = errors.New("cannot like own profile")
	ErrInvalidContext   = errors.New("invalid context")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidToken     = errors.New("invalid token")
	ErrAccountNotFound  = errors.New("account not found")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrProfileExists    = errors.New("profile already exists for context")
	ErrLikeNotFound     = errors.New("like not found")
	ErrMatchNotFound    = errors.New("match not found")
	ErrGroupNotFound    = errors.New("group not found")
	ErrInterestNotFound = errors.New("interest registration not found")
	ErrAlreadyMatched   = errors.New("like already matched")
	ErrLikeNotPending   = errors.New("like is not pending")
	ErrNotVerified      = errors.New("phone number not verified")
	ErrCodeMismatch     = errors.New("verification code mismatch")
)

// DenialReason is the machine-checkable code carried by every policy denial,
// so clients can render "upgrade" vs "wait" without string matching.
type DenialReason string

const (
	ReasonLimitExceeded  DenialReason = "LIMIT_EXCEEDED"
	ReasonTierRequired   DenialReason = "TIER_REQUIRED"
	ReasonCooldownActive DenialReason = "COOLDOWN_ACTIVE"
)

// PolicyDenial is terminal for the current attempt; retrying does not change
// the outcome.
type PolicyDenial struct {
	Reason DenialReason
	Detail string
}

func (d *PolicyDenial) Error() string {
	if d.Detail == "" {
		return string(d.Reason)
	}
	return fmt.Sprintf("%s: %s", d.Reason, d.Detail)
}

func Denied(reason DenialReason, detail string) *PolicyDenial {
	return &PolicyDenial{Reason: reason, Detail: detail}
}

// AsDenial unwraps a PolicyDenial from an error chain.
func AsDenial(err error) (*PolicyDenial, bool) {
	var d *PolicyDenial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// IsolationViolation signals that an operation attempted to cross the
// per-context profile boundary. It is a privacy defect, not a user error:
// callers must abort and log it, never swallow it.
type IsolationViolation struct {
	Op     string
	Detail string
}

func (v *IsolationViolation) Error() string {
	return fmt.Sprintf("isolation violation in %s: %s", v.Op, v.Detail)
}

// TransientStorageError marks a persistence failure that is safe to retry
// with the same idempotency key.
type TransientStorageError struct {
	Op  string
	Err error
}

func (e *TransientStorageError) Error() string {
	return fmt.Sprintf("transient storage failure in %s: %v", e.Op, e.Err)
}

func (e *TransientStorageError) Unwrap() error { return e.Err }
