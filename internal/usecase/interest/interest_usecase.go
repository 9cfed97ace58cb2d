// Package interest manages interest registrations, the unit of the
// concurrent-count quota. A registration holds its slot until withdrawn or
// expired; the slot never frees on a daily boundary.
package interest

import (
	"context"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository"
	"github.com/b0ho/glimpse-sub008/internal/usecase/quota"
	"github.com/google/uuid"
)

type Service struct {
	interests repository.InterestRepository
	quota     *quota.Policy
	clock     func() time.Time
	idGen     func() string
}

func NewService(interests repository.InterestRepository, quota *quota.Policy) *Service {
	return &Service{
		interests: interests,
		quota:     quota,
		clock:     time.Now,
		idGen:     uuid.NewString,
	}
}

// WithClock replaces the wall clock for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

type RegisterRequest struct {
	Kind        string `json:"kind" binding:"required,min=1,max=100"`
	ContextType string `json:"context_type" binding:"required,contexttype"`
	TTLHours    int    `json:"ttl_hours" binding:"omitempty,min=1,max=720"`
}

// Register claims a registration slot. The insert itself enforces the cap,
// so two concurrent calls at cap-1 cannot both land.
func (s *Service) Register(ctx context.Context, accountID string, req *RegisterRequest) (*domain.InterestRegistration, error) {
	ct := domain.ContextType(req.ContextType)
	if !ct.Valid() {
		return nil, domain.ErrInvalidContext
	}

	cap, err := s.quota.InterestCap(ctx, accountID)
	if err != nil {
		return nil, err
	}

	reg := &domain.InterestRegistration{
		ID:          s.idGen(),
		AccountID:   accountID,
		Kind:        req.Kind,
		ContextType: ct,
	}
	if req.TTLHours > 0 {
		exp := s.clock().Add(time.Duration(req.TTLHours) * time.Hour)
		reg.ExpiresAt = &exp
	}

	created, err := s.interests.CreateIfUnderCap(ctx, reg, cap)
	if err != nil {
		return nil, &domain.TransientStorageError{Op: "interest.Register", Err: err}
	}
	if !created {
		return nil, domain.Denied(domain.ReasonLimitExceeded, "concurrent interest registration cap reached")
	}
	return reg, nil
}

// List returns the caller's active registrations.
func (s *Service) List(ctx context.Context, accountID string) ([]*domain.InterestRegistration, error) {
	return s.interests.ListActive(ctx, accountID, s.clock())
}

// Withdraw releases the slot immediately.
func (s *Service) Withdraw(ctx context.Context, accountID, registrationID string) error {
	return s.interests.Delete(ctx, registrationID, accountID)
}

// SweepExpired removes lapsed registrations; their slots free implicitly
// because the count queries already exclude them.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.interests.DeleteExpired(ctx, s.clock())
}
