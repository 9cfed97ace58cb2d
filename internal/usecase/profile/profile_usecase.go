// Package profile owns the partitioned per-context identities of an account.
// Every cross-boundary read of profile data goes through Sanitize; nothing
// else may serialize a Profile outward.
package profile

import (
	"context"
	"errors"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Store struct {
	profiles   repository.ProfileRepository
	likes      repository.LikeRepository
	instantTTL time.Duration
	logger     *zap.Logger
	clock      func() time.Time
	idGen      func() string
}

func NewStore(
	profiles repository.ProfileRepository,
	likes repository.LikeRepository,
	instantTTL time.Duration,
	logger *zap.Logger,
) *Store {
	return &Store{
		profiles:   profiles,
		likes:      likes,
		instantTTL: instantTTL,
		logger:     logger,
		clock:      time.Now,
		idGen:      uuid.NewString,
	}
}

// WithClock replaces the wall clock for tests.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

// GetOrCreate resolves the caller's isolated profile for a context key,
// creating it with context-appropriate default anonymity settings on first
// entry. Idempotent: re-entry returns (and reactivates) the existing profile.
func (s *Store) GetOrCreate(ctx context.Context, accountID string, ct domain.ContextType, contextID string) (*domain.Profile, error) {
	if !ct.Valid() {
		return nil, domain.ErrInvalidContext
	}
	if ct.RequiresContextID() && contextID == "" {
		return nil, domain.ErrInvalidContext
	}

	existing, err := s.profiles.GetByAccountAndContext(ctx, accountID, ct, contextID)
	switch {
	case err == nil:
		if existing.Expired(s.clock()) {
			// The expiry moment passed; the record is already gone as far as
			// callers are concerned. Purge and fall through to a fresh one.
			if perr := s.purgeExpired(ctx, existing.ID); perr != nil {
				return nil, perr
			}
		} else {
			if !existing.IsActive {
				existing.IsActive = true
				if uerr := s.profiles.Update(ctx, existing); uerr != nil {
					return nil, uerr
				}
			}
			return existing, nil
		}
	case !errors.Is(err, domain.ErrProfileNotFound):
		return nil, err
	}

	p := &domain.Profile{
		ID:          s.idGen(),
		AccountID:   accountID,
		ContextType: ct,
		ContextID:   contextID,
		Nickname:    "anon-" + p8(s.idGen()),
		Interests:   []string{},
		Anonymity:   domain.DefaultAnonymitySettings(ct),
		IsActive:    true,
	}
	if ct == domain.ContextInstant {
		expires := s.clock().Add(s.instantTTL)
		p.ExpiresAt = &expires
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, domain.ErrProfileExists) {
			// Lost the first-entry race; the winner's row is this caller's
			// profile too.
			return s.profiles.GetByAccountAndContext(ctx, accountID, ct, contextID)
		}
		return nil, err
	}
	return p, nil
}

func p8(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ResolveOwned loads a profile and verifies the caller owns it. A mismatch
// is a crossed profile boundary: it is logged as a hard bug signal and the
// caller sees plain not-found, leaking nothing.
func (s *Store) ResolveOwned(ctx context.Context, accountID, profileID string) (*domain.Profile, error) {
	p, err := s.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if p.AccountID != accountID {
		v := &domain.IsolationViolation{Op: "profile.ResolveOwned", Detail: "caller does not own profile"}
		s.logger.Error("privacy_invariant violated",
			zap.String("op", v.Op),
			zap.String("profile_id", profileID),
		)
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

// ResolveByContext loads the caller's own profile for a context, applying
// the same lazy expiry as GetByID.
func (s *Store) ResolveByContext(ctx context.Context, accountID string, ct domain.ContextType, contextID string) (*domain.Profile, error) {
	p, err := s.profiles.GetByAccountAndContext(ctx, accountID, ct, contextID)
	if err != nil {
		return nil, err
	}
	if p.Expired(s.clock()) {
		if perr := s.purgeExpired(ctx, p.ID); perr != nil {
			return nil, perr
		}
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

// GetByID loads any profile, applying lazy expiry: an INSTANT profile read
// after its expiry moment is already gone, sweep or no sweep.
func (s *Store) GetByID(ctx context.Context, profileID string) (*domain.Profile, error) {
	p, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if p.Expired(s.clock()) {
		if perr := s.purgeExpired(ctx, p.ID); perr != nil {
			return nil, perr
		}
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

// ListOwned returns all of the caller's active profiles across contexts.
func (s *Store) ListOwned(ctx context.Context, accountID string) ([]*domain.Profile, error) {
	profiles, err := s.profiles.ListActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	alive := profiles[:0]
	for _, p := range profiles {
		if p.Expired(now) {
			if perr := s.purgeExpired(ctx, p.ID); perr != nil {
				return nil, perr
			}
			continue
		}
		alive = append(alive, p)
	}
	return alive, nil
}

// Update applies caller edits to an owned profile.
func (s *Store) Update(ctx context.Context, accountID string, updated *domain.Profile) (*domain.Profile, error) {
	p, err := s.ResolveOwned(ctx, accountID, updated.ID)
	if err != nil {
		return nil, err
	}
	p.Nickname = updated.Nickname
	p.Bio = updated.Bio
	p.Age = updated.Age
	p.Interests = updated.Interests
	p.PhotoURL = updated.PhotoURL
	p.RealName = updated.RealName
	p.Anonymity = updated.Anonymity
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Deactivate handles context exit. INSTANT profiles are purged outright:
// their content must be unrecoverable, not merely flagged.
func (s *Store) Deactivate(ctx context.Context, accountID, profileID string, reason domain.DeactivationReason) error {
	p, err := s.ResolveOwned(ctx, accountID, profileID)
	if err != nil {
		return err
	}
	s.logger.Info("profile deactivated",
		zap.String("profile_id", p.ID),
		zap.String("reason", string(reason)),
	)
	if p.ContextType == domain.ContextInstant {
		return s.purge(ctx, p.ID)
	}
	if err := s.profiles.Deactivate(ctx, p.ID); err != nil {
		return err
	}
	return s.likes.ExpireByProfile(ctx, p.ID)
}

func (s *Store) purgeExpired(ctx context.Context, profileID string) error {
	s.logger.Debug("instant profile purged",
		zap.String("profile_id", profileID),
		zap.String("reason", string(domain.ReasonExpired)),
	)
	return s.purge(ctx, profileID)
}

func (s *Store) purge(ctx context.Context, profileID string) error {
	if err := s.likes.ExpireByProfile(ctx, profileID); err != nil {
		return err
	}
	return s.profiles.Purge(ctx, profileID)
}

// SweepExpired is the background pass over expired INSTANT profiles. Lazy
// read-time checks remain authoritative; this only bounds how long purged
// bytes linger.
func (s *Store) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.profiles.ListExpiredInstant(ctx, s.clock())
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.purgeExpired(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// Sanitize is the single choke point for cross-boundary profile reads. It
// copies only fields present in visible, and account-derived fields are
// stripped no matter what visible says.
func (s *Store) Sanitize(p *domain.Profile, visible domain.FieldSet) domain.PublicProfile {
	pub := domain.PublicProfile{
		ProfileID:   p.ID,
		ContextType: p.ContextType,
		ContextID:   p.ContextID,
	}
	if visible.Has(domain.FieldNickname) {
		pub.Nickname = p.Nickname
	}
	if visible.Has(domain.FieldAge) && p.Age != nil {
		age := *p.Age
		pub.Age = &age
	}
	if visible.Has(domain.FieldInterests) {
		pub.Interests = append([]string(nil), p.Interests...)
	}
	if visible.Has(domain.FieldPhoto) && p.PhotoURL != nil {
		url := *p.PhotoURL
		pub.PhotoURL = &url
	}
	// RealName is identity: it needs both the profile's own opt-in and the
	// REVEALED stage, which visible already encodes.
	if visible.Has(domain.FieldRealName) && p.Anonymity.RevealableFields.Has(domain.FieldRealName) && p.RealName != nil {
		name := *p.RealName
		pub.RealName = &name
	}
	return pub
}
