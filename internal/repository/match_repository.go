package repository

import (
	"context"

	"github.com/b0ho/glimpse-sub008/internal/domain"
)

type MatchRepository interface {
	// CreateCanonical inserts the match for the canonical (sorted) pair key.
	// A concurrent duplicate insert is a no-op; the returned match is the
	// surviving row either way, so both racers observe the same match.
	CreateCanonical(ctx context.Context, match *domain.Match) (*domain.Match, error)
	GetByID(ctx context.Context, id string) (*domain.Match, error)
	GetByPair(ctx context.Context, profileA, profileB, contextID string) (*domain.Match, error)
	ListActiveByProfiles(ctx context.Context, profileIDs []string) ([]*domain.Match, error)
	SetConsent(ctx context.Context, id, profileID string) error
	UpdateRevealState(ctx context.Context, id string, state domain.RevealStage) error
	UpdateIcebreakers(ctx context.Context, id string, icebreakers []string) error
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
