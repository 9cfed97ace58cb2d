package repository

import (
	"context"

	"github.com/b0ho/glimpse-sub008/internal/domain"
)

type LikeRepository interface {
	Create(ctx context.Context, like *domain.Like) error
	GetByID(ctx context.Context, id string) (*domain.Like, error)
	// GetLatestByPair returns the most recent like row for the directional
	// pair regardless of status; it anchors the cooldown window.
	GetLatestByPair(ctx context.Context, fromProfileID, toProfileID, contextID string) (*domain.Like, error)
	// GetActiveByPair returns the pending like for the directional pair, if
	// one exists.
	GetActiveByPair(ctx context.Context, fromProfileID, toProfileID, contextID string) (*domain.Like, error)
	// UpdateStatusIf transitions status only from the expected state,
	// returning domain.ErrLikeNotPending when the row moved concurrently.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.LikeStatus) error
	MarkPairMatched(ctx context.Context, profileA, profileB, contextID string) error
	ListReceived(ctx context.Context, toProfileIDs []string, limit, offset int) ([]*domain.Like, error)
	ExpireByProfile(ctx context.Context, profileID string) error
}
