package repository

import (
	"context"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	// GetByAccountAndContext resolves the caller's isolated profile for one
	// context key. It is the only profile lookup keyed by account.
	GetByAccountAndContext(ctx context.Context, accountID string, ct domain.ContextType, contextID string) (*domain.Profile, error)
	ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
	Deactivate(ctx context.Context, id string) error
	// Purge zeroes and deletes an expired INSTANT profile. The content must
	// be unrecoverable afterwards.
	Purge(ctx context.Context, id string) error
	ListExpiredInstant(ctx context.Context, now time.Time) ([]string, error)
}
