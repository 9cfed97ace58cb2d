package repository

import (
	"context"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
)

type InterestRepository interface {
	// CreateIfUnderCap atomically inserts the registration only while the
	// account's active count is below cap (cap < 0 means uncapped). Returns
	// false when the cap is already reached.
	CreateIfUnderCap(ctx context.Context, reg *domain.InterestRegistration, cap int) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.InterestRegistration, error)
	ListActive(ctx context.Context, accountID string, now time.Time) ([]*domain.InterestRegistration, error)
	CountActive(ctx context.Context, accountID string, now time.Time) (int, error)
	Delete(ctx context.Context, id, accountID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
