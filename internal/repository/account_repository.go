package repository

import (
	"context"

	"github.com/b0ho/glimpse-sub008/internal/domain"
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByPhoneHash(ctx context.Context, phoneHash string) (*domain.Account, error)
	SetVerificationHash(ctx context.Context, id string, hash *string) error
	MarkVerified(ctx context.Context, id string) error
	UpdateTier(ctx context.Context, id string, tier domain.SubscriptionTier) error
}
