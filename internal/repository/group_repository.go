package repository

import (
	"context"

	"github.com/b0ho/glimpse-sub008/internal/domain"
)

type GroupRepository interface {
	Create(ctx context.Context, group *domain.Group) error
	GetByID(ctx context.Context, id string) (*domain.Group, error)
	ListWithLocation(ctx context.Context) ([]*domain.Group, error)
}

type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
}
