package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository"
	"github.com/jmoiron/sqlx"
)

type groupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) repository.GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *domain.Group) error {
	query := `
		INSERT INTO groups (id, name, type, latitude, longitude, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	return r.db.QueryRowContext(
		ctx, query,
		group.ID, group.Name, group.Type, group.Latitude, group.Longitude, group.ExpiresAt,
	).Scan(&group.CreatedAt)
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	var group domain.Group
	query := `SELECT * FROM groups WHERE id = $1`
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) ListWithLocation(ctx context.Context) ([]*domain.Group, error) {
	var groups []*domain.Group
	query := `
		SELECT * FROM groups
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		  AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
	`
	err := r.db.SelectContext(ctx, &groups, query)
	return groups, err
}

type reportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) repository.ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	query := `
		INSERT INTO reports (id, match_id, reporter_profile_id, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	return r.db.QueryRowContext(
		ctx, query,
		report.ID, report.MatchID, report.ReporterProfileID, report.Reason, report.Status,
	).Scan(&report.CreatedAt)
}
