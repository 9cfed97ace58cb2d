package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository"
	"github.com/jmoiron/sqlx"
)

type interestRepository struct {
	db *sqlx.DB
}

func NewInterestRepository(db *sqlx.DB) repository.InterestRepository {
	return &interestRepository{db: db}
}

// CreateIfUnderCap is a single conditional insert, not check-then-insert:
// two concurrent registrations at cap-1 cannot both slip under the cap.
func (r *interestRepository) CreateIfUnderCap(ctx context.Context, reg *domain.InterestRegistration, cap int) (bool, error) {
	query := `
		INSERT INTO interest_registrations (id, account_id, kind, context_type, expires_at)
		SELECT $1, $2, $3, $4, $5
		WHERE $6 < 0 OR (
			SELECT count(*) FROM interest_registrations
			WHERE account_id = $2
			  AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
		) < $6
		RETURNING created_at
	`
	err := r.db.QueryRowContext(
		ctx, query,
		reg.ID, reg.AccountID, reg.Kind, reg.ContextType, reg.ExpiresAt, cap,
	).Scan(&reg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *interestRepository) GetByID(ctx context.Context, id string) (*domain.InterestRegistration, error) {
	var reg domain.InterestRegistration
	query := `SELECT * FROM interest_registrations WHERE id = $1`
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInterestNotFound
		}
		return nil, err
	}
	return &reg, nil
}

func (r *interestRepository) ListActive(ctx context.Context, accountID string, now time.Time) ([]*domain.InterestRegistration, error) {
	var regs []*domain.InterestRegistration
	query := `
		SELECT * FROM interest_registrations
		WHERE account_id = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &regs, query, accountID, now); err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *interestRepository) CountActive(ctx context.Context, accountID string, now time.Time) (int, error) {
	var count int
	query := `
		SELECT count(*) FROM interest_registrations
		WHERE account_id = $1 AND (expires_at IS NULL OR expires_at > $2)
	`
	err := r.db.GetContext(ctx, &count, query, accountID, now)
	return count, err
}

func (r *interestRepository) Delete(ctx context.Context, id, accountID string) error {
	query := `DELETE FROM interest_registrations WHERE id = $1 AND account_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, accountID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInterestNotFound
	}
	return nil
}

func (r *interestRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM interest_registrations WHERE expires_at IS NOT NULL AND expires_at <= $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
