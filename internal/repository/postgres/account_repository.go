package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository"
	"github.com/jmoiron/sqlx"
)

type accountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, phone_number_hash, tier)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query, account.ID, account.PhoneNumberHash, account.Tier).
		Scan(&account.CreatedAt)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT * FROM accounts WHERE id = $1`
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetByPhoneHash(ctx context.Context, phoneHash string) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT * FROM accounts WHERE phone_number_hash = $1`
	if err := r.db.GetContext(ctx, &account, query, phoneHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) SetVerificationHash(ctx context.Context, id string, hash *string) error {
	query := `UPDATE accounts SET verification_hash = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, hash, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) MarkVerified(ctx context.Context, id string) error {
	query := `
		UPDATE accounts
		SET verified_at = CURRENT_TIMESTAMP, verification_hash = NULL
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) UpdateTier(ctx context.Context, id string, tier domain.SubscriptionTier) error {
	query := `UPDATE accounts SET tier = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, tier, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
