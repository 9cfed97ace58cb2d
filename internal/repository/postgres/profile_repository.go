package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

// profileRow flattens the nested anonymity settings into columns.
type profileRow struct {
	ID             string         `db:"id"`
	AccountID      string         `db:"account_id"`
	ContextType    string         `db:"context_type"`
	ContextID      string         `db:"context_id"`
	Nickname       string         `db:"nickname"`
	Bio            *string        `db:"bio"`
	Age            *int           `db:"age"`
	Interests      pq.StringArray `db:"interests"`
	PhotoURL       *string        `db:"photo_url"`
	RealName       *string        `db:"real_name"`
	AnonLevel      string         `db:"anonymity_level"`
	RevealFields   int            `db:"revealable_fields"`
	CondAfterMatch bool           `db:"cond_after_match"`
	CondChatTurns  int            `db:"cond_chat_turns"`
	CondConsent    bool           `db:"cond_mutual_consent"`
	CondTimeDelayS int            `db:"cond_time_delay_s"`
	IsActive       bool           `db:"is_active"`
	ExpiresAt      *time.Time     `db:"expires_at"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r profileRow) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:          r.ID,
		AccountID:   r.AccountID,
		ContextType: domain.ContextType(r.ContextType),
		ContextID:   r.ContextID,
		Nickname:    r.Nickname,
		Bio:         r.Bio,
		Age:         r.Age,
		Interests:   []string(r.Interests),
		PhotoURL:    r.PhotoURL,
		RealName:    r.RealName,
		Anonymity: domain.AnonymitySettings{
			Level:            domain.RevealStage(r.AnonLevel),
			RevealableFields: domain.FieldSet(r.RevealFields),
			RevealConditions: domain.RevealConditions{
				AfterMatch:       r.CondAfterMatch,
				AfterChatTurns:   r.CondChatTurns,
				MutualConsent:    r.CondConsent,
				TimeDelaySeconds: r.CondTimeDelayS,
			},
		},
		IsActive:  r.IsActive,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

const profileColumns = `
	id, account_id, context_type, context_id, nickname, bio, age, interests,
	photo_url, real_name, anonymity_level, revealable_fields,
	cond_after_match, cond_chat_turns, cond_mutual_consent, cond_time_delay_s,
	is_active, expires_at, created_at, updated_at
`

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (
			id, account_id, context_type, context_id, nickname, bio, age,
			interests, photo_url, real_name, anonymity_level, revealable_fields,
			cond_after_match, cond_chat_turns, cond_mutual_consent, cond_time_delay_s,
			is_active, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at
	`
	c := profile.Anonymity.RevealConditions
	err := r.db.QueryRowContext(
		ctx, query,
		profile.ID, profile.AccountID, profile.ContextType, profile.ContextID,
		profile.Nickname, profile.Bio, profile.Age, pq.Array(profile.Interests),
		profile.PhotoURL, profile.RealName,
		profile.Anonymity.Level, int(profile.Anonymity.RevealableFields),
		c.AfterMatch, c.AfterChatTurns, c.MutualConsent, c.TimeDelaySeconds,
		profile.IsActive, profile.ExpiresAt,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return domain.ErrProfileExists
	}
	return err
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	var row profileRow
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *profileRepository) GetByAccountAndContext(ctx context.Context, accountID string, ct domain.ContextType, contextID string) (*domain.Profile, error) {
	var row profileRow
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE account_id = $1 AND context_type = $2 AND context_id = $3
	`
	if err := r.db.GetContext(ctx, &row, query, accountID, ct, contextID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *profileRepository) ListActiveByAccount(ctx context.Context, accountID string) ([]*domain.Profile, error) {
	var rows []profileRow
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE account_id = $1 AND is_active = true
		ORDER BY created_at
	`
	if err := r.db.SelectContext(ctx, &rows, query, accountID); err != nil {
		return nil, err
	}
	profiles := make([]*domain.Profile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, row.toDomain())
	}
	return profiles, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	query := `
		UPDATE profiles
		SET nickname = $1, bio = $2, age = $3, interests = $4, photo_url = $5,
		    real_name = $6, anonymity_level = $7, revealable_fields = $8,
		    cond_after_match = $9, cond_chat_turns = $10,
		    cond_mutual_consent = $11, cond_time_delay_s = $12,
		    is_active = $13, updated_at = CURRENT_TIMESTAMP
		WHERE id = $14
		RETURNING updated_at
	`
	c := profile.Anonymity.RevealConditions
	return r.db.QueryRowContext(
		ctx, query,
		profile.Nickname, profile.Bio, profile.Age, pq.Array(profile.Interests),
		profile.PhotoURL, profile.RealName,
		profile.Anonymity.Level, int(profile.Anonymity.RevealableFields),
		c.AfterMatch, c.AfterChatTurns, c.MutualConsent, c.TimeDelaySeconds,
		profile.IsActive, profile.ID,
	).Scan(&profile.UpdatedAt)
}

func (r *profileRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE profiles SET is_active = false, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// Purge zeroes the row before deleting it, so the content is gone even from
// storage-level change capture that only sees the final delete.
func (r *profileRepository) Purge(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	zero := `
		UPDATE profiles
		SET nickname = '', bio = NULL, age = NULL, interests = '{}',
		    photo_url = NULL, real_name = NULL, is_active = false
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, zero, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *profileRepository) ListExpiredInstant(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	query := `
		SELECT id FROM profiles
		WHERE context_type = $1 AND expires_at IS NOT NULL AND expires_at <= $2
	`
	err := r.db.SelectContext(ctx, &ids, query, domain.ContextInstant, now)
	return ids, err
}
