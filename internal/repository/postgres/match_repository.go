package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type matchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) repository.MatchRepository {
	return &matchRepository{db: db}
}

type matchRow struct {
	ID          string         `db:"id"`
	ProfileA    string         `db:"profile_a"`
	ProfileB    string         `db:"profile_b"`
	ContextID   string         `db:"context_id"`
	RevealState string         `db:"reveal_state"`
	ConsentA    bool           `db:"consent_a"`
	ConsentB    bool           `db:"consent_b"`
	Icebreakers pq.StringArray `db:"icebreakers"`
	IsActive    bool           `db:"is_active"`
	MatchedAt   sql.NullTime   `db:"matched_at"`
}

func (r matchRow) toDomain() *domain.Match {
	return &domain.Match{
		ID:          r.ID,
		ProfileA:    r.ProfileA,
		ProfileB:    r.ProfileB,
		ContextID:   r.ContextID,
		RevealState: domain.RevealStage(r.RevealState),
		ConsentA:    r.ConsentA,
		ConsentB:    r.ConsentB,
		Icebreakers: []string(r.Icebreakers),
		IsActive:    r.IsActive,
		MatchedAt:   r.MatchedAt.Time,
	}
}

// CreateCanonical relies on the unique index over (context_id, profile_a,
// profile_b) for the exactly-once guarantee: the losing racer's insert is a
// no-op and the re-read returns the winner's row.
func (r *matchRepository) CreateCanonical(ctx context.Context, match *domain.Match) (*domain.Match, error) {
	a, b := domain.CanonicalPair(match.ProfileA, match.ProfileB)

	query := `
		INSERT INTO matches (id, profile_a, profile_b, context_id, reveal_state, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		ON CONFLICT (context_id, profile_a, profile_b) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, match.ID, a, b, match.ContextID, match.RevealState); err != nil {
		return nil, err
	}
	return r.GetByPair(ctx, a, b, match.ContextID)
}

func (r *matchRepository) GetByID(ctx context.Context, id string) (*domain.Match, error) {
	var row matchRow
	query := `SELECT * FROM matches WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *matchRepository) GetByPair(ctx context.Context, profileA, profileB, contextID string) (*domain.Match, error) {
	a, b := domain.CanonicalPair(profileA, profileB)

	var row matchRow
	query := `SELECT * FROM matches WHERE profile_a = $1 AND profile_b = $2 AND context_id = $3`
	if err := r.db.GetContext(ctx, &row, query, a, b, contextID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *matchRepository) ListActiveByProfiles(ctx context.Context, profileIDs []string) ([]*domain.Match, error) {
	if len(profileIDs) == 0 {
		return nil, nil
	}
	var rows []matchRow
	query := `
		SELECT * FROM matches
		WHERE (profile_a = ANY($1) OR profile_b = ANY($1)) AND is_active = true
		ORDER BY matched_at DESC
	`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(profileIDs)); err != nil {
		return nil, err
	}
	matches := make([]*domain.Match, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, row.toDomain())
	}
	return matches, nil
}

func (r *matchRepository) SetConsent(ctx context.Context, id, profileID string) error {
	query := `
		UPDATE matches
		SET consent_a = consent_a OR (profile_a = $2),
		    consent_b = consent_b OR (profile_b = $2)
		WHERE id = $1 AND (profile_a = $2 OR profile_b = $2)
	`
	result, err := r.db.ExecContext(ctx, query, id, profileID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}

// UpdateRevealState only ever moves the stage forward; a stale writer cannot
// re-hide fields a concurrent reader already saw.
func (r *matchRepository) UpdateRevealState(ctx context.Context, id string, state domain.RevealStage) error {
	query := `
		UPDATE matches SET reveal_state = $1
		WHERE id = $2
		  AND array_position(ARRAY['FULL','PARTIAL','VERIFIED','REVEALED'], reveal_state)
		    < array_position(ARRAY['FULL','PARTIAL','VERIFIED','REVEALED'], $1)
	`
	_, err := r.db.ExecContext(ctx, query, state, id)
	return err
}

func (r *matchRepository) UpdateIcebreakers(ctx context.Context, id string, icebreakers []string) error {
	query := `UPDATE matches SET icebreakers = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, pq.Array(icebreakers), id)
	return err
}

func (r *matchRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE matches SET is_active = false WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}

func (r *matchRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM matches WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}
