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

type likeRepository struct {
	db *sqlx.DB
}

func NewLikeRepository(db *sqlx.DB) repository.LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Create(ctx context.Context, like *domain.Like) error {
	query := `
		INSERT INTO likes (id, from_profile_id, to_profile_id, context_id, is_super, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	return r.db.QueryRowContext(
		ctx, query,
		like.ID, like.FromProfileID, like.ToProfileID, like.ContextID,
		like.IsSuper, like.Status,
	).Scan(&like.CreatedAt)
}

func (r *likeRepository) GetByID(ctx context.Context, id string) (*domain.Like, error) {
	var like domain.Like
	query := `SELECT * FROM likes WHERE id = $1`
	if err := r.db.GetContext(ctx, &like, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLikeNotFound
		}
		return nil, err
	}
	return &like, nil
}

func (r *likeRepository) GetLatestByPair(ctx context.Context, fromProfileID, toProfileID, contextID string) (*domain.Like, error) {
	var like domain.Like
	query := `
		SELECT * FROM likes
		WHERE from_profile_id = $1 AND to_profile_id = $2 AND context_id = $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &like, query, fromProfileID, toProfileID, contextID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLikeNotFound
		}
		return nil, err
	}
	return &like, nil
}

func (r *likeRepository) GetActiveByPair(ctx context.Context, fromProfileID, toProfileID, contextID string) (*domain.Like, error) {
	var like domain.Like
	query := `
		SELECT * FROM likes
		WHERE from_profile_id = $1 AND to_profile_id = $2 AND context_id = $3
		  AND status = $4
	`
	if err := r.db.GetContext(ctx, &like, query, fromProfileID, toProfileID, contextID, domain.LikePending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLikeNotFound
		}
		return nil, err
	}
	return &like, nil
}

// UpdateStatusIf is the compare-and-swap that makes cancel-vs-match races
// resolve by commit order.
func (r *likeRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.LikeStatus) error {
	query := `UPDATE likes SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrLikeNotPending
	}
	return nil
}

func (r *likeRepository) MarkPairMatched(ctx context.Context, profileA, profileB, contextID string) error {
	query := `
		UPDATE likes SET status = $1
		WHERE context_id = $2 AND status = $3
		  AND ((from_profile_id = $4 AND to_profile_id = $5)
		    OR (from_profile_id = $5 AND to_profile_id = $4))
	`
	_, err := r.db.ExecContext(ctx, query, domain.LikeMatched, contextID, domain.LikePending, profileA, profileB)
	return err
}

func (r *likeRepository) ListReceived(ctx context.Context, toProfileIDs []string, limit, offset int) ([]*domain.Like, error) {
	if len(toProfileIDs) == 0 {
		return nil, nil
	}
	var likes []*domain.Like
	query := `
		SELECT * FROM likes
		WHERE to_profile_id = ANY($1) AND status = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	err := r.db.SelectContext(ctx, &likes, query, pq.Array(toProfileIDs), domain.LikePending, limit, offset)
	return likes, err
}

// ExpireByProfile lapses pending likes when their profile leaves or expires.
func (r *likeRepository) ExpireByProfile(ctx context.Context, profileID string) error {
	query := `
		UPDATE likes SET status = $1
		WHERE status = $2 AND (from_profile_id = $3 OR to_profile_id = $3)
	`
	_, err := r.db.ExecContext(ctx, query, domain.LikeExpired, domain.LikePending, profileID)
	return err
}
