package domain

import "time"

// LikeStatus is the state machine per ordered pair within a context:
// NONE -> LIKED -> (MATCHED | CANCELLED | EXPIRED). NONE is the absence of a
// row. A cancelled like keeps anchoring the cooldown window of its pair.
type LikeStatus string

const (
	LikePending   LikeStatus = "LIKED"
	LikeMatched   LikeStatus = "MATCHED"
	LikeCancelled LikeStatus = "CANCELLED"
	LikeExpired   LikeStatus = "EXPIRED"
)

// Like is a directional edge between two profiles in the same context. It
// stores profile references only, never account identifiers: that is the
// isolation boundary.
type Like struct {
	ID            string     `json:"id" db:"id"`
	FromProfileID string     `json:"from_profile_id" db:"from_profile_id"`
	ToProfileID   string     `json:"to_profile_id" db:"to_profile_id"`
	ContextID     string     `json:"context_id" db:"context_id"`
	IsSuper       bool       `json:"is_super" db:"is_super"`
	Status        LikeStatus `json:"status" db:"status"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

func (l *Like) Active() bool {
	return l.Status == LikePending || l.Status == LikeMatched
}

// InCooldown reports whether resending this directional like is still rate
// limited. The window runs from creation and survives cancellation.
func (l *Like) InCooldown(now time.Time, window time.Duration) bool {
	return now.Sub(l.CreatedAt) < window
}
