package domain

import "time"

type ReportStatus string

const (
	ReportPending  ReportStatus = "PENDING"
	ReportReviewed ReportStatus = "REVIEWED"
)

// Report marks a match for review. Filing one removes the match from both
// parties' active lists but never refunds quota: the like was still spent.
type Report struct {
	ID                string       `json:"id" db:"id"`
	MatchID           string       `json:"match_id" db:"match_id"`
	ReporterProfileID string       `json:"-" db:"reporter_profile_id"`
	Reason            string       `json:"reason" db:"reason"`
	Status            ReportStatus `json:"status" db:"status"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
}
