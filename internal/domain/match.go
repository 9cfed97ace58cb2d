package domain

import "time"

// Match is the undirected pairing created exactly once per unordered profile
// pair within a context. ProfileA < ProfileB always holds (canonical order);
// the unique constraint on that key carries the exactly-once guarantee.
type Match struct {
	ID          string      `json:"id" db:"id"`
	ProfileA    string      `json:"profile_a" db:"profile_a"`
	ProfileB    string      `json:"profile_b" db:"profile_b"`
	ContextID   string      `json:"context_id" db:"context_id"`
	RevealState RevealStage `json:"reveal_state" db:"reveal_state"`
	ConsentA    bool        `json:"-" db:"consent_a"`
	ConsentB    bool        `json:"-" db:"consent_b"`
	Icebreakers []string    `json:"icebreakers,omitempty" db:"icebreakers"`
	IsActive    bool        `json:"is_active" db:"is_active"`
	MatchedAt   time.Time   `json:"matched_at" db:"matched_at"`
}

// CanonicalPair orders two profile IDs for the match key.
func CanonicalPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

func (m *Match) HasProfile(profileID string) bool {
	return m.ProfileA == profileID || m.ProfileB == profileID
}

func (m *Match) OtherProfile(profileID string) (string, bool) {
	switch profileID {
	case m.ProfileA:
		return m.ProfileB, true
	case m.ProfileB:
		return m.ProfileA, true
	}
	return "", false
}

func (m *Match) MutualConsent() bool {
	return m.ConsentA && m.ConsentB
}
