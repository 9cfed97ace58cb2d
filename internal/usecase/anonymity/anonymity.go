// Package anonymity decides what profile information is disclosable for a
// matched pair at a given moment. The policy is pure: given the same inputs
// it always produces the same stage.
package anonymity

import (
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
)

// ClockSkewTolerance is the documented slack applied when checking the
// time-delay condition. No other clock tolerance exists.
const ClockSkewTolerance = time.Second

type Policy struct{}

func NewPolicy() *Policy {
	return &Policy{}
}

// Inputs are everything a stage derivation depends on. ChatTurns is an
// external message-count input supplied by the caller; the policy never
// talks to the chat collaborator itself.
type Inputs struct {
	Subject       domain.AnonymitySettings
	Counterpart   domain.AnonymitySettings
	MatchedAt     time.Time
	Now           time.Time
	ChatTurns     int
	MutualConsent bool
}

// RevealStage derives the current disclosure stage for a matched pair. The
// more restrictive of the two profiles' settings wins, and the result is
// monotone in time, chat turns, and consent for a fixed configuration.
func (p *Policy) RevealStage(in Inputs) domain.RevealStage {
	a := stageFor(in.Subject, in)
	b := stageFor(in.Counterpart, in)
	return domain.MinStage(a, b)
}

// InitialStage is the stage a match starts at, before any condition has had
// time to be met.
func (p *Policy) InitialStage(a, b domain.AnonymitySettings) domain.RevealStage {
	in := Inputs{Subject: a, Counterpart: b}
	return domain.MinStage(stageFor(a, in), stageFor(b, in))
}

// stageFor evaluates one profile's settings. The profile's level is granted
// as soon as a match exists (unless afterMatch progression is disabled);
// meeting some configured conditions lifts the stage to VERIFIED, meeting
// all of them to REVEALED.
func stageFor(s domain.AnonymitySettings, in Inputs) domain.RevealStage {
	base := s.Level
	if !s.RevealConditions.AfterMatch {
		return base
	}

	configured, met := 0, 0
	c := s.RevealConditions
	if c.TimeDelaySeconds > 0 {
		configured++
		delay := time.Duration(c.TimeDelaySeconds) * time.Second
		if in.Now.Add(ClockSkewTolerance).Sub(in.MatchedAt) >= delay {
			met++
		}
	}
	if c.AfterChatTurns > 0 {
		configured++
		if in.ChatTurns >= c.AfterChatTurns {
			met++
		}
	}
	if c.MutualConsent {
		configured++
		if in.MutualConsent {
			met++
		}
	}

	switch {
	case configured > 0 && met == configured:
		return domain.StageRevealed
	case met > 0 && base.Rank() < domain.StageVerified.Rank():
		return domain.StageVerified
	default:
		return base
	}
}

// FieldsVisibleTo returns the subject fields a matched viewer may see at the
// given stage: the intersection of the subject's revealable set and what the
// stage unlocks, with the nickname floor always present. Without a match
// only the minimal field set is visible, and no configuration overrides that.
func (p *Policy) FieldsVisibleTo(subject domain.AnonymitySettings, stage domain.RevealStage, matched bool) domain.FieldSet {
	if !matched {
		return domain.FieldNickname
	}
	return (stage.Unlocked() & subject.RevealableFields) | domain.FieldNickname
}
