package domain

import "fmt"

// Field is a single revealable profile attribute. FieldSet is a bitset over
// all of them.
type FieldSet uint8

const (
	FieldNickname FieldSet = 1 << iota
	FieldAge
	FieldInterests
	FieldPhoto
	FieldRealName
)

const AllFields = FieldNickname | FieldAge | FieldInterests | FieldPhoto | FieldRealName

func (s FieldSet) Has(f FieldSet) bool { return s&f != 0 }

func (s FieldSet) Names() []string {
	names := make([]string, 0, 5)
	if s.Has(FieldNickname) {
		names = append(names, "nickname")
	}
	if s.Has(FieldAge) {
		names = append(names, "age")
	}
	if s.Has(FieldInterests) {
		names = append(names, "interests")
	}
	if s.Has(FieldPhoto) {
		names = append(names, "photo")
	}
	if s.Has(FieldRealName) {
		names = append(names, "realName")
	}
	return names
}

// ParseFieldSet builds a FieldSet from field names, rejecting unknown ones.
func ParseFieldSet(names []string) (FieldSet, error) {
	var s FieldSet
	for _, name := range names {
		switch name {
		case "nickname":
			s |= FieldNickname
		case "age":
			s |= FieldAge
		case "interests":
			s |= FieldInterests
		case "photo":
			s |= FieldPhoto
		case "realName":
			s |= FieldRealName
		default:
			return 0, fmt.Errorf("%w: unknown field %q", ErrInvalidInput, name)
		}
	}
	return s, nil
}

// RevealStage is the disclosure stage between two matched profiles. Stages
// are ordered: FULL (fully anonymous) < PARTIAL < VERIFIED < REVEALED.
type RevealStage string

const (
	StageFull     RevealStage = "FULL"
	StagePartial  RevealStage = "PARTIAL"
	StageVerified RevealStage = "VERIFIED"
	StageRevealed RevealStage = "REVEALED"
)

func (s RevealStage) Rank() int {
	switch s {
	case StagePartial:
		return 1
	case StageVerified:
		return 2
	case StageRevealed:
		return 3
	default:
		return 0
	}
}

// Unlocked returns the fields a stage exposes, before intersecting with a
// profile's own revealable set. Nickname is the context-appropriate minimum
// and is present at every stage.
func (s RevealStage) Unlocked() FieldSet {
	switch s {
	case StagePartial:
		return FieldNickname | FieldInterests
	case StageVerified:
		return FieldNickname | FieldInterests | FieldAge | FieldPhoto
	case StageRevealed:
		return AllFields
	default:
		return FieldNickname
	}
}

// MinStage returns the more restrictive of two stages.
func MinStage(a, b RevealStage) RevealStage {
	if a.Rank() <= b.Rank() {
		return a
	}
	return b
}

// RevealConditions gate the progression from the profile's base stage to
// REVEALED. A zero value for a condition means it is not required.
type RevealConditions struct {
	AfterMatch       bool `json:"after_match"`
	AfterChatTurns   int  `json:"after_chat_turns"`
	MutualConsent    bool `json:"mutual_consent"`
	TimeDelaySeconds int  `json:"time_delay_seconds"`
}

// AnonymitySettings are per-Profile. Level is the stage granted as soon as a
// match exists; RevealConditions govern further progression.
type AnonymitySettings struct {
	Level            RevealStage      `json:"level"`
	RevealableFields FieldSet         `json:"revealable_fields"`
	RevealConditions RevealConditions `json:"reveal_conditions"`
}

// DefaultAnonymitySettings returns the settings a fresh profile gets for its
// context type: FULL for INSTANT, VERIFIED for OFFICIAL, PARTIAL otherwise.
func DefaultAnonymitySettings(ct ContextType) AnonymitySettings {
	s := AnonymitySettings{
		Level:            StagePartial,
		RevealableFields: FieldNickname | FieldInterests | FieldPhoto,
		RevealConditions: RevealConditions{
			AfterMatch:       true,
			AfterChatTurns:   10,
			TimeDelaySeconds: 24 * 60 * 60,
		},
	}
	switch ct {
	case ContextInstant:
		s.Level = StageFull
		s.RevealableFields = FieldNickname | FieldInterests
	case ContextOfficial:
		s.Level = StageVerified
		s.RevealableFields = FieldNickname | FieldInterests | FieldAge | FieldPhoto
	}
	return s
}
