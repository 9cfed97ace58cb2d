package anonymity

import (
	"testing"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var matchedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func defaultInputs() Inputs {
	settings := domain.DefaultAnonymitySettings(domain.ContextCreated)
	return Inputs{
		Subject:     settings,
		Counterpart: settings,
		MatchedAt:   matchedAt,
		Now:         matchedAt,
	}
}

func TestInitialStageIsPartialForCreatedContext(t *testing.T) {
	p := NewPolicy()
	s := domain.DefaultAnonymitySettings(domain.ContextCreated)
	assert.Equal(t, domain.StagePartial, p.InitialStage(s, s))
}

func TestStageProgressionToRevealed(t *testing.T) {
	p := NewPolicy()
	in := defaultInputs()

	// Immediately after the match: base stage only.
	assert.Equal(t, domain.StagePartial, p.RevealStage(in))

	// Time delay met but chat turns not: partial progress lifts to VERIFIED.
	in.Now = matchedAt.Add(24 * time.Hour)
	assert.Equal(t, domain.StageVerified, p.RevealStage(in))

	// All configured conditions met: REVEALED.
	in.ChatTurns = 10
	assert.Equal(t, domain.StageRevealed, p.RevealStage(in))
}

func TestTimeDelayClockSkewTolerance(t *testing.T) {
	p := NewPolicy()
	in := defaultInputs()
	in.ChatTurns = 10

	in.Now = matchedAt.Add(24*time.Hour - 2*time.Second)
	assert.Equal(t, domain.StageVerified, p.RevealStage(in), "two seconds early is outside tolerance")

	in.Now = matchedAt.Add(24*time.Hour - time.Second)
	assert.Equal(t, domain.StageRevealed, p.RevealStage(in), "one second early is within tolerance")
}

func TestMostRestrictiveProfileWins(t *testing.T) {
	p := NewPolicy()
	in := defaultInputs()
	in.Now = matchedAt.Add(48 * time.Hour)
	in.ChatTurns = 50

	// The counterpart additionally demands mutual consent.
	in.Counterpart.RevealConditions.MutualConsent = true
	assert.Equal(t, domain.StageVerified, p.RevealStage(in))

	in.MutualConsent = true
	assert.Equal(t, domain.StageRevealed, p.RevealStage(in))
}

func TestAfterMatchDisabledFreezesStage(t *testing.T) {
	p := NewPolicy()
	in := defaultInputs()
	in.Subject.RevealConditions.AfterMatch = false
	in.Now = matchedAt.Add(1000 * time.Hour)
	in.ChatTurns = 1000
	in.MutualConsent = true

	assert.Equal(t, domain.StagePartial, p.RevealStage(in))
}

func TestStageMonotoneOverTime(t *testing.T) {
	p := NewPolicy()
	in := defaultInputs()
	in.ChatTurns = 10

	prev := -1
	for _, elapsed := range []time.Duration{0, time.Hour, 23 * time.Hour, 24 * time.Hour, 200 * time.Hour} {
		in.Now = matchedAt.Add(elapsed)
		rank := p.RevealStage(in).Rank()
		require.GreaterOrEqual(t, rank, prev, "stage regressed at %v", elapsed)
		prev = rank
	}
}

func TestFieldsVisibleToIntersectsRevealable(t *testing.T) {
	p := NewPolicy()
	subject := domain.AnonymitySettings{
		Level:            domain.StagePartial,
		RevealableFields: domain.FieldNickname | domain.FieldInterests,
	}

	visible := p.FieldsVisibleTo(subject, domain.StageRevealed, true)
	assert.True(t, visible.Has(domain.FieldNickname))
	assert.True(t, visible.Has(domain.FieldInterests))
	assert.False(t, visible.Has(domain.FieldAge), "age is not in the revealable set")
	assert.False(t, visible.Has(domain.FieldRealName), "real name is not in the revealable set")
}

func TestFieldsVisibleToPreMatchIsMinimal(t *testing.T) {
	p := NewPolicy()
	subject := domain.AnonymitySettings{
		Level:            domain.StageRevealed,
		RevealableFields: domain.AllFields,
	}

	// No configuration overrides the pre-match floor.
	assert.Equal(t, domain.FieldNickname, p.FieldsVisibleTo(subject, domain.StageRevealed, false))
}

func TestFieldsNeverShrinkAcrossStages(t *testing.T) {
	p := NewPolicy()
	subject := domain.DefaultAnonymitySettings(domain.ContextCreated)

	stages := []domain.RevealStage{domain.StageFull, domain.StagePartial, domain.StageVerified, domain.StageRevealed}
	var prev domain.FieldSet
	for _, stage := range stages {
		visible := p.FieldsVisibleTo(subject, stage, true)
		require.Equal(t, prev, prev&visible, "stage %s hid a previously visible field", stage)
		prev = visible
	}
}
