package like

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/config"
	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository/memory"
	"github.com/b0ho/glimpse-sub008/internal/usecase/anonymity"
	"github.com/b0ho/glimpse-sub008/internal/usecase/interest"
	"github.com/b0ho/glimpse-sub008/internal/usecase/profile"
	"github.com/b0ho/glimpse-sub008/internal/usecase/quota"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	engine    *Engine
	profiles  *profile.Store
	accounts  *memory.AccountRepository
	matches   *memory.MatchRepository
	reports   *memory.ReportRepository
	quota     *quota.Policy
	interests *interest.Service

	mu  sync.Mutex
	now time.Time
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		accounts: memory.NewAccountRepository(),
		matches:  memory.NewMatchRepository(),
		reports:  memory.NewReportRepository(),
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.matches.WithClock(h.clock)

	likes := memory.NewLikeRepository().WithClock(h.clock)
	interestRepo := memory.NewInterestRepository()

	cfg := &config.QuotaConfig{
		Tiers: map[domain.SubscriptionTier]config.TierLimits{
			domain.TierBasic:    {MaxConcurrentInterests: 5, LikesPerDay: 20, SuperLikesPerDay: 0},
			domain.TierAdvanced: {MaxConcurrentInterests: 20, LikesPerDay: 50, SuperLikesPerDay: 3},
			domain.TierPremium:  {MaxConcurrentInterests: -1, LikesPerDay: -1, SuperLikesPerDay: 10},
		},
		CooldownHours:   24,
		ResetTimezone:   "UTC",
		InstantTTLHours: 24,
	}

	counter := quota.NewMemoryCounter().WithClock(h.clock)
	quotaPolicy, err := quota.NewPolicy(cfg, counter, h.accounts, interestRepo)
	require.NoError(t, err)
	quotaPolicy.WithClock(h.clock)
	h.quota = quotaPolicy

	h.profiles = profile.NewStore(memory.NewProfileRepository(), likes, cfg.InstantTTL(), zap.NewNop())
	h.profiles.WithClock(h.clock)

	h.interests = interest.NewService(interestRepo, quotaPolicy).WithClock(h.clock)

	h.engine = NewEngine(
		likes,
		h.matches,
		h.reports,
		h.accounts,
		h.profiles,
		quotaPolicy,
		anonymity.NewPolicy(),
		nil,
		nil,
		cfg.Cooldown(),
		zap.NewNop(),
	).WithClock(h.clock)

	return h
}

func (h *harness) account(t *testing.T, tier domain.SubscriptionTier) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, h.accounts.Create(context.Background(), &domain.Account{ID: id, Tier: tier}))
	return id
}

func (h *harness) member(t *testing.T, tier domain.SubscriptionTier, contextID string) (string, *domain.Profile) {
	t.Helper()
	accountID := h.account(t, tier)
	p, err := h.profiles.GetOrCreate(context.Background(), accountID, domain.ContextCreated, contextID)
	require.NoError(t, err)
	return accountID, p
}

func TestSendLikeSelfRejected(t *testing.T) {
	h := newHarness(t)
	_, p := h.member(t, domain.TierBasic, "group_42")

	_, err := h.engine.SendLike(context.Background(), p.AccountID, &SendLikeRequest{
		FromProfileID: p.ID, ToProfileID: p.ID, ContextID: "group_42",
	})
	assert.ErrorIs(t, err, domain.ErrSelfLike)
}

func TestSendLikeCrossContextRejected(t *testing.T) {
	h := newHarness(t)
	acctA, a := h.member(t, domain.TierBasic, "group_42")
	_, b := h.member(t, domain.TierBasic, "group_43")

	_, err := h.engine.SendLike(context.Background(), acctA, &SendLikeRequest{
		FromProfileID: a.ID, ToProfileID: b.ID, ContextID: "group_42",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidContext)
}

func TestMutualLikeFormsOneMatchEitherOrder(t *testing.T) {
	for _, reversed := range []bool{false, true} {
		h := newHarness(t)
		acctA, a := h.member(t, domain.TierBasic, "group_42")
		acctB, b := h.member(t, domain.TierBasic, "group_42")
		ctx := context.Background()

		first := &SendLikeRequest{FromProfileID: a.ID, ToProfileID: b.ID, ContextID: "group_42"}
		second := &SendLikeRequest{FromProfileID: b.ID, ToProfileID: a.ID, ContextID: "group_42"}
		firstAcct, secondAcct := acctA, acctB
		if reversed {
			first, second = second, first
			firstAcct, secondAcct = secondAcct, firstAcct
		}

		r1, err := h.engine.SendLike(ctx, firstAcct, first)
		require.NoError(t, err)
		assert.False(t, r1.Matched)
		assert.Equal(t, domain.LikePending, r1.Like.Status)

		r2, err := h.engine.SendLike(ctx, secondAcct, second)
		require.NoError(t, err)
		require.True(t, r2.Matched)
		require.NotNil(t, r2.Match)

		// The earlier sender observes the same match on idempotent resend.
		r3, err := h.engine.SendLike(ctx, firstAcct, first)
		require.NoError(t, err)
		require.True(t, r3.Matched)
		assert.Equal(t, r2.Match.ID, r3.Match.ID)
	}
}

func TestConcurrentReciprocalLikesYieldExactlyOneMatch(t *testing.T) {
	h := newHarness(t)
	acctA, a := h.member(t, domain.TierPremium, "group_42")
	acctB, b := h.member(t, domain.TierPremium, "group_42")
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	matchIDs := make(chan string, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r, err := h.engine.SendLike(ctx, acctA, &SendLikeRequest{
				FromProfileID: a.ID, ToProfileID: b.ID, ContextID: "group_42",
			})
			if err == nil && r.Matched {
				matchIDs <- r.Match.ID
			}
		}()
		go func() {
			defer wg.Done()
			r, err := h.engine.SendLike(ctx, acctB, &SendLikeRequest{
				FromProfileID: b.ID, ToProfileID: a.ID, ContextID: "group_42",
			})
			if err == nil && r.Matched {
				matchIDs <- r.Match.ID
			}
		}()
	}
	wg.Wait()
	close(matchIDs)

	seen := make(map[string]bool)
	for id := range matchIDs {
		seen[id] = true
	}
	assert.LessOrEqual(t, len(seen), 1, "all matched observers must see the same match")

	persisted, err := h.matches.ListActiveByProfiles(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, persisted, 1, "exactly one match row persists")
}

// unstableMatches fails the first n match inserts, standing in for a storage
// blip between the reciprocal-like claim and the match write.
type unstableMatches struct {
	*memory.MatchRepository
	mu       sync.Mutex
	failures int
}

func (r *unstableMatches) CreateCanonical(ctx context.Context, m *domain.Match) (*domain.Match, error) {
	r.mu.Lock()
	fail := r.failures > 0
	if fail {
		r.failures--
	}
	r.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset by peer")
	}
	return r.MatchRepository.CreateCanonical(ctx, m)
}

func TestRetryAfterFailedMatchInsertFormsMatch(t *testing.T) {
	h := newHarness(t)
	acctA, a := h.member(t, domain.TierBasic, "group_42")
	acctB, b := h.member(t, domain.TierBasic, "group_42")
	ctx := context.Background()

	reqA := &SendLikeRequest{FromProfileID: a.ID, ToProfileID: b.ID, ContextID: "group_42"}
	reqB := &SendLikeRequest{FromProfileID: b.ID, ToProfileID: a.ID, ContextID: "group_42"}

	_, err := h.engine.SendLike(ctx, acctA, reqA)
	require.NoError(t, err)

	h.engine.matches = &unstableMatches{MatchRepository: h.matches, failures: 1}

	_, err = h.engine.SendLike(ctx, acctB, reqB)
	var tse *domain.TransientStorageError
	require.ErrorAs(t, err, &tse)

	// Retrying with the same (from, to, context) tuple resumes the
	// interrupted attempt instead of tripping the cooldown.
	r, err := h.engine.SendLike(ctx, acctB, reqB)
	require.NoError(t, err)
	require.True(t, r.Matched)
	require.NotNil(t, r.Match)
	assert.Equal(t, domain.LikeMatched, r.Like.Status)

	// The other side's resend converges on the same match.
	r2, err := h.engine.SendLike(ctx, acctA, reqA)
	require.NoError(t, err)
	require.True(t, r2.Matched)
	assert.Equal(t, r.Match.ID, r2.Match.ID)

	persisted, err := h.matches.ListActiveByProfiles(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}

func TestResendByClaimedSideCompletesMatch(t *testing.T) {
	h := newHarness(t)
	acctA, a := h.member(t, domain.TierBasic, "group_42")
	acctB, b := h.member(t, domain.TierBasic, "group_42")
	ctx := context.Background()

	reqA := &SendLikeRequest{FromProfileID: a.ID, ToProfileID: b.ID, ContextID: "group_42"}
	reqB := &SendLikeRequest{FromProfileID: b.ID, ToProfileID: a.ID, ContextID: "group_42"}

	_, err := h.engine.SendLike(ctx, acctA, reqA)
	require.NoError(t, err)

	h.engine.matches = &unstableMatches{MatchRepository: h.matches, failures: 1}

	_, err = h.engine.SendLike(ctx, acctB, reqB)
	var tse *domain.TransientStorageError
	require.ErrorAs(t, err, &tse)

	// The first sender's like was already claimed by the failed attempt;
	// its resend finishes the match rather than erroring on the lookup.
	r, err := h.engine.SendLike(ctx, acctA, reqA)
	require.NoError(t, err)
	require.True(t, r.Matched)
	require.NotNil(t, r.Match)

	r2, err := h.engine.SendLike(ctx, acctB, reqB)
	require.NoError(t, err)
	require.True(t, r2.Matched)
	assert.Equal(t, r.Match.ID, r2.Match.ID)

	persisted, err := h.matches.ListActiveByProfiles(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, persisted, 1)
}

func TestCooldownAfterCancel(t *testing.T) {
	h := newHarness(t)
	acctA, a := h.member(t, domain.TierBasic, "group_42")
	_, b := h.member(t, domain.TierBasic, "group_42")
	ctx := context.Background()

	req := &SendLikeRequest{FromProfileID: a.ID, ToProfileID: b.ID, ContextID: "group_42"}

	r, err := h.engine.SendLike(ctx, acctA, req)
	require.NoError(t, err)
	require.NoError(t, h.engine.CancelLike(ctx, acctA, r.Like.ID))

	// Cancelled rows still anchor the window.
	_, err = h.engine.SendLike(ctx, acctA, req)
	denial, ok := domain.AsDenial(err)
	require.True(t, ok, "expected a policy denial, got %v", err)
	assert.Equal(t, domain.ReasonCooldownActive, denial.Reason)

	h.advance(24*time.Hour + time.Minute)
	r2, err := h.engine.SendLike(ctx, acctA, req)
	require.NoError(t, err)
	assert.Equal(t, domain.LikePending, r2.Like.Status)
	assert.NotEqual(t, r.Like.ID, r2.Like.ID)
}

func TestCancelAfterMatchConflicts(t *testing.T) {
	h := newHarness(t)
	acctA, a := h.member(t, domain.TierBasic, "group_42")
	acctB, b := h.member(t, domain.TierBasic, "group_42")
	ctx := context.Background()

	r1, err := h.engine.SendLike(ctx, acctA, &SendLikeRequest{FromProfileID: a.ID, ToProfileID: b.ID, ContextID: "group_42"})
	require.NoError(t, err)
	_, err = h.engine.SendLike(ctx, acctB, &SendLikeRequest{FromProfileID: b.ID, ToProfileID: a.ID, ContextID: "group_42"})
	require.NoError(t, err)

	err = h.engine.CancelLike(ctx, acctA, r1.Like.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyMatched)
}

func TestCancelByNonIssuerIsNotFound(t *testing.T) {
	h := newHarness(t)
	acctA, a := h.member(t, domain.TierBasic, "group_42")
	acctB, b := h.member(t, domain.TierBasic, "group_42")
	ctx := context.Background()

	r, err := h.engine.SendLike(ctx, acctA, &SendLikeRequest{FromProfileID: a.ID, ToProfileID: b.ID, ContextID: "group_42"})
	require.NoError(t, err)

	err = h.engine.CancelLike(ctx, acctB, r.Like.ID)
	assert.ErrorIs(t, err, domain.ErrLikeNotFound)
}

func TestSuperLikeTierGate(t *testing.T) {
	h := newHarness(t)
	acctA, a := h.member(t, domain.TierBasic, "group_42")
	_, b := h.member(t, domain.TierBasic, "group_42")

	_, err := h.engine.SendLike(context.Background(), acctA, &SendLikeRequest{
		FromProfileID: a.ID, ToProfileID: b.ID, ContextID: "group_42", IsSuper: true,
	})
	denial, ok := domain.AsDenial(err)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonTierRequired, denial.Reason)
}

func TestListReceivedPremiumGate(t *testing.T) {
	h := newHarness(t)
	acctA, a := h.member(t, domain.TierBasic, "group_42")
	acctB, b := h.member(t, domain.TierBasic, "group_42")
	ctx := context.Background()

	_, err := h.engine.SendLike(ctx, acctA, &SendLikeRequest{FromProfileID: a.ID, ToProfileID: b.ID, ContextID: "group_42"})
	require.NoError(t, err)

	_, err = h.engine.ListReceived(ctx, acctB, 20, 0)
	denial, ok := domain.AsDenial(err)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonTierRequired, denial.Reason)

	require.NoError(t, h.accounts.UpdateTier(ctx, acctB, domain.TierPremium))
	received, err := h.engine.ListReceived(ctx, acctB, 20, 0)
	require.NoError(t, err)
	require.Len(t, received, 1)

	// Pre-match senders are nickname-only no matter their settings.
	sender := received[0].Sender
	assert.NotEmpty(t, sender.Nickname)
	assert.Nil(t, sender.Age)
	assert.Empty(t, sender.Interests)
	assert.Nil(t, sender.PhotoURL)
	assert.Nil(t, sender.RealName)
}

func TestReportMismatchDeactivatesWithoutRefund(t *testing.T) {
	h := newHarness(t)
	acctA, a := h.member(t, domain.TierAdvanced, "group_42")
	acctB, b := h.member(t, domain.TierAdvanced, "group_42")
	ctx := context.Background()

	_, err := h.engine.SendLike(ctx, acctA, &SendLikeRequest{FromProfileID: a.ID, ToProfileID: b.ID, ContextID: "group_42"})
	require.NoError(t, err)
	r, err := h.engine.SendLike(ctx, acctB, &SendLikeRequest{FromProfileID: b.ID, ToProfileID: a.ID, ContextID: "group_42"})
	require.NoError(t, err)
	require.True(t, r.Matched)

	usageBefore, err := h.quota.Usage(ctx, acctA)
	require.NoError(t, err)

	report, err := h.engine.ReportMismatch(ctx, acctA, r.Match.ID, "misrepresented context")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportPending, report.Status)

	views, err := h.engine.ListMatches(ctx, acctA)
	require.NoError(t, err)
	assert.Empty(t, views, "reported match leaves both active lists")

	usageAfter, err := h.quota.Usage(ctx, acctA)
	require.NoError(t, err)
	assert.Equal(t, usageBefore.LikesToday, usageAfter.LikesToday, "the spent like stays spent")
}

func TestReportByOutsiderIsNotFound(t *testing.T) {
	h := newHarness(t)
	acctA, a := h.member(t, domain.TierBasic, "group_42")
	acctB, b := h.member(t, domain.TierBasic, "group_42")
	outsider := h.account(t, domain.TierBasic)
	ctx := context.Background()

	_, err := h.engine.SendLike(ctx, acctA, &SendLikeRequest{FromProfileID: a.ID, ToProfileID: b.ID, ContextID: "group_42"})
	require.NoError(t, err)
	r, err := h.engine.SendLike(ctx, acctB, &SendLikeRequest{FromProfileID: b.ID, ToProfileID: a.ID, ContextID: "group_42"})
	require.NoError(t, err)

	_, err = h.engine.ReportMismatch(ctx, outsider, r.Match.ID, "snooping")
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)
}

func TestMatchListSanitizesCounterpart(t *testing.T) {
	h := newHarness(t)
	acctA, a := h.member(t, domain.TierBasic, "group_42")
	acctB, b := h.member(t, domain.TierBasic, "group_42")
	ctx := context.Background()

	b.RealName = strptr("Park Minseo")
	b.Age = intptr(31)
	_, err := h.profiles.Update(ctx, acctB, b)
	require.NoError(t, err)

	_, err = h.engine.SendLike(ctx, acctA, &SendLikeRequest{FromProfileID: a.ID, ToProfileID: b.ID, ContextID: "group_42"})
	require.NoError(t, err)
	_, err = h.engine.SendLike(ctx, acctB, &SendLikeRequest{FromProfileID: b.ID, ToProfileID: a.ID, ContextID: "group_42"})
	require.NoError(t, err)

	views, err := h.engine.ListMatches(ctx, acctA)
	require.NoError(t, err)
	require.Len(t, views, 1)

	counterpart := views[0].Counterpart
	assert.Equal(t, b.ID, counterpart.ProfileID)
	assert.Nil(t, counterpart.RealName)
	assert.Nil(t, counterpart.Age, "age is locked until VERIFIED")
}

// Mirrors the full journey: interest registration under the BASIC cap, a
// mutual like in a created group, and reveal progression from PARTIAL to
// REVEALED as time passes and chat accumulates.
func TestEndToEndScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	acctX, x := h.member(t, domain.TierBasic, "group_42")
	acctY, y := h.member(t, domain.TierBasic, "group_42")

	reg, err := h.interests.Register(ctx, acctX, &interest.RegisterRequest{Kind: "PHONE", ContextType: "CREATED"})
	require.NoError(t, err)
	usage, err := h.quota.Usage(ctx, acctX)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.ActiveInterests)
	assert.NotEmpty(t, reg.ID)

	rx, err := h.engine.SendLike(ctx, acctX, &SendLikeRequest{FromProfileID: x.ID, ToProfileID: y.ID, ContextID: "group_42"})
	require.NoError(t, err)
	require.False(t, rx.Matched)

	ry, err := h.engine.SendLike(ctx, acctY, &SendLikeRequest{FromProfileID: y.ID, ToProfileID: x.ID, ContextID: "group_42"})
	require.NoError(t, err)
	require.True(t, ry.Matched)
	matchID := ry.Match.ID

	// The first sender observes the same match.
	rx2, err := h.engine.SendLike(ctx, acctX, &SendLikeRequest{FromProfileID: x.ID, ToProfileID: y.ID, ContextID: "group_42"})
	require.NoError(t, err)
	require.True(t, rx2.Matched)
	assert.Equal(t, matchID, rx2.Match.ID)

	// Immediately after matching: PARTIAL, nickname and interests only.
	status, err := h.engine.RevealStage(ctx, acctX, matchID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StagePartial, status.Stage)
	assert.ElementsMatch(t, []string{"nickname", "interests"}, status.VisibleFields)

	// 24h of simulated time and 10 chat turns later: fully revealed.
	h.advance(24*time.Hour + time.Minute)
	status, err = h.engine.RevealStage(ctx, acctX, matchID, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.StageRevealed, status.Stage)

	// Monotonicity: a stale recompute with fewer turns cannot regress it.
	status, err = h.engine.RevealStage(ctx, acctX, matchID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StageRevealed, status.Stage)
}

func strptr(s string) *string { return &s }
func intptr(n int) *int       { return &n }
