package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/config"
	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuotaConfig() *config.QuotaConfig {
	return &config.QuotaConfig{
		Tiers: map[domain.SubscriptionTier]config.TierLimits{
			domain.TierBasic:    {MaxConcurrentInterests: 5, LikesPerDay: 20, SuperLikesPerDay: 0},
			domain.TierAdvanced: {MaxConcurrentInterests: 20, LikesPerDay: 50, SuperLikesPerDay: 3},
			domain.TierPremium:  {MaxConcurrentInterests: -1, LikesPerDay: -1, SuperLikesPerDay: 10},
		},
		CooldownHours: 24,
		ResetTimezone: "Asia/Seoul",
	}
}

func newTestPolicy(t *testing.T, tier domain.SubscriptionTier, clock func() time.Time) (*Policy, string, *memory.InterestRepository) {
	t.Helper()
	accounts := memory.NewAccountRepository()
	interests := memory.NewInterestRepository()

	accountID := uuid.NewString()
	require.NoError(t, accounts.Create(context.Background(), &domain.Account{ID: accountID, Tier: tier}))

	counter := NewMemoryCounter()
	if clock != nil {
		counter.WithClock(clock)
	}
	policy, err := NewPolicy(testQuotaConfig(), counter, accounts, interests)
	require.NoError(t, err)
	if clock != nil {
		policy.WithClock(clock)
	}
	return policy, accountID, interests
}

func TestConsumeDailyLimit(t *testing.T) {
	policy, accountID, _ := newTestPolicy(t, domain.TierAdvanced, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := policy.Consume(ctx, accountID, domain.ActionSendSuperLike)
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "super-like %d should be allowed", i+1)
	}

	decision, err := policy.Consume(ctx, accountID, domain.ActionSendSuperLike)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.ReasonLimitExceeded, decision.Reason)
}

func TestConsumeZeroAllotmentIsTierGate(t *testing.T) {
	policy, accountID, _ := newTestPolicy(t, domain.TierBasic, nil)

	decision, err := policy.Consume(context.Background(), accountID, domain.ActionSendSuperLike)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.ReasonTierRequired, decision.Reason)
}

func TestConsumeUncappedForPremium(t *testing.T) {
	policy, accountID, _ := newTestPolicy(t, domain.TierPremium, nil)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		decision, err := policy.Consume(ctx, accountID, domain.ActionSendLike)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}
}

func TestConsumeConcurrentNeverExceedsLimit(t *testing.T) {
	policy, accountID, _ := newTestPolicy(t, domain.TierAdvanced, nil)
	ctx := context.Background()

	const attempts = 200
	var wg sync.WaitGroup
	allowed := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := policy.Consume(ctx, accountID, domain.ActionSendLike)
			require.NoError(t, err)
			if decision.Allowed {
				allowed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(allowed)

	assert.Equal(t, 50, len(allowed), "exactly the daily limit must pass")
}

func TestQuotaResetsAtLocalMidnight(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 23, 50, 0, 0, seoul)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	policy, accountID, _ := newTestPolicy(t, domain.TierAdvanced, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := policy.Consume(ctx, accountID, domain.ActionSendSuperLike)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}
	decision, err := policy.Consume(ctx, accountID, domain.ActionSendSuperLike)
	require.NoError(t, err)
	require.False(t, decision.Allowed)

	// Cross midnight: the allotment is fresh without any sweep having run.
	mu.Lock()
	now = now.Add(15 * time.Minute)
	mu.Unlock()

	decision, err = policy.Consume(ctx, accountID, domain.ActionSendSuperLike)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	usage, err := policy.Usage(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage.SuperLikesToday)
}

func TestRefundReturnsUnit(t *testing.T) {
	policy, accountID, _ := newTestPolicy(t, domain.TierAdvanced, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := policy.Consume(ctx, accountID, domain.ActionSendSuperLike)
		require.NoError(t, err)
	}
	require.NoError(t, policy.Refund(ctx, accountID, domain.ActionSendSuperLike))

	decision, err := policy.Consume(ctx, accountID, domain.ActionSendSuperLike)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCanPerformInterestCap(t *testing.T) {
	policy, accountID, interests := newTestPolicy(t, domain.TierBasic, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		created, err := interests.CreateIfUnderCap(ctx, &domain.InterestRegistration{
			ID:        uuid.NewString(),
			AccountID: accountID,
			Kind:      "PHONE",
		}, 5)
		require.NoError(t, err)
		require.True(t, created)
	}

	decision, err := policy.CanPerform(ctx, accountID, domain.ActionRegisterInterest)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.ReasonLimitExceeded, decision.Reason)
}

// The cap must hold when many registrations race at cap-1: the conditional
// insert is the gate, not a separate count read.
func TestInterestCapUnderConcurrency(t *testing.T) {
	_, accountID, interests := newTestPolicy(t, domain.TierBasic, nil)
	ctx := context.Background()

	const attempts = 100
	var wg sync.WaitGroup
	created := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := interests.CreateIfUnderCap(ctx, &domain.InterestRegistration{
				ID:        uuid.NewString(),
				AccountID: accountID,
				Kind:      "PHONE",
			}, 5)
			require.NoError(t, err)
			if ok {
				created <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(created)

	assert.Equal(t, 5, len(created))
	count, err := interests.CountActive(ctx, accountID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
