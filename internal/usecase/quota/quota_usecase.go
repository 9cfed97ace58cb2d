// Package quota is the single authority on tier-dependent action limits:
// daily like and super-like allotments and the concurrent interest
// registration cap.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/config"
	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository"
)

type Policy struct {
	cfg       *config.QuotaConfig
	counter   Counter
	accounts  repository.AccountRepository
	interests repository.InterestRepository
	location  *time.Location
	clock     func() time.Time
}

func NewPolicy(
	cfg *config.QuotaConfig,
	counter Counter,
	accounts repository.AccountRepository,
	interests repository.InterestRepository,
) (*Policy, error) {
	loc, err := time.LoadLocation(cfg.ResetTimezone)
	if err != nil {
		return nil, fmt.Errorf("quota reset timezone: %w", err)
	}
	return &Policy{
		cfg:       cfg,
		counter:   counter,
		accounts:  accounts,
		interests: interests,
		location:  loc,
		clock:     time.Now,
	}, nil
}

// WithClock replaces the wall clock; tests use it to simulate day rollover.
func (p *Policy) WithClock(clock func() time.Time) *Policy {
	p.clock = clock
	return p
}

// dailyKey embeds the local calendar date, so a counter read after midnight
// is already an empty counter even if the backend kept the old key alive.
func (p *Policy) dailyKey(accountID string, action domain.Action) string {
	day := p.clock().In(p.location).Format("2006-01-02")
	return fmt.Sprintf("quota:%s:%s:%s", accountID, action, day)
}

func (p *Policy) nextMidnight() time.Time {
	now := p.clock().In(p.location)
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, p.location)
}

func (p *Policy) dailyLimit(limits config.TierLimits, action domain.Action) (int, bool) {
	switch action {
	case domain.ActionSendLike:
		return limits.LikesPerDay, true
	case domain.ActionSendSuperLike:
		return limits.SuperLikesPerDay, true
	}
	return 0, false
}

// CanPerform is the read-only policy check. It never reserves quota; use
// Consume on the mutating path. Quotas are account-global: the same daily
// allotment covers every context the account participates in.
func (p *Policy) CanPerform(ctx context.Context, accountID string, action domain.Action) (domain.QuotaDecision, error) {
	account, err := p.accounts.GetByID(ctx, accountID)
	if err != nil {
		return domain.QuotaDecision{}, err
	}
	limits := p.cfg.Limits(account.Tier)

	switch action {
	case domain.ActionRegisterInterest:
		if limits.MaxConcurrentInterests < 0 {
			return domain.Allowed, nil
		}
		count, err := p.interests.CountActive(ctx, accountID, p.clock())
		if err != nil {
			return domain.QuotaDecision{}, err
		}
		if count >= limits.MaxConcurrentInterests {
			return domain.Deny(domain.ReasonLimitExceeded), nil
		}
		return domain.Allowed, nil

	case domain.ActionSendLike, domain.ActionSendSuperLike:
		limit, _ := p.dailyLimit(limits, action)
		if limit == 0 {
			return domain.Deny(domain.ReasonTierRequired), nil
		}
		if limit < 0 {
			return domain.Allowed, nil
		}
		used, err := p.counter.Get(ctx, p.dailyKey(accountID, action))
		if err != nil {
			return domain.QuotaDecision{}, err
		}
		if used >= int64(limit) {
			return domain.Deny(domain.ReasonLimitExceeded), nil
		}
		return domain.Allowed, nil
	}

	return domain.QuotaDecision{}, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidInput, action)
}

// Consume atomically spends one unit of a daily allotment. The increment
// happens first; an over-limit increment is rolled back, so two concurrent
// requests at limit-1 cannot both pass.
func (p *Policy) Consume(ctx context.Context, accountID string, action domain.Action) (domain.QuotaDecision, error) {
	account, err := p.accounts.GetByID(ctx, accountID)
	if err != nil {
		return domain.QuotaDecision{}, err
	}
	limits := p.cfg.Limits(account.Tier)

	limit, ok := p.dailyLimit(limits, action)
	if !ok {
		return domain.QuotaDecision{}, fmt.Errorf("%w: action %q has no daily allotment", domain.ErrInvalidInput, action)
	}
	if limit == 0 {
		return domain.Deny(domain.ReasonTierRequired), nil
	}

	key := p.dailyKey(accountID, action)
	used, err := p.counter.IncrWithExpiry(ctx, key, p.nextMidnight())
	if err != nil {
		return domain.QuotaDecision{}, err
	}
	if limit > 0 && used > int64(limit) {
		if derr := p.counter.Decr(ctx, key); derr != nil {
			return domain.QuotaDecision{}, derr
		}
		return domain.Deny(domain.ReasonLimitExceeded), nil
	}
	return domain.Allowed, nil
}

// Refund returns one previously consumed unit, for rollbacks after a failed
// persist.
func (p *Policy) Refund(ctx context.Context, accountID string, action domain.Action) error {
	return p.counter.Decr(ctx, p.dailyKey(accountID, action))
}

// InterestCap returns the tier's concurrent registration cap for the
// conditional insert (negative means uncapped).
func (p *Policy) InterestCap(ctx context.Context, accountID string) (int, error) {
	account, err := p.accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return p.cfg.Limits(account.Tier).MaxConcurrentInterests, nil
}

// Usage reports the account's current consumption for client display.
func (p *Policy) Usage(ctx context.Context, accountID string) (*domain.QuotaUsage, error) {
	likes, err := p.counter.Get(ctx, p.dailyKey(accountID, domain.ActionSendLike))
	if err != nil {
		return nil, err
	}
	supers, err := p.counter.Get(ctx, p.dailyKey(accountID, domain.ActionSendSuperLike))
	if err != nil {
		return nil, err
	}
	active, err := p.interests.CountActive(ctx, accountID, p.clock())
	if err != nil {
		return nil, err
	}
	return &domain.QuotaUsage{
		LikesToday:      likes,
		SuperLikesToday: supers,
		ActiveInterests: active,
	}, nil
}
