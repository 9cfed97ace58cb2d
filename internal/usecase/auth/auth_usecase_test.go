package auth

import (
	"context"
	"testing"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// captureSender records the last code instead of delivering it.
type captureSender struct {
	code string
}

func (s *captureSender) SendCode(_ context.Context, _, code string) error {
	s.code = code
	return nil
}

func newTestService() (*Service, *captureSender, *memory.AccountRepository) {
	accounts := memory.NewAccountRepository()
	sender := &captureSender{}
	svc := NewService(accounts, DevProvider{}, sender, zap.NewNop())
	return svc, sender, accounts
}

func TestRequestCodeCreatesAccountOnce(t *testing.T) {
	svc, sender, _ := newTestService()
	ctx := context.Background()

	a1, err := svc.RequestCode(ctx, "+821012345678")
	require.NoError(t, err)
	assert.Equal(t, domain.TierBasic, a1.Tier)
	first := sender.code
	require.Len(t, first, 6)

	a2, err := svc.RequestCode(ctx, "+821012345678")
	require.NoError(t, err)
	assert.Equal(t, a1.ID, a2.ID, "same phone resolves to the same account")
	require.Len(t, sender.code, 6)
}

func TestIssueTokenVerifiesCode(t *testing.T) {
	svc, sender, accounts := newTestService()
	ctx := context.Background()

	a, err := svc.RequestCode(ctx, "+821012345678")
	require.NoError(t, err)

	_, err = svc.IssueToken(ctx, "+821012345678", "000000")
	assert.ErrorIs(t, err, domain.ErrCodeMismatch)

	resp, err := svc.IssueToken(ctx, "+821012345678", sender.code)
	require.NoError(t, err)
	assert.Equal(t, a.ID, resp.AccountID)
	assert.NotEmpty(t, resp.Token)

	stored, err := accounts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified())
	assert.Nil(t, stored.VerificationHash, "code is single-use")

	// The consumed code no longer works.
	_, err = svc.IssueToken(ctx, "+821012345678", sender.code)
	assert.ErrorIs(t, err, domain.ErrCodeMismatch)
}

func TestIssueTokenUnknownPhone(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.IssueToken(context.Background(), "+821099999999", "123456")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestUpgradeTier(t *testing.T) {
	svc, sender, _ := newTestService()
	ctx := context.Background()

	a, err := svc.RequestCode(ctx, "+821012345678")
	require.NoError(t, err)

	_, err = svc.UpgradeTier(ctx, a.ID, domain.TierPremium)
	assert.ErrorIs(t, err, domain.ErrNotVerified, "unverified accounts cannot change tier")

	_, err = svc.IssueToken(ctx, "+821012345678", sender.code)
	require.NoError(t, err)

	upgraded, err := svc.UpgradeTier(ctx, a.ID, domain.TierPremium)
	require.NoError(t, err)
	assert.Equal(t, domain.TierPremium, upgraded.Tier)

	_, err = svc.UpgradeTier(ctx, a.ID, "PLATINUM")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHashPhoneIsStableAndOpaque(t *testing.T) {
	h1 := HashPhone("+821012345678")
	h2 := HashPhone("+821012345678")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.NotContains(t, h1, "1234")
}

func TestJWTProviderRoundTrip(t *testing.T) {
	p := NewJWTProvider("test-secret", time.Hour)

	token, expiresAt, err := p.IssueToken("acct-42")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	accountID, err := p.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "acct-42", accountID)
}

func TestJWTProviderRejectsTampering(t *testing.T) {
	p := NewJWTProvider("test-secret", time.Hour)
	other := NewJWTProvider("other-secret", time.Hour)

	token, _, err := other.IssueToken("acct-42")
	require.NoError(t, err)

	_, err = p.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = p.Authenticate(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestJWTProviderRejectsExpiredToken(t *testing.T) {
	p := NewJWTProvider("test-secret", time.Hour)
	p.clock = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := p.IssueToken("acct-42")
	require.NoError(t, err)

	p.clock = time.Now
	_, err = p.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
