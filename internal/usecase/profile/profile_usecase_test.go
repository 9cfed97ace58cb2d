package profile

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(clock func() time.Time) *Store {
	s := NewStore(memory.NewProfileRepository(), memory.NewLikeRepository(), 24*time.Hour, zap.NewNop())
	if clock != nil {
		s.WithClock(clock)
	}
	return s
}

func strptr(s string) *string { return &s }
func intptr(n int) *int       { return &n }

func TestGetOrCreateIsIdempotent(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()

	first, err := store.GetOrCreate(ctx, "acct-1", domain.ContextCreated, "group_42")
	require.NoError(t, err)
	second, err := store.GetOrCreate(ctx, "acct-1", domain.ContextCreated, "group_42")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateConcurrentFirstEntry(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()

	// Every racer misses the read and attempts the insert; losers must land
	// on the winner's row via the unique key, not surface an error.
	const n = 20
	var wg sync.WaitGroup
	ids := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := store.GetOrCreate(ctx, "acct-1", domain.ContextCreated, "group_42")
			if err != nil {
				errs <- err
				return
			}
			ids <- p.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent first entry failed: %v", err)
	}
	seen := make(map[string]bool)
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1, "all racers resolve the same profile")

	active, err := store.ListOwned(ctx, "acct-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestGetOrCreateSeparateProfilesPerContext(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()

	a, err := store.GetOrCreate(ctx, "acct-1", domain.ContextCreated, "group_42")
	require.NoError(t, err)
	b, err := store.GetOrCreate(ctx, "acct-1", domain.ContextCreated, "group_43")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, domain.StagePartial, a.Anonymity.Level)
}

func TestGetOrCreateContextValidation(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx, "acct-1", "BOGUS", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidContext)

	// All context types except LOCATION require a context key.
	_, err = store.GetOrCreate(ctx, "acct-1", domain.ContextCreated, "")
	assert.ErrorIs(t, err, domain.ErrInvalidContext)

	_, err = store.GetOrCreate(ctx, "acct-1", domain.ContextLocation, "")
	assert.NoError(t, err)
}

func TestResolveOwnedRejectsForeignProfile(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()

	p, err := store.GetOrCreate(ctx, "acct-1", domain.ContextCreated, "group_42")
	require.NoError(t, err)

	// Another account addressing the profile gets not-found, not forbidden.
	_, err = store.ResolveOwned(ctx, "acct-2", p.ID)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	got, err := store.ResolveOwned(ctx, "acct-1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestInstantProfileLazyExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(func() time.Time { return now })
	ctx := context.Background()

	p, err := store.GetOrCreate(ctx, "acct-1", domain.ContextInstant, "meetup_7")
	require.NoError(t, err)
	require.NotNil(t, p.ExpiresAt)

	// One minute past the TTL: the read itself observes expiry.
	now = now.Add(24*time.Hour + time.Minute)
	_, err = store.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	// Re-entry mints a fresh identity, not the purged one.
	fresh, err := store.GetOrCreate(ctx, "acct-1", domain.ContextInstant, "meetup_7")
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, fresh.ID)
}

func TestSweepExpiredPurgesInstantProfiles(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(func() time.Time { return now })
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx, "acct-1", domain.ContextInstant, "meetup_7")
	require.NoError(t, err)
	_, err = store.GetOrCreate(ctx, "acct-2", domain.ContextCreated, "group_42")
	require.NoError(t, err)

	now = now.Add(25 * time.Hour)
	n, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the instant profile expires")
}

func TestSanitizeStripsAccountAndHiddenFields(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()

	p, err := store.GetOrCreate(ctx, "acct-1", domain.ContextCreated, "group_42")
	require.NoError(t, err)
	p.Nickname = "quietfox"
	p.Age = intptr(29)
	p.Interests = []string{"hiking", "jazz"}
	p.PhotoURL = strptr("https://img.example/1.jpg")
	p.RealName = strptr("Kim Jiwoo")
	_, err = store.Update(ctx, "acct-1", p)
	require.NoError(t, err)

	pub := store.Sanitize(p, domain.FieldNickname|domain.FieldInterests)
	assert.Equal(t, "quietfox", pub.Nickname)
	assert.Equal(t, []string{"hiking", "jazz"}, pub.Interests)
	assert.Nil(t, pub.Age)
	assert.Nil(t, pub.PhotoURL)
	assert.Nil(t, pub.RealName)

	raw, err := json.Marshal(pub)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "acct-1")
	assert.NotContains(t, string(raw), "Jiwoo")
}

// Deliberate cross-context injection: fields copied from a different
// context's profile onto the sanitization input must not survive unless the
// visible set grants them, and identity fields must never survive.
func TestSanitizeStripsInjectedCrossContextFields(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()

	work, err := store.GetOrCreate(ctx, "acct-1", domain.ContextOfficial, "corp_hq")
	require.NoError(t, err)
	work.RealName = strptr("Kim Jiwoo")
	work.Age = intptr(29)

	dating, err := store.GetOrCreate(ctx, "acct-1", domain.ContextCreated, "group_42")
	require.NoError(t, err)

	// Simulate a buggy caller smearing context-X fields onto context-Y data.
	tampered := *dating
	tampered.RealName = work.RealName
	tampered.Age = work.Age
	tampered.PhotoURL = strptr("https://img.example/work-badge.jpg")

	pub := store.Sanitize(&tampered, domain.FieldNickname|domain.FieldInterests)
	raw, err := json.Marshal(pub)
	require.NoError(t, err)

	assert.Nil(t, pub.RealName)
	assert.Nil(t, pub.Age)
	assert.Nil(t, pub.PhotoURL)
	assert.False(t, strings.Contains(string(raw), "Jiwoo"))
	assert.False(t, strings.Contains(string(raw), "work-badge"))
}

func TestSanitizeRealNameRequiresOwnOptIn(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()

	p, err := store.GetOrCreate(ctx, "acct-1", domain.ContextCreated, "group_42")
	require.NoError(t, err)
	p.RealName = strptr("Kim Jiwoo")
	// Default settings do not opt real name in.
	require.False(t, p.Anonymity.RevealableFields.Has(domain.FieldRealName))

	pub := store.Sanitize(p, domain.AllFields)
	assert.Nil(t, pub.RealName, "a REVEALED stage cannot override the profile's own opt-out")

	p.Anonymity.RevealableFields |= domain.FieldRealName
	pub = store.Sanitize(p, domain.AllFields)
	require.NotNil(t, pub.RealName)
	assert.Equal(t, "Kim Jiwoo", *pub.RealName)
}

func TestDeactivatePurgesInstantOutright(t *testing.T) {
	store := newTestStore(nil)
	ctx := context.Background()

	p, err := store.GetOrCreate(ctx, "acct-1", domain.ContextInstant, "meetup_7")
	require.NoError(t, err)

	require.NoError(t, store.Deactivate(ctx, "acct-1", p.ID, domain.ReasonContextLeft))
	_, err = store.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}
