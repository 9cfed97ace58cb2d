// Package memory holds mutex-guarded in-memory implementations of the
// repository interfaces. They honor the same atomicity contracts as the
// postgres implementations (status CAS, canonical-pair uniqueness,
// conditional cap insert), which is what makes the concurrency tests built
// on them meaningful.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository"
)

type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	clock    func() time.Time
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]*domain.Account), clock: time.Now}
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

func (r *AccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = r.clock()
	}
	cp := *account
	r.accounts[account.ID] = &cp
	return nil
}

func (r *AccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AccountRepository) GetByPhoneHash(_ context.Context, phoneHash string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.PhoneNumberHash == phoneHash {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *AccountRepository) SetVerificationHash(_ context.Context, id string, hash *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.VerificationHash = hash
	return nil
}

func (r *AccountRepository) MarkVerified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	now := r.clock()
	a.VerifiedAt = &now
	return nil
}

func (r *AccountRepository) UpdateTier(_ context.Context, id string, tier domain.SubscriptionTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Tier = tier
	return nil
}

type ProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*domain.Profile
	clock    func() time.Time
}

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{profiles: make(map[string]*domain.Profile), clock: time.Now}
}

var _ repository.ProfileRepository = (*ProfileRepository)(nil)

func (r *ProfileRepository) Create(_ context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Same unique key as idx_profiles_account_context.
	for _, p := range r.profiles {
		if p.AccountID == profile.AccountID && p.ContextType == profile.ContextType && p.ContextID == profile.ContextID {
			return domain.ErrProfileExists
		}
	}
	now := r.clock()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	cp := *profile
	r.profiles[profile.ID] = &cp
	return nil
}

func (r *ProfileRepository) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *ProfileRepository) GetByAccountAndContext(_ context.Context, accountID string, ct domain.ContextType, contextID string) (*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.profiles {
		if p.AccountID == accountID && p.ContextType == ct && p.ContextID == contextID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (r *ProfileRepository) ListActiveByAccount(_ context.Context, accountID string) ([]*domain.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Profile
	for _, p := range r.profiles {
		if p.AccountID == accountID && p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ProfileRepository) Update(_ context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[profile.ID]; !ok {
		return domain.ErrProfileNotFound
	}
	profile.UpdatedAt = r.clock()
	cp := *profile
	r.profiles[profile.ID] = &cp
	return nil
}

func (r *ProfileRepository) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	p.IsActive = false
	p.UpdatedAt = r.clock()
	return nil
}

func (r *ProfileRepository) Purge(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, id)
	return nil
}

func (r *ProfileRepository) ListExpiredInstant(_ context.Context, now time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, p := range r.profiles {
		if p.ContextType == domain.ContextInstant && p.ExpiresAt != nil && !now.Before(*p.ExpiresAt) {
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type LikeRepository struct {
	mu    sync.RWMutex
	likes map[string]*domain.Like
	clock func() time.Time
}

func NewLikeRepository() *LikeRepository {
	return &LikeRepository{likes: make(map[string]*domain.Like), clock: time.Now}
}

// WithClock replaces the wall clock for tests.
func (r *LikeRepository) WithClock(clock func() time.Time) *LikeRepository {
	r.clock = clock
	return r
}

var _ repository.LikeRepository = (*LikeRepository)(nil)

func (r *LikeRepository) Create(_ context.Context, like *domain.Like) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if like.CreatedAt.IsZero() {
		like.CreatedAt = r.clock()
	}
	cp := *like
	r.likes[like.ID] = &cp
	return nil
}

func (r *LikeRepository) GetByID(_ context.Context, id string) (*domain.Like, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.likes[id]
	if !ok {
		return nil, domain.ErrLikeNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *LikeRepository) GetLatestByPair(_ context.Context, fromProfileID, toProfileID, contextID string) (*domain.Like, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.Like
	for _, l := range r.likes {
		if l.FromProfileID != fromProfileID || l.ToProfileID != toProfileID || l.ContextID != contextID {
			continue
		}
		if latest == nil || l.CreatedAt.After(latest.CreatedAt) {
			latest = l
		}
	}
	if latest == nil {
		return nil, domain.ErrLikeNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *LikeRepository) GetActiveByPair(_ context.Context, fromProfileID, toProfileID, contextID string) (*domain.Like, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.likes {
		if l.FromProfileID == fromProfileID && l.ToProfileID == toProfileID &&
			l.ContextID == contextID && l.Status == domain.LikePending {
			cp := *l
			return &cp, nil
		}
	}
	return nil, domain.ErrLikeNotFound
}

func (r *LikeRepository) UpdateStatusIf(_ context.Context, id string, from, to domain.LikeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.likes[id]
	if !ok || l.Status != from {
		return domain.ErrLikeNotPending
	}
	l.Status = to
	return nil
}

func (r *LikeRepository) MarkPairMatched(_ context.Context, profileA, profileB, contextID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.likes {
		if l.ContextID != contextID || l.Status != domain.LikePending {
			continue
		}
		if (l.FromProfileID == profileA && l.ToProfileID == profileB) ||
			(l.FromProfileID == profileB && l.ToProfileID == profileA) {
			l.Status = domain.LikeMatched
		}
	}
	return nil
}

func (r *LikeRepository) ListReceived(_ context.Context, toProfileIDs []string, limit, offset int) ([]*domain.Like, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	targets := make(map[string]bool, len(toProfileIDs))
	for _, id := range toProfileIDs {
		targets[id] = true
	}
	var out []*domain.Like
	for _, l := range r.likes {
		if targets[l.ToProfileID] && l.Status == domain.LikePending {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *LikeRepository) ExpireByProfile(_ context.Context, profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.likes {
		if l.Status == domain.LikePending && (l.FromProfileID == profileID || l.ToProfileID == profileID) {
			l.Status = domain.LikeExpired
		}
	}
	return nil
}

type MatchRepository struct {
	mu      sync.RWMutex
	matches map[string]*domain.Match
	byPair  map[string]string
	clock   func() time.Time
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{
		matches: make(map[string]*domain.Match),
		byPair:  make(map[string]string),
		clock:   time.Now,
	}
}

var _ repository.MatchRepository = (*MatchRepository)(nil)

// WithClock replaces the wall clock for tests.
func (r *MatchRepository) WithClock(clock func() time.Time) *MatchRepository {
	r.clock = clock
	return r
}

func pairKey(contextID, a, b string) string {
	return contextID + "|" + a + "|" + b
}

func (r *MatchRepository) CreateCanonical(_ context.Context, match *domain.Match) (*domain.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, b := domain.CanonicalPair(match.ProfileA, match.ProfileB)
	key := pairKey(match.ContextID, a, b)
	if id, ok := r.byPair[key]; ok {
		cp := *r.matches[id]
		return &cp, nil
	}
	cp := *match
	cp.ProfileA, cp.ProfileB = a, b
	if cp.MatchedAt.IsZero() {
		cp.MatchedAt = r.clock()
	}
	r.matches[cp.ID] = &cp
	r.byPair[key] = cp.ID
	out := cp
	return &out, nil
}

func (r *MatchRepository) GetByID(_ context.Context, id string) (*domain.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MatchRepository) GetByPair(_ context.Context, profileA, profileB, contextID string) (*domain.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, b := domain.CanonicalPair(profileA, profileB)
	id, ok := r.byPair[pairKey(contextID, a, b)]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	cp := *r.matches[id]
	return &cp, nil
}

func (r *MatchRepository) ListActiveByProfiles(_ context.Context, profileIDs []string) ([]*domain.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make(map[string]bool, len(profileIDs))
	for _, id := range profileIDs {
		members[id] = true
	}
	var out []*domain.Match
	for _, m := range r.matches {
		if m.IsActive && (members[m.ProfileA] || members[m.ProfileB]) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchedAt.After(out[j].MatchedAt) })
	return out, nil
}

func (r *MatchRepository) SetConsent(_ context.Context, id, profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return domain.ErrMatchNotFound
	}
	switch profileID {
	case m.ProfileA:
		m.ConsentA = true
	case m.ProfileB:
		m.ConsentB = true
	default:
		return domain.ErrMatchNotFound
	}
	return nil
}

func (r *MatchRepository) UpdateRevealState(_ context.Context, id string, state domain.RevealStage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return domain.ErrMatchNotFound
	}
	// Forward-only, mirroring the SQL array_position guard.
	if state.Rank() > m.RevealState.Rank() {
		m.RevealState = state
	}
	return nil
}

func (r *MatchRepository) UpdateIcebreakers(_ context.Context, id string, icebreakers []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return domain.ErrMatchNotFound
	}
	m.Icebreakers = append([]string(nil), icebreakers...)
	return nil
}

func (r *MatchRepository) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return domain.ErrMatchNotFound
	}
	m.IsActive = false
	return nil
}

func (r *MatchRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return domain.ErrMatchNotFound
	}
	delete(r.byPair, pairKey(m.ContextID, m.ProfileA, m.ProfileB))
	delete(r.matches, id)
	return nil
}

type InterestRepository struct {
	mu        sync.Mutex
	interests map[string]*domain.InterestRegistration
	clock     func() time.Time
}

func NewInterestRepository() *InterestRepository {
	return &InterestRepository{interests: make(map[string]*domain.InterestRegistration), clock: time.Now}
}

var _ repository.InterestRepository = (*InterestRepository)(nil)

func (r *InterestRepository) active(accountID string, now time.Time) int {
	count := 0
	for _, reg := range r.interests {
		if reg.AccountID == accountID && (reg.ExpiresAt == nil || reg.ExpiresAt.After(now)) {
			count++
		}
	}
	return count
}

// CreateIfUnderCap checks and inserts under one lock acquisition, matching
// the single-statement atomicity of the SQL implementation.
func (r *InterestRepository) CreateIfUnderCap(_ context.Context, reg *domain.InterestRegistration, cap int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock()
	if cap >= 0 && r.active(reg.AccountID, now) >= cap {
		return false, nil
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = now
	}
	cp := *reg
	r.interests[reg.ID] = &cp
	return true, nil
}

func (r *InterestRepository) GetByID(_ context.Context, id string) (*domain.InterestRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.interests[id]
	if !ok {
		return nil, domain.ErrInterestNotFound
	}
	cp := *reg
	return &cp, nil
}

func (r *InterestRepository) ListActive(_ context.Context, accountID string, now time.Time) ([]*domain.InterestRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.InterestRegistration
	for _, reg := range r.interests {
		if reg.AccountID == accountID && (reg.ExpiresAt == nil || reg.ExpiresAt.After(now)) {
			cp := *reg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InterestRepository) CountActive(_ context.Context, accountID string, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active(accountID, now), nil
}

func (r *InterestRepository) Delete(_ context.Context, id, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.interests[id]
	if !ok || reg.AccountID != accountID {
		return domain.ErrInterestNotFound
	}
	delete(r.interests, id)
	return nil
}

func (r *InterestRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, reg := range r.interests {
		if reg.ExpiresAt != nil && !now.Before(*reg.ExpiresAt) {
			delete(r.interests, id)
			n++
		}
	}
	return n, nil
}

type GroupRepository struct {
	mu     sync.RWMutex
	groups map[string]*domain.Group
	clock  func() time.Time
}

func NewGroupRepository() *GroupRepository {
	return &GroupRepository{groups: make(map[string]*domain.Group), clock: time.Now}
}

var _ repository.GroupRepository = (*GroupRepository)(nil)

func (r *GroupRepository) Create(_ context.Context, group *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = r.clock()
	}
	cp := *group
	r.groups[group.ID] = &cp
	return nil
}

func (r *GroupRepository) GetByID(_ context.Context, id string) (*domain.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, domain.ErrGroupNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *GroupRepository) ListWithLocation(_ context.Context) ([]*domain.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Group
	for _, g := range r.groups {
		if g.HasLocation() {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type ReportRepository struct {
	mu      sync.Mutex
	reports map[string]*domain.Report
	clock   func() time.Time
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{reports: make(map[string]*domain.Report), clock: time.Now}
}

var _ repository.ReportRepository = (*ReportRepository)(nil)

func (r *ReportRepository) Create(_ context.Context, report *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = r.clock()
	}
	cp := *report
	r.reports[report.ID] = &cp
	return nil
}

// All returns every stored report, newest first. Test helper.
func (r *ReportRepository) All() []*domain.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Report, 0, len(r.reports))
	for _, rep := range r.reports {
		cp := *rep
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
