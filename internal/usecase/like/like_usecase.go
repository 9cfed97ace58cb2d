// Package like is the matching engine: it records directional likes,
// detects reciprocity, forms each match exactly once per unordered pair,
// and enforces the tier-independent resend cooldown.
package like

import (
	"context"
	"errors"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository"
	"github.com/b0ho/glimpse-sub008/internal/usecase/anonymity"
	"github.com/b0ho/glimpse-sub008/internal/usecase/profile"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuotaGate is the slice of the quota policy the engine consumes.
type QuotaGate interface {
	Consume(ctx context.Context, accountID string, action domain.Action) (domain.QuotaDecision, error)
	Refund(ctx context.Context, accountID string, action domain.Action) error
}

// Enricher generates icebreaker suggestions for a fresh match. It only ever
// sees fields the current reveal stage exposes.
type Enricher interface {
	Icebreakers(ctx context.Context, aInterests, bInterests []string) ([]string, error)
}

// Notifier is the asynchronous boundary to the chat/push collaborators. It
// is called after the core commit; a slow channel cannot stall matching.
type Notifier interface {
	MatchFormed(ctx context.Context, match *domain.Match)
}

type NopNotifier struct{}

func (NopNotifier) MatchFormed(context.Context, *domain.Match) {}

type Engine struct {
	likes    repository.LikeRepository
	matches  repository.MatchRepository
	reports  repository.ReportRepository
	accounts repository.AccountRepository
	profiles *profile.Store
	quota    QuotaGate
	policy   *anonymity.Policy
	enricher Enricher
	notifier Notifier
	cooldown time.Duration
	logger   *zap.Logger
	clock    func() time.Time
	idGen    func() string
}

func NewEngine(
	likes repository.LikeRepository,
	matches repository.MatchRepository,
	reports repository.ReportRepository,
	accounts repository.AccountRepository,
	profiles *profile.Store,
	quota QuotaGate,
	policy *anonymity.Policy,
	enricher Enricher,
	notifier Notifier,
	cooldown time.Duration,
	logger *zap.Logger,
) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		likes:    likes,
		matches:  matches,
		reports:  reports,
		accounts: accounts,
		profiles: profiles,
		quota:    quota,
		policy:   policy,
		enricher: enricher,
		notifier: notifier,
		cooldown: cooldown,
		logger:   logger,
		clock:    time.Now,
		idGen:    uuid.NewString,
	}
}

// WithClock replaces the wall clock for tests.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// SendLikeRequest carries the idempotency key for a like: the directional
// (from, to, context) tuple. Retrying after a transient failure with the
// same tuple resumes the same logical action.
type SendLikeRequest struct {
	FromProfileID string `json:"from_profile_id" binding:"required"`
	ToProfileID   string `json:"to_profile_id" binding:"required"`
	ContextID     string `json:"context_id" binding:"required"`
	IsSuper       bool   `json:"is_super"`
}

// LikeResult is the outcome of SendLike: Pending, or Matched with the match.
type LikeResult struct {
	Like    *domain.Like  `json:"like"`
	Matched bool          `json:"matched"`
	Match   *domain.Match `json:"match,omitempty"`
}

// SendLike runs the full gate sequence: self-like check, cooldown, quota,
// persist, reciprocity. On mutual likes exactly one match is created no
// matter how the two calls interleave, and both callers observe it.
func (e *Engine) SendLike(ctx context.Context, accountID string, req *SendLikeRequest) (*LikeResult, error) {
	if req.FromProfileID == req.ToProfileID {
		return nil, domain.ErrSelfLike
	}

	from, err := e.profiles.ResolveOwned(ctx, accountID, req.FromProfileID)
	if err != nil {
		return nil, err
	}
	to, err := e.profiles.GetByID(ctx, req.ToProfileID)
	if err != nil {
		return nil, err
	}
	if !to.IsActive || !from.IsActive {
		return nil, domain.ErrProfileNotFound
	}
	if !from.SameContext(to) || from.ContextID != req.ContextID {
		return nil, domain.ErrInvalidContext
	}

	now := e.clock()
	latest, err := e.likes.GetLatestByPair(ctx, from.ID, to.ID, req.ContextID)
	if err != nil && !errors.Is(err, domain.ErrLikeNotFound) {
		return nil, err
	}
	if latest != nil {
		switch latest.Status {
		case domain.LikeMatched:
			// Idempotent resubmission of an already-matched pair. A missing
			// match row means a prior attempt flipped the likes and then died
			// before the insert; finishing it here is the same logical action.
			match, merr := e.matches.GetByPair(ctx, from.ID, to.ID, req.ContextID)
			if errors.Is(merr, domain.ErrMatchNotFound) {
				match, merr = e.completeMatch(ctx, from, to, latest)
			}
			if merr != nil {
				return nil, merr
			}
			return &LikeResult{Like: latest, Matched: true, Match: match}, nil
		case domain.LikePending:
			// The pair may already be reciprocal if an earlier attempt failed
			// partway; resuming that attempt outranks the cooldown denial.
			match, rerr := e.resumePending(ctx, from, to, latest)
			if rerr != nil {
				return nil, rerr
			}
			if match != nil {
				return &LikeResult{Like: latest, Matched: true, Match: match}, nil
			}
			if latest.InCooldown(now, e.cooldown) {
				return nil, domain.Denied(domain.ReasonCooldownActive, "like already sent for this profile")
			}
			// Still pending past the window: same logical action, no new row.
			return &LikeResult{Like: latest}, nil
		default:
			// Cancelled or expired rows keep anchoring the cooldown window.
			if latest.InCooldown(now, e.cooldown) {
				return nil, domain.Denied(domain.ReasonCooldownActive, "cooldown window has not elapsed")
			}
		}
	}

	action := domain.ActionSendLike
	if req.IsSuper {
		action = domain.ActionSendSuperLike
	}
	decision, err := e.quota.Consume(ctx, accountID, action)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, domain.Denied(decision.Reason, "quota denied for "+string(action))
	}

	l := &domain.Like{
		ID:            e.idGen(),
		FromProfileID: from.ID,
		ToProfileID:   to.ID,
		ContextID:     req.ContextID,
		IsSuper:       req.IsSuper,
		Status:        domain.LikePending,
	}
	if err := e.likes.Create(ctx, l); err != nil {
		// The quota unit must not leak when the row never landed.
		if rerr := e.quota.Refund(ctx, accountID, action); rerr != nil {
			e.logger.Warn("quota refund failed", zap.Error(rerr))
		}
		return nil, &domain.TransientStorageError{Op: "like.SendLike", Err: err}
	}

	result := &LikeResult{Like: l}
	reciprocal, err := e.likes.GetActiveByPair(ctx, to.ID, from.ID, req.ContextID)
	if errors.Is(err, domain.ErrLikeNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, &domain.TransientStorageError{Op: "like.SendLike", Err: err}
	}

	match, err := e.formMatch(ctx, from, to, l, reciprocal)
	if err != nil {
		return nil, err
	}
	if match == nil {
		// The reciprocal like was cancelled first; its commit won.
		return result, nil
	}
	result.Matched = true
	result.Match = match
	return result, nil
}

// formMatch claims the reciprocal like and creates the canonical-pair match.
// The reciprocal row's status CAS is the tie-break against a racing cancel;
// the unique pair key dedupes the two reciprocal senders.
func (e *Engine) formMatch(ctx context.Context, from, to *domain.Profile, own, reciprocal *domain.Like) (*domain.Match, error) {
	err := e.likes.UpdateStatusIf(ctx, reciprocal.ID, domain.LikePending, domain.LikeMatched)
	if errors.Is(err, domain.ErrLikeNotPending) {
		// Lost to a cancel, or the other sender already claimed both rows:
		// in the latter case the match exists and we return it below.
		existing, merr := e.matches.GetByPair(ctx, from.ID, to.ID, own.ContextID)
		if merr == nil {
			own.Status = domain.LikeMatched
			return existing, nil
		}
		if !errors.Is(merr, domain.ErrMatchNotFound) {
			return nil, merr
		}
		// No match row: either the cancel committed first, or the claiming
		// attempt died before its insert. The row's status tells which.
		cur, gerr := e.likes.GetByID(ctx, reciprocal.ID)
		if gerr != nil {
			return nil, gerr
		}
		if cur.Status == domain.LikeMatched {
			return e.completeMatch(ctx, from, to, own)
		}
		return nil, nil
	}
	if err != nil {
		return nil, &domain.TransientStorageError{Op: "like.formMatch", Err: err}
	}
	return e.completeMatch(ctx, from, to, own)
}

// resumePending decides whether a resubmitted pending like can converge on a
// match: the reciprocal like may have arrived since, or a prior reciprocal
// attempt may have claimed the rows and then failed before the match landed.
// Returns (nil, nil) when there is nothing to resume.
func (e *Engine) resumePending(ctx context.Context, from, to *domain.Profile, own *domain.Like) (*domain.Match, error) {
	reciprocal, err := e.likes.GetLatestByPair(ctx, to.ID, from.ID, own.ContextID)
	if errors.Is(err, domain.ErrLikeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	switch reciprocal.Status {
	case domain.LikePending:
		return e.formMatch(ctx, from, to, own, reciprocal)
	case domain.LikeMatched:
		match, merr := e.matches.GetByPair(ctx, from.ID, to.ID, own.ContextID)
		if merr == nil {
			own.Status = domain.LikeMatched
			return match, nil
		}
		if errors.Is(merr, domain.ErrMatchNotFound) {
			return e.completeMatch(ctx, from, to, own)
		}
		return nil, merr
	}
	return nil, nil
}

// completeMatch inserts the canonical-pair match and settles both like rows.
// CreateCanonical dedupes on the pair key, so a retry lands on the row the
// first successful attempt wrote.
func (e *Engine) completeMatch(ctx context.Context, from, to *domain.Profile, own *domain.Like) (*domain.Match, error) {
	m := &domain.Match{
		ID:          e.idGen(),
		ProfileA:    from.ID,
		ProfileB:    to.ID,
		ContextID:   own.ContextID,
		RevealState: e.policy.InitialStage(from.Anonymity, to.Anonymity),
		IsActive:    true,
	}
	created, err := e.matches.CreateCanonical(ctx, m)
	if err != nil {
		return nil, &domain.TransientStorageError{Op: "like.completeMatch", Err: err}
	}
	if merr := e.likes.MarkPairMatched(ctx, from.ID, to.ID, own.ContextID); merr != nil {
		return nil, merr
	}
	own.Status = domain.LikeMatched

	// Collaborator work happens after the core writes; it never blocks them.
	go e.notifier.MatchFormed(context.WithoutCancel(ctx), created)
	if e.enricher != nil {
		go e.enrichMatch(context.WithoutCancel(ctx), created, from, to)
	}
	return created, nil
}

// enrichMatch asks the enricher for icebreakers using only fields the
// current stage reveals. A failure here is logged and forgotten.
func (e *Engine) enrichMatch(ctx context.Context, m *domain.Match, from, to *domain.Profile) {
	visFrom := e.policy.FieldsVisibleTo(from.Anonymity, m.RevealState, true)
	visTo := e.policy.FieldsVisibleTo(to.Anonymity, m.RevealState, true)

	var aInterests, bInterests []string
	if visFrom.Has(domain.FieldInterests) {
		aInterests = from.Interests
	}
	if visTo.Has(domain.FieldInterests) {
		bInterests = to.Interests
	}

	lines, err := e.enricher.Icebreakers(ctx, aInterests, bInterests)
	if err != nil {
		e.logger.Warn("icebreaker enrichment failed", zap.String("match_id", m.ID), zap.Error(err))
		return
	}
	if err := e.matches.UpdateIcebreakers(ctx, m.ID, lines); err != nil {
		e.logger.Warn("icebreaker save failed", zap.String("match_id", m.ID), zap.Error(err))
	}
}

// CancelLike transitions LIKED -> CANCELLED. Only the issuing profile's
// owner may cancel, and only while the like is still pending.
func (e *Engine) CancelLike(ctx context.Context, accountID, likeID string) error {
	l, err := e.likes.GetByID(ctx, likeID)
	if err != nil {
		return err
	}
	if _, err := e.profiles.ResolveOwned(ctx, accountID, l.FromProfileID); err != nil {
		// Not the issuer: same not-found surface as a nonexistent like.
		return domain.ErrLikeNotFound
	}
	err = e.likes.UpdateStatusIf(ctx, likeID, domain.LikePending, domain.LikeCancelled)
	if errors.Is(err, domain.ErrLikeNotPending) {
		if l.Status == domain.LikeMatched {
			return domain.ErrAlreadyMatched
		}
		// Re-read for the race where the match formed after our load.
		if cur, gerr := e.likes.GetByID(ctx, likeID); gerr == nil && cur.Status == domain.LikeMatched {
			return domain.ErrAlreadyMatched
		}
		return domain.ErrLikeNotPending
	}
	return err
}

// ReportMismatch files a PENDING review report and removes the match from
// both parties' active lists. Quota counters are untouched: the like was
// still spent.
func (e *Engine) ReportMismatch(ctx context.Context, accountID, matchID, reason string) (*domain.Report, error) {
	m, err := e.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	reporter, err := e.participantProfile(ctx, accountID, m)
	if err != nil {
		return nil, err
	}
	if err := e.matches.Deactivate(ctx, m.ID); err != nil && !errors.Is(err, domain.ErrMatchNotFound) {
		return nil, err
	}
	r := &domain.Report{
		ID:                e.idGen(),
		MatchID:           m.ID,
		ReporterProfileID: reporter.ID,
		Reason:            reason,
		Status:            domain.ReportPending,
	}
	if err := e.reports.Create(ctx, r); err != nil {
		return nil, &domain.TransientStorageError{Op: "like.ReportMismatch", Err: err}
	}
	return r, nil
}

// Unmatch deletes the match record. It is a separate operation from the like
// state machine; the underlying like rows stay MATCHED for cooldown history.
func (e *Engine) Unmatch(ctx context.Context, accountID, matchID string) error {
	m, err := e.matches.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if _, err := e.participantProfile(ctx, accountID, m); err != nil {
		return err
	}
	return e.matches.Delete(ctx, m.ID)
}

// participantProfile resolves which side of the match the caller owns.
// Callers who own neither side get not-found, leaking nothing about the
// pairing.
func (e *Engine) participantProfile(ctx context.Context, accountID string, m *domain.Match) (*domain.Profile, error) {
	for _, pid := range []string{m.ProfileA, m.ProfileB} {
		p, err := e.profiles.GetByID(ctx, pid)
		if err != nil {
			continue
		}
		if p.AccountID == accountID {
			return p, nil
		}
	}
	return nil, domain.ErrMatchNotFound
}

// MatchView is one entry of the caller's active match list: the match plus
// the counterpart sanitized for the current reveal stage.
type MatchView struct {
	MatchID     string               `json:"match_id"`
	ContextID   string               `json:"context_id"`
	RevealState domain.RevealStage   `json:"reveal_state"`
	MatchedAt   time.Time            `json:"matched_at"`
	Counterpart domain.PublicProfile `json:"counterpart"`
	Icebreakers []string             `json:"icebreakers,omitempty"`
}

// ListMatches returns the caller's active matches across all their profiles.
func (e *Engine) ListMatches(ctx context.Context, accountID string) ([]MatchView, error) {
	owned, err := e.profiles.ListOwned(ctx, accountID)
	if err != nil {
		return nil, err
	}
	ownedIDs := make(map[string]*domain.Profile, len(owned))
	ids := make([]string, 0, len(owned))
	for _, p := range owned {
		ownedIDs[p.ID] = p
		ids = append(ids, p.ID)
	}

	matches, err := e.matches.ListActiveByProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		var mine *domain.Profile
		if p, ok := ownedIDs[m.ProfileA]; ok {
			mine = p
		} else if p, ok := ownedIDs[m.ProfileB]; ok {
			mine = p
		} else {
			continue
		}
		otherID, _ := m.OtherProfile(mine.ID)
		other, err := e.profiles.GetByID(ctx, otherID)
		if err != nil {
			// Counterpart expired out from under the match.
			continue
		}
		visible := e.policy.FieldsVisibleTo(other.Anonymity, m.RevealState, true)
		views = append(views, MatchView{
			MatchID:     m.ID,
			ContextID:   m.ContextID,
			RevealState: m.RevealState,
			MatchedAt:   m.MatchedAt,
			Counterpart: e.profiles.Sanitize(other, visible),
			Icebreakers: m.Icebreakers,
		})
	}
	return views, nil
}

// RevealStatus recomputes the match's disclosure stage from both profiles'
// settings, elapsed time, and the caller-supplied chat turn count, persists
// any forward movement, and returns the counterpart's visible fields.
type RevealStatus struct {
	MatchID       string               `json:"match_id"`
	Stage         domain.RevealStage   `json:"stage"`
	VisibleFields []string             `json:"visible_fields"`
	Counterpart   domain.PublicProfile `json:"counterpart"`
}

func (e *Engine) RevealStage(ctx context.Context, accountID, matchID string, chatTurns int) (*RevealStatus, error) {
	m, err := e.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	mine, err := e.participantProfile(ctx, accountID, m)
	if err != nil {
		return nil, err
	}
	otherID, _ := m.OtherProfile(mine.ID)
	other, err := e.profiles.GetByID(ctx, otherID)
	if err != nil {
		return nil, err
	}

	stage := e.policy.RevealStage(anonymity.Inputs{
		Subject:       mine.Anonymity,
		Counterpart:   other.Anonymity,
		MatchedAt:     m.MatchedAt,
		Now:           e.clock(),
		ChatTurns:     chatTurns,
		MutualConsent: m.MutualConsent(),
	})
	// Stages only move forward; a stale recompute cannot re-hide fields.
	if stage.Rank() > m.RevealState.Rank() {
		if err := e.matches.UpdateRevealState(ctx, m.ID, stage); err != nil {
			return nil, err
		}
	} else {
		stage = m.RevealState
	}

	visible := e.policy.FieldsVisibleTo(other.Anonymity, stage, true)
	return &RevealStatus{
		MatchID:       m.ID,
		Stage:         stage,
		VisibleFields: visible.Names(),
		Counterpart:   e.profiles.Sanitize(other, visible),
	}, nil
}

// Consent records the caller's reveal consent on the match.
func (e *Engine) Consent(ctx context.Context, accountID, matchID string) error {
	m, err := e.matches.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	mine, err := e.participantProfile(ctx, accountID, m)
	if err != nil {
		return err
	}
	return e.matches.SetConsent(ctx, m.ID, mine.ID)
}

// ReceivedLike is one incoming like, its sender sanitized to the pre-match
// minimal field set regardless of settings.
type ReceivedLike struct {
	LikeID    string               `json:"like_id"`
	ContextID string               `json:"context_id"`
	IsSuper   bool                 `json:"is_super"`
	CreatedAt time.Time            `json:"created_at"`
	Sender    domain.PublicProfile `json:"sender"`
}

// ListReceived lists pending incoming likes. The feature is premium-gated.
func (e *Engine) ListReceived(ctx context.Context, accountID string, limit, offset int) ([]ReceivedLike, error) {
	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Tier != domain.TierPremium {
		return nil, domain.Denied(domain.ReasonTierRequired, "incoming likes require the premium tier")
	}

	owned, err := e.profiles.ListOwned(ctx, accountID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(owned))
	for _, p := range owned {
		ids = append(ids, p.ID)
	}

	likes, err := e.likes.ListReceived(ctx, ids, limit, offset)
	if err != nil {
		return nil, err
	}
	received := make([]ReceivedLike, 0, len(likes))
	for _, l := range likes {
		sender, err := e.profiles.GetByID(ctx, l.FromProfileID)
		if err != nil {
			continue
		}
		// No match exists yet for these pairs: minimal fields only.
		visible := e.policy.FieldsVisibleTo(sender.Anonymity, domain.StageFull, false)
		received = append(received, ReceivedLike{
			LikeID:    l.ID,
			ContextID: l.ContextID,
			IsSuper:   l.IsSuper,
			CreatedAt: l.CreatedAt,
			Sender:    e.profiles.Sanitize(sender, visible),
		})
	}
	return received, nil
}
