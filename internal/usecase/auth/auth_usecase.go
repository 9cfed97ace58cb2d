// Package auth registers accounts by phone number and verifies them with a
// one-time code. Phone numbers are stored only as salted-input SHA-256
// hashes; the raw number never reaches a repository.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const codeTTL = 5 * time.Minute

// CodeSender delivers a verification code out of band (SMS in production,
// log line in development).
type CodeSender interface {
	SendCode(ctx context.Context, phoneNumber, code string) error
}

// LogCodeSender writes the code to the log instead of sending it.
type LogCodeSender struct {
	Logger *zap.Logger
}

func (s LogCodeSender) SendCode(_ context.Context, phoneNumber, code string) error {
	s.Logger.Info("verification code issued",
		zap.String("phone_hash", HashPhone(phoneNumber)[:12]),
		zap.String("code", code),
	)
	return nil
}

type Service struct {
	accounts repository.AccountRepository
	provider Provider
	sender   CodeSender
	logger   *zap.Logger
	clock    func() time.Time
	idGen    func() string
}

func NewService(accounts repository.AccountRepository, provider Provider, sender CodeSender, logger *zap.Logger) *Service {
	return &Service{
		accounts: accounts,
		provider: provider,
		sender:   sender,
		logger:   logger,
		clock:    time.Now,
		idGen:    uuid.NewString,
	}
}

// HashPhone derives the storage key for a phone number.
func HashPhone(phoneNumber string) string {
	sum := sha256.Sum256([]byte("glimpse:" + phoneNumber))
	return hex.EncodeToString(sum[:])
}

// RequestCode creates the account on first contact and sends a fresh
// verification code. Requesting again reuses the account and rotates the
// code.
func (s *Service) RequestCode(ctx context.Context, phoneNumber string) (*domain.Account, error) {
	if phoneNumber == "" {
		return nil, domain.ErrInvalidInput
	}
	phoneHash := HashPhone(phoneNumber)

	account, err := s.accounts.GetByPhoneHash(ctx, phoneHash)
	if errors.Is(err, domain.ErrAccountNotFound) {
		account = &domain.Account{
			ID:              s.idGen(),
			PhoneNumberHash: phoneHash,
			Tier:            domain.TierBasic,
		}
		if cerr := s.accounts.Create(ctx, account); cerr != nil {
			return nil, &domain.TransientStorageError{Op: "auth.RequestCode", Err: cerr}
		}
	} else if err != nil {
		return nil, err
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashed := string(codeHash)
	if err := s.accounts.SetVerificationHash(ctx, account.ID, &hashed); err != nil {
		return nil, &domain.TransientStorageError{Op: "auth.RequestCode", Err: err}
	}
	if err := s.sender.SendCode(ctx, phoneNumber, code); err != nil {
		return nil, err
	}
	return account, nil
}

// TokenResponse is the issue-token result for the HTTP layer.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	AccountID string    `json:"account_id"`
}

// IssueToken checks the submitted code against the stored bcrypt hash,
// marks the account verified, clears the code, and issues a bearer token.
func (s *Service) IssueToken(ctx context.Context, phoneNumber, code string) (*TokenResponse, error) {
	account, err := s.accounts.GetByPhoneHash(ctx, HashPhone(phoneNumber))
	if err != nil {
		return nil, err
	}
	if account.VerificationHash == nil {
		return nil, domain.ErrCodeMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*account.VerificationHash), []byte(code)); err != nil {
		return nil, domain.ErrCodeMismatch
	}
	if err := s.accounts.MarkVerified(ctx, account.ID); err != nil {
		return nil, &domain.TransientStorageError{Op: "auth.IssueToken", Err: err}
	}
	if err := s.accounts.SetVerificationHash(ctx, account.ID, nil); err != nil {
		return nil, &domain.TransientStorageError{Op: "auth.IssueToken", Err: err}
	}

	token, expiresAt, err := s.provider.IssueToken(account.ID)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: token, ExpiresAt: expiresAt, AccountID: account.ID}, nil
}

// Account returns the caller's own account record.
func (s *Service) Account(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}

// UpgradeTier sets the caller's subscription tier. Billing is out of scope;
// this trusts the caller's entitlement check upstream, but the account must
// have completed phone verification first.
func (s *Service) UpgradeTier(ctx context.Context, accountID string, tier domain.SubscriptionTier) (*domain.Account, error) {
	switch tier {
	case domain.TierBasic, domain.TierAdvanced, domain.TierPremium:
	default:
		return nil, domain.ErrInvalidInput
	}
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsVerified() {
		return nil, domain.ErrNotVerified
	}
	if err := s.accounts.UpdateTier(ctx, accountID, tier); err != nil {
		return nil, err
	}
	return s.accounts.GetByID(ctx, accountID)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
