package auth

import (
	"context"
	"time"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Provider issues and validates bearer tokens. The implementation is picked
// once at startup from config; there is no per-request strategy switching.
type Provider interface {
	IssueToken(accountID string) (string, time.Time, error)
	// Authenticate returns the account ID the token was issued for.
	Authenticate(ctx context.Context, token string) (string, error)
}

// JWTProvider signs HS256 tokens carrying the account ID.
type JWTProvider struct {
	secret []byte
	expiry time.Duration
	clock  func() time.Time
}

func NewJWTProvider(secret string, expiry time.Duration) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), expiry: expiry, clock: time.Now}
}

func (p *JWTProvider) IssueToken(accountID string) (string, time.Time, error) {
	now := p.clock()
	expiresAt := now.Add(p.expiry)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"account_id": accountID,
		"exp":        expiresAt.Unix(),
		"iat":        now.Unix(),
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (p *JWTProvider) Authenticate(_ context.Context, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return "", domain.ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ErrInvalidToken
	}
	accountID, ok := claims["account_id"].(string)
	if !ok || accountID == "" {
		return "", domain.ErrInvalidToken
	}
	return accountID, nil
}

// DevProvider accepts the account ID itself as the token. Config validation
// refuses this strategy outside the development environment.
type DevProvider struct{}

func (DevProvider) IssueToken(accountID string) (string, time.Time, error) {
	return accountID, time.Time{}, nil
}

func (DevProvider) Authenticate(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrInvalidToken
	}
	return token, nil
}
