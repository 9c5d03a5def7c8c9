package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTTL is the validity window of both auth and reset tokens.
const TokenTTL = time.Hour

// Token audiences keep an auth token from being replayed as a reset token
// and the other way round.
const (
	audienceAuth  = "auth"
	audienceReset = "password-reset"
)

// AuthClaims is the payload of an auth token.
type AuthClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// ResetClaims is the payload of a password reset token.
type ResetClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer signing with secret. now may be nil.
func NewTokenIssuer(secret string, now func() time.Time) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), ttl: TokenTTL, now: now}, nil
}

// IssueAuthToken returns a signed token identifying userID.
func (t *TokenIssuer) IssueAuthToken(userID string) (string, error) {
	return t.sign(&AuthClaims{
		UserID:           userID,
		RegisteredClaims: t.registered(audienceAuth),
	})
}

// ParseAuthToken verifies an auth token and returns the user id it carries.
func (t *TokenIssuer) ParseAuthToken(token string) (string, error) {
	claims := &AuthClaims{}
	if err := t.parse(token, claims, audienceAuth); err != nil {
		return "", err
	}
	if claims.UserID == "" {
		return "", errors.New("token has no user id")
	}
	return claims.UserID, nil
}

// IssueResetToken returns a signed password reset token for email.
func (t *TokenIssuer) IssueResetToken(email string) (string, error) {
	return t.sign(&ResetClaims{
		Email:            email,
		RegisteredClaims: t.registered(audienceReset),
	})
}

// ParseResetToken verifies signature and expiry of a reset token and returns
// the email it was issued for.
func (t *TokenIssuer) ParseResetToken(token string) (string, error) {
	claims := &ResetClaims{}
	if err := t.parse(token, claims, audienceReset); err != nil {
		return "", err
	}
	if claims.Email == "" {
		return "", errors.New("token has no email")
	}
	return claims.Email, nil
}

func (t *TokenIssuer) registered(audience string) jwt.RegisteredClaims {
	now := t.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
}

func (t *TokenIssuer) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *TokenIssuer) parse(token string, claims jwt.Claims, audience string) error {
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	return err
}
