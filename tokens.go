package ninjaauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default validity window of a recovery token.
const TokenExpiryPasswordReset = 1 * time.Hour

const (
	defaultTokenIssuer    = "ninja-auth"
	passwordResetAudience = "password-reset"
)

// RecoveryClaims are the decoded contents of a recovery token.
type RecoveryClaims struct {
	SubjectID string
	IssuedAt  time.Time
}

// TokenService signs and verifies password recovery tokens. Tokens are
// HS256 JWTs and are not stored anywhere, so verification needs no lookup.
// It is safe for concurrent use.
type TokenService struct {
	secret []byte
	maxAge time.Duration

	// Issuer is written into and required from every token.
	Issuer string

	// Now is the clock used for signing and verification. Defaults to
	// time.Now.
	Now func() time.Time
}

// NewTokenService returns a TokenService using secret for HMAC signatures.
// A non-positive maxAge selects TokenExpiryPasswordReset.
func NewTokenService(secret []byte, maxAge time.Duration) *TokenService {
	if maxAge <= 0 {
		maxAge = TokenExpiryPasswordReset
	}
	return &TokenService{
		secret: secret,
		maxAge: maxAge,
		Issuer: defaultTokenIssuer,
		Now:    time.Now,
	}
}

// MaxAge is the validity window of issued tokens.
func (s *TokenService) MaxAge() time.Duration {
	return s.maxAge
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Sign issues a token for claims.SubjectID stamped with the current time.
func (s *TokenService) Sign(claims RecoveryClaims) (string, error) {
	if claims.SubjectID == "" {
		return "", errors.New("token subject is required")
	}
	if len(s.secret) == 0 {
		return "", errors.New("token secret is not configured")
	}
	issuedAt := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   claims.SubjectID,
		Issuer:    s.Issuer,
		Audience:  jwt.ClaimStrings{passwordResetAudience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.maxAge)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the claims of an authentic token that is still inside its
// validity window. Tampered and expired tokens both yield
// ErrInvalidOrExpiredToken.
func (s *TokenService) Verify(tokenString string) (*RecoveryClaims, error) {
	if tokenString == "" || len(s.secret) == 0 {
		return nil, ErrInvalidOrExpiredToken
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.Issuer),
		jwt.WithAudience(passwordResetAudience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidOrExpiredToken
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidOrExpiredToken
	}

	// exp is set by Sign, but the window is enforced from iat as well so a
	// token minted with a longer lifetime under the same secret is refused.
	issuedAt := claims.IssuedAt.Time
	if s.now().Sub(issuedAt) > s.maxAge {
		return nil, ErrInvalidOrExpiredToken
	}
	return &RecoveryClaims{SubjectID: claims.Subject, IssuedAt: issuedAt}, nil
}
