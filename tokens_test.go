package ninjaauth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	na "github.com/devsnb/ninja-authentication"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClockedTokens(secret string, maxAge time.Duration) (*na.TokenService, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := na.NewTokenService([]byte(secret), maxAge)
	svc.Now = clock.Now
	return svc, clock
}

func TestTokenSignAndVerify(t *testing.T) {
	svc, clock := newClockedTokens("secret", time.Hour)

	token, err := svc.Sign(na.RecoveryClaims{SubjectID: "user-1"})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	clock.Advance(59 * time.Minute)

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.SubjectID != "user-1" {
		t.Errorf("Expected subject user-1, got %s", claims.SubjectID)
	}
	if !claims.IssuedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected issued at %v", claims.IssuedAt)
	}
}

func TestTokenExpires(t *testing.T) {
	svc, clock := newClockedTokens("secret", time.Hour)
	token, _ := svc.Sign(na.RecoveryClaims{SubjectID: "user-1"})

	clock.Advance(time.Hour + time.Second)
	if _, err := svc.Verify(token); !errors.Is(err, na.ErrInvalidOrExpiredToken) {
		t.Errorf("Expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestTokenTampered(t *testing.T) {
	svc, _ := newClockedTokens("secret", time.Hour)
	token, _ := svc.Sign(na.RecoveryClaims{SubjectID: "user-1"})

	parts := strings.Split(token, ".")
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-2"})
	forgedParts := strings.Split(must(forged.SignedString([]byte("secret"))), ".")
	spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]

	for name, tok := range map[string]string{
		"empty":          "",
		"garbage":        "not.a.token",
		"spliced claims": spliced,
		"truncated":      token[:len(token)-2],
	} {
		if _, err := svc.Verify(tok); !errors.Is(err, na.ErrInvalidOrExpiredToken) {
			t.Errorf("%s: expected ErrInvalidOrExpiredToken, got %v", name, err)
		}
	}
}

func TestTokenWrongSecret(t *testing.T) {
	a, _ := newClockedTokens("secret-a", time.Hour)
	b, _ := newClockedTokens("secret-b", time.Hour)
	token, _ := a.Sign(na.RecoveryClaims{SubjectID: "user-1"})
	if _, err := b.Verify(token); err == nil {
		t.Error("Token signed with another secret should not verify")
	}
}

func TestTokenRejectsOtherAudienceAndLongLifetime(t *testing.T) {
	svc, clock := newClockedTokens("secret", time.Hour)
	now := clock.Now()

	sign := func(claims jwt.RegisteredClaims) string {
		return must(jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret")))
	}

	otherAudience := sign(jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    svc.Issuer,
		Audience:  jwt.ClaimStrings{"session"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	if _, err := svc.Verify(otherAudience); err == nil {
		t.Error("Token for another audience should not verify")
	}

	// valid exp, but issued longer ago than the window
	longLived := sign(jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    svc.Issuer,
		Audience:  jwt.ClaimStrings{"password-reset"},
		IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
	})
	if _, err := svc.Verify(longLived); err == nil {
		t.Error("Token older than the window should not verify")
	}

	noneAlg := must(jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    svc.Issuer,
		Audience:  jwt.ClaimStrings{"password-reset"},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType))
	if _, err := svc.Verify(noneAlg); err == nil {
		t.Error("Unsigned token should not verify")
	}
}

func TestTokenSignRequiresSubjectAndSecret(t *testing.T) {
	svc, _ := newClockedTokens("secret", time.Hour)
	if _, err := svc.Sign(na.RecoveryClaims{}); err == nil {
		t.Error("Expected error for empty subject")
	}
	empty, _ := newClockedTokens("", time.Hour)
	if _, err := empty.Sign(na.RecoveryClaims{SubjectID: "user-1"}); err == nil {
		t.Error("Expected error for empty secret")
	}
}

func TestTokenDefaultMaxAge(t *testing.T) {
	svc := na.NewTokenService([]byte("secret"), 0)
	if svc.MaxAge() != na.TokenExpiryPasswordReset {
		t.Errorf("Expected default max age %v, got %v", na.TokenExpiryPasswordReset, svc.MaxAge())
	}
}

func must(s string, err error) string {
	if err != nil {
		panic(err)
	}
	return s
}
