package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"patorama/pkg/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestSessionStore(t *testing.T, revoker TokenRevoker, opts JWTOptions) *JWTSessionStore {
	t.Helper()
	s, err := NewJWTSessionStore(testSecret, time.Hour, revoker, opts)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	return s
}

func testUser() domain.User {
	return domain.User{ID: 42, Name: "Sam", Email: "sam@example.com", Role: domain.RoleTeamManager}
}

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s := newTestSessionStore(t, nil, JWTOptions{})
	token, expiresAt, err := s.NewSession(testUser())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if time.Until(expiresAt) <= 59*time.Minute {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}
	sess, err := s.ResolveSession(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if sess.UserID != 42 || sess.Email != "sam@example.com" || sess.Role != domain.RoleTeamManager {
		t.Fatalf("unexpected session %+v", sess)
	}
	if sess.TokenID == "" {
		t.Fatalf("expected jti")
	}
}

func TestJWTSessionStoreRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("short", time.Hour, nil, JWTOptions{}); err == nil {
		t.Fatalf("expected short secret to fail")
	}
	if _, err := NewJWTSessionStore(testSecret, 0, nil, JWTOptions{}); err == nil {
		t.Fatalf("expected zero ttl to fail")
	}
}

func TestJWTSessionStoreEnforcesAudience(t *testing.T) {
	signing := newTestSessionStore(t, nil, JWTOptions{Issuer: "issuer-a", Audience: "aud-a", Leeway: time.Second})
	verify := newTestSessionStore(t, nil, JWTOptions{Issuer: "issuer-a", Audience: "aud-b", Leeway: time.Second})

	token, _, err := signing.NewSession(testUser())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := verify.ResolveSession(context.Background(), token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected audience mismatch to fail, got %v", err)
	}
}

func TestJWTSessionStoreRejectsTamperedAndForeignTokens(t *testing.T) {
	s := newTestSessionStore(t, nil, JWTOptions{})
	token, _, err := s.NewSession(testUser())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	if _, err := s.ResolveSession(context.Background(), tampered); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected tampered token to fail, got %v", err)
	}

	other, err := NewJWTSessionStore(strings.Repeat("z", 32), time.Hour, nil, JWTOptions{})
	if err != nil {
		t.Fatalf("other store: %v", err)
	}
	foreign, _, err := other.NewSession(testUser())
	if err != nil {
		t.Fatalf("foreign session: %v", err)
	}
	if _, err := s.ResolveSession(context.Background(), foreign); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected foreign signature to fail, got %v", err)
	}
	if _, err := s.ResolveSession(context.Background(), "  "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected empty token to fail, got %v", err)
	}
}

func TestJWTSessionStoreRejectsExpired(t *testing.T) {
	s := newTestSessionStore(t, nil, JWTOptions{Leeway: time.Second})
	past := time.Now().Add(-2 * time.Hour)
	claims := SessionClaims{
		Email: "sam@example.com",
		Role:  string(domain.RoleEditor),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    defaultJWTIssuer,
			Audience:  jwt.ClaimStrings{defaultJWTAudience},
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
			ID:        "expired-jti",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.ResolveSession(context.Background(), token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestJWTSessionStoreRevokesByJTI(t *testing.T) {
	revoker := NewMemoryTokenRevoker()
	s := newTestSessionStore(t, revoker, JWTOptions{})
	ctx := context.Background()

	token, _, err := s.NewSession(testUser())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(ctx, token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := s.ResolveSession(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}

	fresh, _, err := s.NewSession(testUser())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := s.ResolveSession(ctx, fresh); err != nil {
		t.Fatalf("fresh token should stay valid: %v", err)
	}
	if err := s.DeleteSession(ctx, "garbage"); err != nil {
		t.Fatalf("invalid token logout should be a no-op, got %v", err)
	}
}
