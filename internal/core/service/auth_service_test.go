package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vlessbot/provisioner/internal/core/domain"
)

func mustHash(t *testing.T, key string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(hash)
}

func parseRole(t *testing.T, token, secret string) string {
	t.Helper()
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("invalid token: %v", err)
	}
	role, _ := claims["role"].(string)
	return role
}

func TestAuthService_IssueToken_Frontend(t *testing.T) {
	svc := NewAuthService(mustHash(t, "bot-key"), mustHash(t, "admin-key"), "secret", time.Hour)

	token, role, err := svc.IssueToken(context.Background(), "bot-key")
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}
	if role != RoleFrontend {
		t.Errorf("expected role %q, got %q", RoleFrontend, role)
	}
	if got := parseRole(t, token, "secret"); got != RoleFrontend {
		t.Errorf("token role: expected %q, got %q", RoleFrontend, got)
	}
}

func TestAuthService_IssueToken_Admin(t *testing.T) {
	svc := NewAuthService(mustHash(t, "bot-key"), mustHash(t, "admin-key"), "secret", time.Hour)

	token, role, err := svc.IssueToken(context.Background(), "admin-key")
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}
	if role != RoleAdmin || parseRole(t, token, "secret") != RoleAdmin {
		t.Errorf("expected admin token, got role %q", role)
	}
}

func TestAuthService_IssueToken_WrongKey(t *testing.T) {
	svc := NewAuthService(mustHash(t, "bot-key"), "", "secret", time.Hour)

	if _, _, err := svc.IssueToken(context.Background(), "nope"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.IssueToken(context.Background(), ""); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for empty key, got %v", err)
	}
}

func TestHashKey_RoundTrip(t *testing.T) {
	hash, err := HashKey("k")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("k")) != nil {
		t.Error("hash must match its key")
	}
}
