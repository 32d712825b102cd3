package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/vlessbot/provisioner/internal/core/domain"
)

const (
	RoleFrontend = "frontend"
	RoleAdmin    = "admin"
)

// AuthService exchanges an API key for a short-lived bearer token. Keys are
// never stored in clear; only their bcrypt hashes are configured.
type AuthService struct {
	frontendKeyHash []byte
	adminKeyHash    []byte
	jwtSecret       string
	tokenTTL        time.Duration
}

func NewAuthService(frontendKeyHash, adminKeyHash, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		frontendKeyHash: []byte(frontendKeyHash),
		adminKeyHash:    []byte(adminKeyHash),
		jwtSecret:       jwtSecret,
		tokenTTL:        tokenTTL,
	}
}

// IssueToken returns a signed token and the role granted to key.
func (s *AuthService) IssueToken(_ context.Context, key string) (string, string, error) {
	if key == "" {
		return "", "", domain.ErrInvalidCredentials
	}

	var role string
	switch {
	case matches(s.adminKeyHash, key):
		role = RoleAdmin
	case matches(s.frontendKeyHash, key):
		role = RoleFrontend
	default:
		return "", "", domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(role)
	if err != nil {
		return "", "", err
	}
	return token, role, nil
}

func (s *AuthService) generateToken(role string) (string, error) {
	claims := jwt.MapClaims{
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

func matches(hash []byte, key string) bool {
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(key)) == nil
}

// HashKey returns the bcrypt hash to put in FRONTEND_KEY_HASH or ADMIN_KEY_HASH.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
