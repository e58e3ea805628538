package services

import (
	"context"
	"crypto/subtle"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tombaby2015-max/family-photo-album-google/repository"
)

// AuthService issues and checks admin session tokens.
type AuthService struct {
	sessions     repository.SessionRepositoryInterface
	password     string
	passwordHash string
	ttl          time.Duration
}

func NewAuthService(sessions repository.SessionRepositoryInterface, password, passwordHash string, ttl time.Duration) *AuthService {
	return &AuthService{sessions: sessions, password: password, passwordHash: passwordHash, ttl: ttl}
}

func (s *AuthService) checkPassword(password string) bool {
	if s.passwordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)) == nil
	}
	if s.password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.password), []byte(password)) == 1
}

// Login returns a fresh session token when password matches.
func (s *AuthService) Login(ctx context.Context, password string) (string, error) {
	if password == "" || !s.checkPassword(password) {
		return "", ErrUnauthorized
	}
	token := uuid.NewString()
	if err := s.sessions.Create(ctx, token, s.ttl); err != nil {
		return "", storeErr("create session", err)
	}
	return token, nil
}

// IsAdmin reports whether token names a live session. Store errors count as
// not authenticated.
func (s *AuthService) IsAdmin(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	ok, err := s.sessions.Exists(ctx, token)
	if err != nil {
		log.Printf("auth: session lookup failed: %v", err)
		return false
	}
	return ok
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return storeErr("delete session", err)
	}
	return nil
}
