package services

import (
	"context"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shoplist/server/internal/models"
	"github.com/shoplist/server/internal/repository"
)

var pinPattern = regexp.MustCompile(`^\d{4,6}$`)

// AuthService manages the access PIN and the bearer sessions it unlocks
type AuthService struct {
	settingsRepo    repository.SettingsRepo
	sessionRepo     repository.SessionRepo
	sessionDuration time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(settingsRepo repository.SettingsRepo, sessionRepo repository.SessionRepo, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		settingsRepo:    settingsRepo,
		sessionRepo:     sessionRepo,
		sessionDuration: sessionDuration,
	}
}

// IsPinConfigured reports whether a PIN has been set up
func (s *AuthService) IsPinConfigured(ctx context.Context) (bool, error) {
	hash, err := s.settingsRepo.Get(ctx, repository.SettingKeyPinHash)
	if err != nil {
		return false, err
	}
	return hash != "", nil
}

// SetupPin stores the initial PIN and returns a fresh session token.
// Fails if a PIN is already configured.
func (s *AuthService) SetupPin(ctx context.Context, pin string) (string, error) {
	if !pinPattern.MatchString(pin) {
		return "", models.ErrPINInvalid
	}

	existing, err := s.settingsRepo.Get(ctx, repository.SettingKeyPinHash)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return "", models.ErrPINAlreadySet
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), 12)
	if err != nil {
		return "", err
	}
	if err := s.settingsRepo.Set(ctx, repository.SettingKeyPinHash, string(hash)); err != nil {
		return "", err
	}

	return s.createSession(ctx)
}

// VerifyPin checks the PIN and returns a session token on match
func (s *AuthService) VerifyPin(ctx context.Context, pin string) (string, error) {
	stored, err := s.settingsRepo.Get(ctx, repository.SettingKeyPinHash)
	if err != nil {
		return "", err
	}
	if stored == "" {
		return "", models.ErrPINNotSet
	}

	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(pin)); err != nil {
		return "", models.ErrPINMismatch
	}

	return s.createSession(ctx)
}

// ValidateToken reports whether the token belongs to a live session.
// Expired sessions are deleted on sight.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (bool, error) {
	session, err := s.sessionRepo.Get(ctx, token)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}
	if session.IsExpired() {
		if err := s.sessionRepo.Delete(ctx, token); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Logout invalidates a session token
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessionRepo.Delete(ctx, token)
}

func (s *AuthService) createSession(ctx context.Context) (string, error) {
	session := models.NewSession(s.sessionDuration)
	if err := s.sessionRepo.Add(ctx, session); err != nil {
		return "", err
	}
	return session.Token, nil
}
