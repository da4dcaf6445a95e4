package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a bearer token issued after PIN verification
type Session struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewSession creates a session valid for the given duration
func NewSession(duration time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		Token:     uuid.New().String(),
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
	}
}

// IsExpired reports whether the session is past its expiry
func (s *Session) IsExpired() bool {
	return time.Now().UTC().After(s.ExpiresAt)
}
