// Package session resolves who the current user is and keeps that identity
// across runs.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
)

// ErrUnreachable marks boundary failures caused by the auth service being
// out of reach, as opposed to it rejecting the request.
var ErrUnreachable = errors.New("auth service unreachable")

// Session is an authenticated session issued by the boundary.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         note.User
}

// Active reports whether the session carries a usable token.
func (s *Session) Active() bool {
	return s != nil && s.AccessToken != ""
}

// Boundary is the external auth service.
type Boundary interface {
	// GetSession returns the active session, or nil when there is none. An
	// error wrapping ErrUnreachable means the answer is unknown.
	GetSession(ctx context.Context) (*Session, error)
	SignIn(ctx context.Context, creds note.Credentials) (*Session, error)
	// SignUp registers a user. The returned session has no token when the
	// service asks for email confirmation first.
	SignUp(ctx context.Context, req note.SignUpRequest) (*Session, error)
	SignOut(ctx context.Context) error
}

// Record is the identity persisted between runs.
type Record struct {
	User         note.User `yaml:"user"`
	AccessToken  string    `yaml:"access_token,omitempty"`
	RefreshToken string    `yaml:"refresh_token,omitempty"`
	ExpiresAt    time.Time `yaml:"expires_at,omitempty"`
	SavedAt      time.Time `yaml:"saved_at"`
}

// LocalStore persists the last known identity.
type LocalStore interface {
	// Load returns nil without error when nothing is stored.
	Load() (*Record, error)
	Save(rec Record) error
	Clear() error
}

func recordFor(s *Session, now time.Time) Record {
	return Record{
		User:         s.User,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		SavedAt:      now.UTC(),
	}
}
