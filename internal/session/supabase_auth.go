package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	gotrue "github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
)

// SupabaseAuth implements Boundary with Supabase Auth (GoTrue). The tokens
// of the current session are read from the local store.
type SupabaseAuth struct {
	client gotrue.Client
	tokens LocalStore
	logger *zap.Logger
}

// NewSupabaseAuth connects to the project at url with the anon key.
func NewSupabaseAuth(url, anonKey string, tokens LocalStore, logger *zap.Logger) (*SupabaseAuth, error) {
	client, err := supa.NewClient(url, anonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return NewSupabaseAuthWithClient(client.Auth, tokens, logger), nil
}

// NewSupabaseAuthWithClient wraps an existing GoTrue client.
func NewSupabaseAuthWithClient(client gotrue.Client, tokens LocalStore, logger *zap.Logger) *SupabaseAuth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupabaseAuth{client: client, tokens: tokens, logger: logger}
}

// GetSession validates the stored access token and refreshes it once when
// the service rejects it.
func (a *SupabaseAuth) GetSession(ctx context.Context) (*Session, error) {
	rec, err := a.tokens.Load()
	if err != nil {
		a.logger.Warn("Ignoring unreadable session record", zap.Error(err))
		return nil, nil
	}
	if rec == nil || rec.AccessToken == "" {
		return nil, nil
	}

	var user *types.UserResponse
	err = call(ctx, func() error {
		var err error
		user, err = a.client.WithToken(rec.AccessToken).GetUser()
		return err
	})
	if err == nil {
		return &Session{
			AccessToken:  rec.AccessToken,
			RefreshToken: rec.RefreshToken,
			ExpiresAt:    rec.ExpiresAt,
			User:         userFrom(user.User),
		}, nil
	}
	if errors.Is(err, ErrUnreachable) {
		return nil, err
	}
	if rec.RefreshToken == "" {
		return nil, nil
	}

	var token *types.TokenResponse
	err = call(ctx, func() error {
		var err error
		token, err = a.client.RefreshToken(rec.RefreshToken)
		return err
	})
	if errors.Is(err, ErrUnreachable) {
		return nil, err
	}
	if err != nil {
		a.logger.Debug("Stored session is no longer valid", zap.Error(err))
		return nil, nil
	}
	return sessionFrom(token.Session), nil
}

func (a *SupabaseAuth) SignIn(ctx context.Context, creds note.Credentials) (*Session, error) {
	var token *types.TokenResponse
	err := call(ctx, func() error {
		var err error
		token, err = a.client.SignInWithEmailPassword(creds.Email, creds.Password)
		return err
	})
	if err != nil {
		return nil, authError(err, "SignIn", apperrors.CodeBadCredentials, "invalid email or password")
	}
	return sessionFrom(token.Session), nil
}

// SignUp registers the user with the display name in user metadata.
func (a *SupabaseAuth) SignUp(ctx context.Context, req note.SignUpRequest) (*Session, error) {
	var resp *types.SignupResponse
	err := call(ctx, func() error {
		var err error
		resp, err = a.client.Signup(types.SignupRequest{
			Email:    req.Email,
			Password: req.Password,
			Data:     map[string]interface{}{"name": req.Name},
		})
		return err
	})
	if err != nil {
		return nil, authError(err, "SignUp", apperrors.CodeUserExists, "could not create the account")
	}

	s := sessionFrom(resp.Session)
	if resp.User.ID != uuid.Nil {
		s.User = userFrom(resp.User)
	}
	if s.User.Name == "" {
		s.User.Name = req.Name
	}
	return s, nil
}

// SignOut revokes the stored session. A missing session is not an error.
func (a *SupabaseAuth) SignOut(ctx context.Context) error {
	rec, err := a.tokens.Load()
	if err != nil || rec == nil || rec.AccessToken == "" {
		return nil
	}
	err = call(ctx, func() error {
		return a.client.WithToken(rec.AccessToken).Logout()
	})
	if err != nil && !errors.Is(err, ErrUnreachable) {
		a.logger.Debug("Logout rejected", zap.Error(err))
		return nil
	}
	return err
}

// call runs a GoTrue request, which takes no context, bounded by ctx.
func call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrUnreachable, ctx.Err())
	}
}

func authError(err error, operation, rejectedCode, message string) error {
	if errors.Is(err, ErrUnreachable) {
		return apperrors.Store(apperrors.CodeStoreUnavailable, "the sign-in service is unreachable").
			WithOperation(operation).
			WithCause(err).
			Build()
	}
	msg := err.Error()
	if strings.Contains(msg, "status code 4") {
		if rejectedCode == apperrors.CodeUserExists && !strings.Contains(strings.ToLower(msg), "already") {
			return apperrors.Validation(apperrors.CodeInvalidInput, "the sign-up details were rejected").
				WithOperation(operation).
				WithCause(err).
				Build()
		}
		return apperrors.Permission(rejectedCode, message).
			WithOperation(operation).
			WithCause(err).
			Build()
	}
	return apperrors.Store(apperrors.CodeStoreUnavailable, "the sign-in service failed").
		WithOperation(operation).
		WithCause(err).
		Build()
}

func sessionFrom(s types.Session) *Session {
	out := &Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         userFrom(s.User),
	}
	if s.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	}
	return out
}

func userFrom(u types.User) note.User {
	user := note.User{Email: u.Email}
	if u.ID != uuid.Nil {
		user.ID = u.ID.String()
	}
	if name, ok := u.UserMetadata["name"].(string); ok {
		user.Name = name
	}
	return user
}

var _ Boundary = (*SupabaseAuth)(nil)
