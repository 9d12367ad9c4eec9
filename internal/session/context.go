package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
)

// Context holds the identity of the running client. Note operations wait
// until it has resolved.
type Context struct {
	boundary Boundary
	local    LocalStore
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	user     *note.User
	token    string
	resolved bool
	ready    chan struct{}
}

// NewContext creates an unresolved context.
func NewContext(boundary Boundary, local LocalStore, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		boundary: boundary,
		local:    local,
		logger:   logger,
		now:      time.Now,
		ready:    make(chan struct{}),
	}
}

// Resolve determines the current user: the active session first, then the
// locally saved identity when the auth service cannot be reached. Later
// calls return the already resolved user.
func (c *Context) Resolve(ctx context.Context) (*note.User, error) {
	if c.IsResolved() {
		return c.CurrentUser(), nil
	}

	s, err := c.boundary.GetSession(ctx)
	switch {
	case err != nil && errors.Is(err, ErrUnreachable):
		rec, loadErr := c.local.Load()
		if loadErr != nil {
			c.logger.Warn("Failed to read saved identity", zap.Error(loadErr))
		}
		if rec != nil {
			c.logger.Info("Auth service unreachable, using saved identity", zap.String("userID", rec.User.ID))
			c.set(&rec.User, rec.AccessToken)
		} else {
			c.set(nil, "")
		}
	case err != nil:
		return nil, err
	case s.Active():
		if saveErr := c.local.Save(recordFor(s, c.now())); saveErr != nil {
			c.logger.Warn("Failed to save identity", zap.Error(saveErr))
		}
		c.set(&s.User, s.AccessToken)
	default:
		if clearErr := c.local.Clear(); clearErr != nil {
			c.logger.Warn("Failed to clear saved identity", zap.Error(clearErr))
		}
		c.set(nil, "")
	}
	return c.CurrentUser(), nil
}

// CurrentUser returns a copy of the signed-in user, or nil.
func (c *Context) CurrentUser() *note.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Token is the bearer token of the current session.
func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// IsResolved reports whether Resolve, SignIn or SignUp has completed.
func (c *Context) IsResolved() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolved
}

// WaitResolved blocks until the identity is known.
func (c *Context) WaitResolved(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequireUser returns the signed-in user or a permission error.
func (c *Context) RequireUser(ctx context.Context) (note.User, error) {
	if err := c.WaitResolved(ctx); err != nil {
		return note.User{}, err
	}
	u := c.CurrentUser()
	if u == nil {
		return note.User{}, apperrors.Permission(apperrors.CodeNoSession, "You must be signed in").Build()
	}
	return *u, nil
}

// SignIn authenticates and saves the identity.
func (c *Context) SignIn(ctx context.Context, creds note.Credentials) (note.User, error) {
	if err := note.Validate(creds); err != nil {
		return note.User{}, err
	}
	s, err := c.boundary.SignIn(ctx, creds)
	if err != nil {
		return note.User{}, err
	}
	return c.establish(s)
}

// SignUp registers a user. The returned user is nil when the account still
// needs email confirmation; the context then stays signed out.
func (c *Context) SignUp(ctx context.Context, req note.SignUpRequest) (*note.User, error) {
	if err := note.Validate(req); err != nil {
		return nil, err
	}
	s, err := c.boundary.SignUp(ctx, req)
	if err != nil {
		return nil, err
	}
	if !s.Active() {
		c.set(nil, "")
		return nil, nil
	}
	u, err := c.establish(s)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SignOut ends the session and forgets the saved identity.
func (c *Context) SignOut(ctx context.Context) error {
	err := c.boundary.SignOut(ctx)
	if clearErr := c.local.Clear(); clearErr != nil {
		c.logger.Warn("Failed to clear saved identity", zap.Error(clearErr))
	}
	c.set(nil, "")
	return err
}

func (c *Context) establish(s *Session) (note.User, error) {
	if err := c.local.Save(recordFor(s, c.now())); err != nil {
		c.logger.Warn("Failed to save identity", zap.Error(err))
	}
	c.set(&s.User, s.AccessToken)
	return s.User, nil
}

func (c *Context) set(user *note.User, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if user != nil {
		u := *user
		c.user = &u
	} else {
		c.user = nil
	}
	c.token = token
	if !c.resolved {
		c.resolved = true
		close(c.ready)
	}
}
