// Package app ties the session to the note cache: a cache exists exactly
// while a user is signed in.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/cache"
	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	"github.com/DaX-523/notes-ai-1811/internal/session"
)

// CacheFactory builds the cache for a signed-in user.
type CacheFactory func(owner note.User) *cache.MutationCache

// Workspace owns the session context and the active user's cache.
type Workspace struct {
	session  *session.Context
	newCache CacheFactory
	logger   *zap.Logger

	// opening serializes cache creation so concurrent callers share one.
	opening sync.Mutex

	mu    sync.Mutex
	cache *cache.MutationCache
}

// NewWorkspace creates a workspace. Call Start to resolve the session.
func NewWorkspace(sess *session.Context, newCache CacheFactory, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{session: sess, newCache: newCache, logger: logger}
}

// Session exposes the identity context.
func (w *Workspace) Session() *session.Context {
	return w.session
}

// Start resolves the session and, when a user is signed in, loads their
// notes.
func (w *Workspace) Start(ctx context.Context) (*note.User, error) {
	user, err := w.session.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	if _, err := w.open(ctx, *user); err != nil {
		return user, err
	}
	return user, nil
}

// Notes returns the signed-in user's cache. It blocks until the session
// has resolved and fails with a permission error when nobody is signed in.
func (w *Workspace) Notes(ctx context.Context) (*cache.MutationCache, error) {
	user, err := w.session.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	w.opening.Lock()
	defer w.opening.Unlock()

	w.mu.Lock()
	c := w.cache
	w.mu.Unlock()
	if c != nil && c.Owner().ID == user.ID {
		return c, nil
	}
	return w.openLocked(ctx, user)
}

// SignIn authenticates and replaces any existing cache.
func (w *Workspace) SignIn(ctx context.Context, creds note.Credentials) (note.User, error) {
	user, err := w.session.SignIn(ctx, creds)
	if err != nil {
		return note.User{}, err
	}
	if _, err := w.open(ctx, user); err != nil {
		return user, err
	}
	return user, nil
}

// SignUp registers a user and opens their cache when the account is usable
// right away.
func (w *Workspace) SignUp(ctx context.Context, req note.SignUpRequest) (*note.User, error) {
	user, err := w.session.SignUp(ctx, req)
	if err != nil || user == nil {
		return user, err
	}
	if _, err := w.open(ctx, *user); err != nil {
		return user, err
	}
	return user, nil
}

// SignOut tears the cache down before ending the session.
func (w *Workspace) SignOut(ctx context.Context) error {
	if err := w.closeCache(ctx); err != nil {
		w.logger.Warn("Cache did not settle before sign-out", zap.Error(err))
	}
	return w.session.SignOut(ctx)
}

// Close waits for in-flight mutations and releases the cache.
func (w *Workspace) Close(ctx context.Context) error {
	return w.closeCache(ctx)
}

func (w *Workspace) open(ctx context.Context, user note.User) (*cache.MutationCache, error) {
	w.opening.Lock()
	defer w.opening.Unlock()
	return w.openLocked(ctx, user)
}

// openLocked replaces the active cache. The caller holds w.opening.
func (w *Workspace) openLocked(ctx context.Context, user note.User) (*cache.MutationCache, error) {
	c := w.newCache(user)

	w.mu.Lock()
	previous := w.cache
	w.cache = c
	w.mu.Unlock()

	if previous != nil {
		if err := previous.Close(ctx); err != nil {
			w.logger.Warn("Previous cache did not settle", zap.Error(err))
		}
	}
	if err := c.Refresh(ctx); err != nil {
		return c, err
	}
	w.logger.Debug("Workspace opened", zap.String("userID", user.ID), zap.Int("notes", len(c.Notes())))
	return c, nil
}

func (w *Workspace) closeCache(ctx context.Context) error {
	w.mu.Lock()
	c := w.cache
	w.cache = nil
	w.mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close(ctx)
}
