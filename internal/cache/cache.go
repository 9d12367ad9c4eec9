// Package cache keeps the signed-in user's notes in memory and applies
// mutations optimistically.
//
// Every mutation snapshots the visible notes, applies its change locally,
// then calls the store on its own goroutine. A failed call restores the
// snapshot. Successful or not, a settled mutation schedules a refresh from
// the store; a refresh only lands when no mutation began or settled while it
// was running and none is still in flight.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

// DefaultCallTimeout bounds each store or summarizer call.
const DefaultCallTimeout = 10 * time.Second

// Summarizer generates note summaries. Failures must be returned as errors.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// Options configures a MutationCache.
type Options struct {
	CallTimeout time.Duration
	Logger      *zap.Logger
}

// MutationCache owns the visible note collection of one session.
type MutationCache struct {
	store      repository.NoteStore
	summarizer Summarizer
	owner      note.User
	timeout    time.Duration
	logger     *zap.Logger

	// lifetime bounds background refreshes; canceled by Close.
	lifetime context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	notes    []note.Note
	loaded   bool
	epoch    uint64
	inflight int
	closed   bool
	pending  int
	idle     chan struct{}
}

// New creates an empty cache for owner. Call Refresh to load it.
func New(store repository.NoteStore, summarizer Summarizer, owner note.User, opts Options) *MutationCache {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	lifetime, cancel := context.WithCancel(context.Background())

	return &MutationCache{
		store:      store,
		summarizer: summarizer,
		owner:      owner,
		timeout:    opts.CallTimeout,
		logger:     opts.Logger.With(zap.String("userID", owner.ID)),
		lifetime:   lifetime,
		cancel:     cancel,
		notes:      make([]note.Note, 0),
	}
}

// Owner is the user whose notes the cache holds.
func (c *MutationCache) Owner() note.User {
	return c.owner
}

// Notes returns a deep copy of the visible notes.
func (c *MutationCache) Notes() []note.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	return note.CloneAll(c.notes)
}

// Loaded reports whether a refresh has landed at least once.
func (c *MutationCache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Get returns a copy of the visible note with id.
func (c *MutationCache) Get(id string) (note.Note, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := indexOf(c.notes, id); i >= 0 {
		return c.notes[i].Clone(), true
	}
	return note.Note{}, false
}

// Search fuzzy-matches query against titles and contents, best match first.
// An empty query returns every visible note.
func (c *MutationCache) Search(query string) []note.Note {
	notes := c.Notes()
	if strings.TrimSpace(query) == "" {
		return notes
	}

	haystack := make([]string, len(notes))
	for i, n := range notes {
		haystack[i] = n.Title + " " + n.Content
	}
	matches := fuzzy.Find(query, haystack)

	out := make([]note.Note, 0, len(matches))
	for _, match := range matches {
		out = append(out, notes[match.Index])
	}
	return out
}

// Refresh reloads the collection from the store. A result that raced with a
// mutation is discarded and Refresh still returns nil.
func (c *MutationCache) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

func (c *MutationCache) refresh(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, sessionClosed("Refresh")
	}
	epoch := c.epoch
	c.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fresh, err := c.store.List(callCtx, c.owner.ID)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || c.inflight > 0 {
		c.logger.Debug("Discarding stale refresh",
			zap.Uint64("startedAt", epoch),
			zap.Uint64("epoch", c.epoch),
			zap.Int("inflight", c.inflight),
		)
		return false, nil
	}
	c.notes = note.CloneAll(fresh)
	c.loaded = true
	return true, nil
}

// scheduleRefresh runs a reconciliation refresh in the background.
// Callers hold a pending slot, so Close cannot have finished waiting.
func (c *MutationCache) scheduleRefresh() {
	if !c.track() {
		return
	}
	go func() {
		defer c.untrack()
		if _, err := c.refresh(c.lifetime); err != nil && !apperrors.IsPermission(err) {
			c.logger.Warn("Reconciliation refresh failed", zap.Error(err))
		}
	}()
}

// WaitIdle blocks until every mutation and its refresh has finished.
func (c *MutationCache) WaitIdle(ctx context.Context) error {
	c.mu.Lock()
	if c.pending == 0 {
		c.mu.Unlock()
		return nil
	}
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further mutations and waits for in-flight work. The cache
// keeps its last notes for reading.
func (c *MutationCache) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	err := c.WaitIdle(ctx)
	c.cancel()
	return err
}

// track reserves a pending slot unless the cache is closed.
func (c *MutationCache) track() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.trackLocked()
	return true
}

func (c *MutationCache) trackLocked() {
	if c.pending == 0 {
		c.idle = make(chan struct{})
	}
	c.pending++
}

func (c *MutationCache) untrack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if c.pending == 0 {
		close(c.idle)
	}
}

func indexOf(notes []note.Note, id string) int {
	for i := range notes {
		if notes[i].ID == id {
			return i
		}
	}
	return -1
}

func sessionClosed(operation string) error {
	return apperrors.Permission(apperrors.CodeSessionClosed, "the session has ended").
		WithOperation(operation).
		Build()
}
