package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/persistence/memory"
)

var (
	alice = note.User{ID: "user-1", Name: "Alice"}
	base  = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

// gatedStore wraps the memory store. A held operation blocks its next call
// until released; a queued failure replaces its next call.
type gatedStore struct {
	*memory.NoteStore

	mu       sync.Mutex
	gates    map[string]chan struct{}
	failures map[string]error
	calls    map[string]int
	entered  chan string
}

func newGatedStore(seed ...note.Note) *gatedStore {
	inner := memory.NewNoteStore()
	inner.Seed(seed...)
	return &gatedStore{
		NoteStore: inner,
		gates:     make(map[string]chan struct{}),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
		entered:   make(chan string, 16),
	}
}

// hold makes the next call of op block until the returned func is called.
func (s *gatedStore) hold(op string) func() {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[op] = gate
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (s *gatedStore) failNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *gatedStore) callCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *gatedStore) gate(ctx context.Context, op string) error {
	s.mu.Lock()
	s.calls[op]++
	gate := s.gates[op]
	delete(s.gates, op)
	err := s.failures[op]
	delete(s.failures, op)
	s.mu.Unlock()

	if gate != nil {
		s.entered <- op
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// List reads first and waits afterwards, so a held refresh returns data
// that was current when it started.
func (s *gatedStore) List(ctx context.Context, userID string) ([]note.Note, error) {
	notes, err := s.NoteStore.List(ctx, userID)
	if gateErr := s.gate(ctx, "List"); gateErr != nil {
		return nil, gateErr
	}
	return notes, err
}

func (s *gatedStore) Create(ctx context.Context, n note.Note) (note.Note, error) {
	if err := s.gate(ctx, "Create"); err != nil {
		return note.Note{}, err
	}
	return s.NoteStore.Create(ctx, n)
}

func (s *gatedStore) Update(ctx context.Context, n note.Note) (note.Note, error) {
	if err := s.gate(ctx, "Update"); err != nil {
		return note.Note{}, err
	}
	return s.NoteStore.Update(ctx, n)
}

func (s *gatedStore) Delete(ctx context.Context, noteID, userID string) (string, error) {
	if err := s.gate(ctx, "Delete"); err != nil {
		return "", err
	}
	return s.NoteStore.Delete(ctx, noteID, userID)
}

func (s *gatedStore) UpdateSummary(ctx context.Context, n note.Note) (note.Note, error) {
	if err := s.gate(ctx, "UpdateSummary"); err != nil {
		return note.Note{}, err
	}
	return s.NoteStore.UpdateSummary(ctx, n)
}

type summarizerFunc func(ctx context.Context, content string) (string, error)

func (f summarizerFunc) Summarize(ctx context.Context, content string) (string, error) {
	return f(ctx, content)
}

func fixture(id, userID, title string, offset time.Duration) note.Note {
	return note.Note{
		ID:        id,
		Title:     title,
		Content:   "content of " + title,
		CreatedAt: base.Add(offset),
		UserID:    userID,
	}
}

func storeDown() error {
	return apperrors.Store(apperrors.CodeStoreUnavailable, "store is down").Build()
}

func newLoadedCache(t *testing.T, store *gatedStore, summarizer Summarizer) *MutationCache {
	t.Helper()
	c := New(store, summarizer, alice, Options{CallTimeout: time.Second, Logger: zap.NewNop()})
	require.NoError(t, c.Refresh(context.Background()))
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func waitEntered(t *testing.T, store *gatedStore, op string) {
	t.Helper()
	select {
	case got := <-store.entered:
		require.Equal(t, op, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("%s was never dispatched", op)
	}
}

func settle(t *testing.T, m *Mutation) (note.Note, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.Wait(ctx)
}

func idle(t *testing.T, c *MutationCache) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.WaitIdle(ctx))
}

func ids(notes []note.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func TestMutationCache_Create_AppearsThenPersists(t *testing.T) {
	// Arrange
	store := newGatedStore()
	c := newLoadedCache(t, store, nil)
	release := store.hold("Create")

	// Act
	m := c.Create(context.Background(), "T", "C")
	waitEntered(t, store, "Create")
	optimistic := c.Notes()
	release()
	created, err := settle(t, m)
	idle(t, c)

	// Assert
	require.Len(t, optimistic, 1)
	assert.Equal(t, "T", optimistic[0].Title)
	require.NoError(t, err)
	notes := c.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "T", notes[0].Title)
	assert.Equal(t, "C", notes[0].Content)
	assert.NotEmpty(t, notes[0].ID)
	assert.False(t, notes[0].CreatedAt.IsZero())
	assert.Equal(t, created.ID, notes[0].ID)
	assert.Equal(t, alice.ID, notes[0].UserID)
}

func TestMutationCache_Create_StoreFailureRollsBack(t *testing.T) {
	// Arrange
	store := newGatedStore()
	c := newLoadedCache(t, store, nil)
	store.failNext("Create", storeDown())
	release := store.hold("Create")

	// Act
	m := c.Create(context.Background(), "T", "C")
	waitEntered(t, store, "Create")
	during := c.Notes()
	release()
	_, err := settle(t, m)
	idle(t, c)

	// Assert
	assert.Len(t, during, 1)
	assert.True(t, apperrors.IsStore(err))
	assert.Empty(t, c.Notes())
}

func TestMutationCache_DeleteWhileUpdateInFlight(t *testing.T) {
	// Arrange
	n1 := fixture("n1", alice.ID, "first", 0)
	n2 := fixture("n2", alice.ID, "second", time.Minute)
	n3 := fixture("n3", alice.ID, "third", 2*time.Minute)
	store := newGatedStore(n1, n2, n3)
	c := newLoadedCache(t, store, nil)
	release := store.hold("Update")

	// Act
	edit := n2
	edit.Title = "second, edited"
	update := c.Update(context.Background(), edit)
	waitEntered(t, store, "Update")
	del := c.Delete(context.Background(), "n1")
	_, delErr := settle(t, del)
	release()
	_, updateErr := settle(t, update)
	idle(t, c)

	// Assert
	require.NoError(t, delErr)
	require.NoError(t, updateErr)
	notes := c.Notes()
	assert.Equal(t, []string{"n3", "n2"}, ids(notes))
	assert.Equal(t, "second, edited", notes[1].Title)
}

func TestMutationCache_DeleteSucceedsAfterSiblingUpdateRollsBack(t *testing.T) {
	// Arrange
	n1 := fixture("n1", alice.ID, "first", 0)
	n2 := fixture("n2", alice.ID, "second", time.Minute)
	store := newGatedStore(n1, n2)
	c := newLoadedCache(t, store, nil)
	store.failNext("Update", storeDown())
	releaseUpdate := store.hold("Update")
	releaseDelete := store.hold("Delete")

	// Act
	edit := n1
	edit.Title = "first, edited"
	update := c.Update(context.Background(), edit)
	waitEntered(t, store, "Update")
	del := c.Delete(context.Background(), "n1")
	waitEntered(t, store, "Delete")

	store.failNext("List", storeDown())
	releaseFirstList := store.hold("List")
	releaseUpdate()
	_, updateErr := settle(t, update)
	waitEntered(t, store, "List")
	restored := c.Notes()

	store.failNext("List", storeDown())
	releaseSecondList := store.hold("List")
	releaseDelete()
	_, delErr := settle(t, del)
	waitEntered(t, store, "List")
	afterDelete := c.Notes()

	releaseFirstList()
	releaseSecondList()
	idle(t, c)

	// Assert
	assert.True(t, apperrors.IsStore(updateErr))
	require.NoError(t, delErr)
	assert.Equal(t, []string{"n2", "n1"}, ids(restored))
	assert.Equal(t, []string{"n2"}, ids(afterDelete))
	for _, n := range c.Notes() {
		assert.NotEmpty(t, n.Title)
		assert.NotEmpty(t, n.UserID)
	}
	assert.Equal(t, []string{"n2"}, ids(c.Notes()))
}

func TestMutationCache_Update_ForeignNoteIsNotFound(t *testing.T) {
	// Arrange
	foreign := fixture("theirs", "user-2", "not yours", 0)
	mine := fixture("mine", alice.ID, "yours", time.Minute)
	store := newGatedStore(foreign, mine)
	c := newLoadedCache(t, store, nil)
	before := c.Notes()

	// Act
	edit := foreign
	edit.Title = "hijacked"
	_, err := settle(t, c.Update(context.Background(), edit))
	idle(t, c)

	// Assert
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, before, c.Notes())
	stored, listErr := store.NoteStore.List(context.Background(), "user-2")
	require.NoError(t, listErr)
	assert.Equal(t, "not yours", stored[0].Title)
}

func TestMutationCache_FailedMutationRestoresExactState(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		mutate func(c *MutationCache) *Mutation
	}{
		{"update", "Update", func(c *MutationCache) *Mutation {
			n, _ := c.Get("n2")
			n.Title = "changed"
			n.Content = "changed"
			return c.Update(context.Background(), n)
		}},
		{"delete", "Delete", func(c *MutationCache) *Mutation {
			return c.Delete(context.Background(), "n1")
		}},
		{"set summary", "UpdateSummary", func(c *MutationCache) *Mutation {
			return c.SetSummary(context.Background(), "n3", "new summary")
		}},
		{"create", "Create", func(c *MutationCache) *Mutation {
			return c.Create(context.Background(), "new", "")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			n1 := fixture("n1", alice.ID, "first", 0)
			n2 := fixture("n2", alice.ID, "second", time.Minute).WithSummary("kept")
			n3 := fixture("n3", alice.ID, "third", 2*time.Minute)
			store := newGatedStore(n1, n2, n3)
			c := newLoadedCache(t, store, nil)
			before := c.Notes()
			store.failNext(tt.op, storeDown())

			// Act
			_, err := settle(t, tt.mutate(c))

			// Assert
			assert.True(t, apperrors.IsStore(err))
			assert.Equal(t, before, c.Notes())
			idle(t, c)
			assert.Equal(t, before, c.Notes())
		})
	}
}

func TestMutationCache_Refresh_Idempotent(t *testing.T) {
	store := newGatedStore(
		fixture("n1", alice.ID, "first", 0),
		fixture("n2", alice.ID, "second", time.Minute),
		fixture("x", "user-2", "other", 0),
	)
	c := newLoadedCache(t, store, nil)

	require.NoError(t, c.Refresh(context.Background()))
	first := c.Notes()
	require.NoError(t, c.Refresh(context.Background()))
	second := c.Notes()

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"n2", "n1"}, ids(second))
}

func TestMutationCache_SummaryNeverRevertsToNil(t *testing.T) {
	// Arrange
	store := newGatedStore(fixture("n1", alice.ID, "first", 0))
	calls := 0
	summarizer := summarizerFunc(func(ctx context.Context, content string) (string, error) {
		calls++
		if calls == 1 {
			return "generated", nil
		}
		return "", errors.New("provider down")
	})
	c := newLoadedCache(t, store, summarizer)
	initial, _ := c.Get("n1")

	// Act
	_, firstErr := settle(t, c.Summarize(context.Background(), "n1"))
	idle(t, c)
	afterFirst, _ := c.Get("n1")

	_, secondErr := settle(t, c.Summarize(context.Background(), "n1"))
	idle(t, c)
	afterFailure, _ := c.Get("n1")

	edit := afterFailure
	edit.Summary = nil
	edit.Title = "renamed"
	_, editErr := settle(t, c.Update(context.Background(), edit))
	idle(t, c)
	afterEdit, _ := c.Get("n1")

	// Assert
	assert.Nil(t, initial.Summary)
	require.NoError(t, firstErr)
	assert.Equal(t, "generated", afterFirst.SummaryText())
	assert.True(t, apperrors.IsSummarization(secondErr))
	assert.Equal(t, "generated", afterFailure.SummaryText())
	require.NoError(t, editErr)
	assert.Equal(t, "generated", afterEdit.SummaryText())
	assert.Equal(t, "renamed", afterEdit.Title)
}

func TestMutationCache_Summarize_GenerationFailureTouchesNothing(t *testing.T) {
	store := newGatedStore(fixture("n1", alice.ID, "first", 0))
	summarizer := summarizerFunc(func(ctx context.Context, content string) (string, error) {
		return "", apperrors.Summarization(apperrors.CodeSummaryFailed, "boom").Build()
	})
	c := newLoadedCache(t, store, summarizer)
	before := c.Notes()

	_, err := settle(t, c.Summarize(context.Background(), "n1"))
	idle(t, c)

	assert.True(t, apperrors.IsSummarization(err))
	assert.Equal(t, before, c.Notes())
	assert.Equal(t, 0, store.callCount("UpdateSummary"))
}

func TestMutationCache_Summarize_UsesNoteContent(t *testing.T) {
	store := newGatedStore(fixture("n1", alice.ID, "first", 0))
	var got string
	summarizer := summarizerFunc(func(ctx context.Context, content string) (string, error) {
		got = content
		return "short", nil
	})
	c := newLoadedCache(t, store, summarizer)

	stored, err := settle(t, c.Summarize(context.Background(), "n1"))

	require.NoError(t, err)
	assert.Equal(t, "content of first", got)
	assert.Equal(t, "short", stored.SummaryText())
}

func TestMutationCache_Summarize_UnknownNote(t *testing.T) {
	c := newLoadedCache(t, newGatedStore(), summarizerFunc(func(context.Context, string) (string, error) {
		t.Fatal("summarizer must not be called")
		return "", nil
	}))

	_, err := settle(t, c.Summarize(context.Background(), "missing"))

	assert.True(t, apperrors.IsNotFound(err))
}

func TestMutationCache_SetSummary_BlankIsValidationError(t *testing.T) {
	store := newGatedStore(fixture("n1", alice.ID, "first", 0))
	c := newLoadedCache(t, store, nil)

	_, err := settle(t, c.SetSummary(context.Background(), "n1", "  "))

	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 0, store.callCount("UpdateSummary"))
}

func TestMutationCache_StaleRefreshIsDiscarded(t *testing.T) {
	// Arrange
	store := newGatedStore()
	c := newLoadedCache(t, store, nil)
	release := store.hold("List")

	type outcome struct {
		applied bool
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		applied, err := c.refresh(context.Background())
		done <- outcome{applied, err}
	}()
	waitEntered(t, store, "List")

	// Act
	_, err := settle(t, c.Create(context.Background(), "T", "C"))
	require.NoError(t, err)
	release()
	stale := <-done
	idle(t, c)

	// Assert
	require.NoError(t, stale.err)
	assert.False(t, stale.applied, "a refresh started before the mutation must not land")
	require.Len(t, c.Notes(), 1)
	assert.Equal(t, "T", c.Notes()[0].Title)
}

func TestMutationCache_RefreshDiscardedWhileMutationInFlight(t *testing.T) {
	store := newGatedStore()
	c := newLoadedCache(t, store, nil)
	release := store.hold("Create")
	m := c.Create(context.Background(), "T", "C")
	waitEntered(t, store, "Create")

	applied, err := c.refresh(context.Background())
	release()
	_, createErr := settle(t, m)

	require.NoError(t, err)
	require.NoError(t, createErr)
	assert.False(t, applied)
}

func TestMutationCache_ValidationFailureIsImmediate(t *testing.T) {
	store := newGatedStore()
	c := newLoadedCache(t, store, nil)

	m := c.Create(context.Background(), "   ", "content")

	select {
	case <-m.Done():
	default:
		t.Fatal("validation failures settle synchronously")
	}
	assert.True(t, apperrors.IsValidation(m.Err()))
	assert.Empty(t, c.Notes())
	assert.Equal(t, 0, store.callCount("Create"))
}

func TestMutationCache_TimeoutRollsBack(t *testing.T) {
	// Arrange
	store := newGatedStore()
	c := New(store, nil, alice, Options{CallTimeout: 20 * time.Millisecond})
	defer func() { _ = c.Close(context.Background()) }()
	release := store.hold("Create")
	defer release()

	// Act
	_, err := settle(t, c.Create(context.Background(), "T", "C"))

	// Assert
	var unifiedErr *apperrors.UnifiedError
	require.ErrorAs(t, err, &unifiedErr)
	assert.Equal(t, apperrors.ErrorTypeStore, unifiedErr.Type)
	assert.Equal(t, apperrors.CodeTimeout, unifiedErr.Code)
	assert.Empty(t, c.Notes())
}

func TestMutationCache_Close_RejectsMutations(t *testing.T) {
	store := newGatedStore(fixture("n1", alice.ID, "first", 0))
	c := New(store, nil, alice, Options{})
	require.NoError(t, c.Refresh(context.Background()))

	require.NoError(t, c.Close(context.Background()))
	_, createErr := settle(t, c.Create(context.Background(), "T", ""))
	_, deleteErr := settle(t, c.Delete(context.Background(), "n1"))

	assert.True(t, apperrors.IsPermission(createErr))
	assert.True(t, apperrors.IsPermission(deleteErr))
	assert.Len(t, c.Notes(), 1)
	assert.True(t, apperrors.IsPermission(c.Refresh(context.Background())))
}

func TestMutationCache_Close_WaitsForInFlight(t *testing.T) {
	store := newGatedStore()
	c := New(store, nil, alice, Options{CallTimeout: time.Second})
	release := store.hold("Create")
	m := c.Create(context.Background(), "T", "C")
	waitEntered(t, store, "Create")

	closed := make(chan error, 1)
	go func() { closed <- c.Close(context.Background()) }()

	select {
	case <-closed:
		t.Fatal("Close returned while a mutation was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	release()

	require.NoError(t, <-closed)
	_, err := settle(t, m)
	assert.NoError(t, err)
}

func TestMutationCache_NotesAreCopies(t *testing.T) {
	store := newGatedStore(fixture("n1", alice.ID, "first", 0).WithSummary("s"))
	c := newLoadedCache(t, store, nil)

	notes := c.Notes()
	notes[0].Title = "mutated"
	*notes[0].Summary = "mutated"

	fresh, _ := c.Get("n1")
	assert.Equal(t, "first", fresh.Title)
	assert.Equal(t, "s", fresh.SummaryText())
}

func TestMutationCache_Search(t *testing.T) {
	store := newGatedStore(
		fixture("n1", alice.ID, "Groceries", 0),
		fixture("n2", alice.ID, "Meeting notes", time.Minute),
	)
	c := newLoadedCache(t, store, nil)

	assert.Equal(t, []string{"n2"}, ids(c.Search("meeting")))
	assert.Len(t, c.Search(""), 2)
	assert.Empty(t, c.Search("zzzz"))
}

func TestMutationCache_ConcurrentMutationsSettle(t *testing.T) {
	store := newGatedStore()
	c := newLoadedCache(t, store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := settle(t, c.Create(context.Background(), "note", ""))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	idle(t, c)

	assert.Len(t, c.Notes(), 20)
}

func TestMutationCache_Delete_ForeignNoteIsNotFound(t *testing.T) {
	store := newGatedStore(fixture("theirs", "user-2", "not yours", 0))
	c := newLoadedCache(t, store, nil)

	_, err := settle(t, c.Delete(context.Background(), "theirs"))
	idle(t, c)

	assert.True(t, apperrors.IsNotFound(err))
	stored, listErr := store.NoteStore.List(context.Background(), "user-2")
	require.NoError(t, listErr)
	assert.Len(t, stored, 1)
}
