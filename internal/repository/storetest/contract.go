// Package storetest holds the behaviour every repository.NoteStore must show.
// Backend packages run it from their own tests against a fresh store.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) repository.NoteStore

// Fixture builds a note for userID created at base+offset.
func Fixture(id, userID, title string, offset time.Duration) note.Note {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return note.Note{
		ID:        id,
		Title:     title,
		Content:   "content of " + title,
		CreatedAt: base.Add(offset),
		UserID:    userID,
	}
}

// RunNoteStoreContract exercises ownership scoping, ordering, two-phase
// delete and summary monotonicity.
func RunNoteStoreContract(t *testing.T, newStore Factory) {
	t.Run("List returns only the caller's notes newest first", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		mustCreate(t, store, Fixture("n1", "alice", "oldest", 0))
		mustCreate(t, store, Fixture("n2", "alice", "newest", 2*time.Minute))
		mustCreate(t, store, Fixture("n3", "bob", "bob's", time.Minute))

		notes, err := store.List(ctx, "alice")

		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, "n2", notes[0].ID)
		assert.Equal(t, "n1", notes[1].ID)
		for _, n := range notes {
			assert.Equal(t, "alice", n.UserID)
		}
	})

	t.Run("List of a user without notes is empty", func(t *testing.T) {
		notes, err := newStore(t).List(context.Background(), "nobody")

		require.NoError(t, err)
		assert.Empty(t, notes)
	})

	t.Run("List without user id is a validation error", func(t *testing.T) {
		_, err := newStore(t).List(context.Background(), "")

		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Create returns the stored record", func(t *testing.T) {
		store := newStore(t)
		in := Fixture("n1", "alice", "groceries", 0)

		out, err := store.Create(context.Background(), in)

		require.NoError(t, err)
		assert.Equal(t, in.ID, out.ID)
		assert.Equal(t, in.Title, out.Title)
		assert.Equal(t, in.Content, out.Content)
		assert.Equal(t, "alice", out.UserID)
		assert.Nil(t, out.Summary)
		assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	})

	t.Run("Create with an existing id is a store error", func(t *testing.T) {
		store := newStore(t)
		mustCreate(t, store, Fixture("n1", "alice", "first", 0))

		_, err := store.Create(context.Background(), Fixture("n1", "bob", "second", 0))

		assert.True(t, apperrors.IsStore(err), "got %v", err)
		notes, listErr := store.List(context.Background(), "bob")
		require.NoError(t, listErr)
		assert.Empty(t, notes)
	})

	t.Run("Update changes title and content", func(t *testing.T) {
		store := newStore(t)
		created := mustCreate(t, store, Fixture("n1", "alice", "draft", 0))
		created.Title = "final"
		created.Content = "new content"

		out, err := store.Update(context.Background(), created)

		require.NoError(t, err)
		assert.Equal(t, "final", out.Title)
		assert.Equal(t, "new content", out.Content)
		assert.True(t, created.CreatedAt.Equal(out.CreatedAt))
	})

	t.Run("Update of another user's note is not found and changes nothing", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		mustCreate(t, store, Fixture("n1", "alice", "private", 0))
		attempt := Fixture("n1", "bob", "hijacked", 0)

		_, err := store.Update(ctx, attempt)

		assert.True(t, apperrors.IsNotFound(err), "got %v", err)
		notes, listErr := store.List(ctx, "alice")
		require.NoError(t, listErr)
		require.Len(t, notes, 1)
		assert.Equal(t, "private", notes[0].Title)
	})

	t.Run("Update of a missing note is not found", func(t *testing.T) {
		_, err := newStore(t).Update(context.Background(), Fixture("ghost", "alice", "t", 0))

		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Update without summary keeps the stored summary", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		created := mustCreate(t, store, Fixture("n1", "alice", "t", 0))
		_, err := store.UpdateSummary(ctx, created.WithSummary("short"))
		require.NoError(t, err)

		created.Summary = nil
		created.Title = "renamed"
		out, err := store.Update(ctx, created)

		require.NoError(t, err)
		assert.Equal(t, "short", out.SummaryText())
	})

	t.Run("Update with a blank summary is a validation error and keeps the stored summary", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		created := mustCreate(t, store, Fixture("n1", "alice", "t", 0))
		_, err := store.UpdateSummary(ctx, created.WithSummary("kept"))
		require.NoError(t, err)

		blank := created
		blank.Title = "renamed"
		blank.Summary = note.Text("  ")
		_, err = store.Update(ctx, blank)

		assert.True(t, apperrors.IsValidation(err))
		notes, _ := store.List(ctx, "alice")
		require.Len(t, notes, 1)
		assert.Equal(t, "kept", notes[0].SummaryText())
		assert.Equal(t, "t", notes[0].Title)
	})

	t.Run("Create with a blank summary is a validation error", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		n := Fixture("n1", "alice", "t", 0)
		n.Summary = note.Text("")

		_, err := store.Create(ctx, n)

		assert.True(t, apperrors.IsValidation(err))
		notes, _ := store.List(ctx, "alice")
		assert.Empty(t, notes)
	})

	t.Run("UpdateSummary sets and overwrites the summary", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		created := mustCreate(t, store, Fixture("n1", "alice", "t", 0))

		first, err := store.UpdateSummary(ctx, created.WithSummary("first"))
		require.NoError(t, err)
		second, err := store.UpdateSummary(ctx, created.WithSummary("second"))
		require.NoError(t, err)

		assert.Equal(t, "first", first.SummaryText())
		assert.Equal(t, "second", second.SummaryText())
		assert.Equal(t, "t", second.Title)
	})

	t.Run("UpdateSummary rejects a blank summary", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		created := mustCreate(t, store, Fixture("n1", "alice", "t", 0))
		_, err := store.UpdateSummary(ctx, created.WithSummary("kept"))
		require.NoError(t, err)

		_, err = store.UpdateSummary(ctx, created.WithSummary("   "))

		assert.True(t, apperrors.IsValidation(err))
		notes, _ := store.List(ctx, "alice")
		require.Len(t, notes, 1)
		assert.Equal(t, "kept", notes[0].SummaryText())
	})

	t.Run("UpdateSummary of another user's note is not found", func(t *testing.T) {
		store := newStore(t)
		mustCreate(t, store, Fixture("n1", "alice", "t", 0))

		_, err := store.UpdateSummary(context.Background(), Fixture("n1", "bob", "t", 0).WithSummary("x"))

		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Delete removes the note and returns its id", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		mustCreate(t, store, Fixture("n1", "alice", "t", 0))

		id, err := store.Delete(ctx, "n1", "alice")

		require.NoError(t, err)
		assert.Equal(t, "n1", id)
		notes, _ := store.List(ctx, "alice")
		assert.Empty(t, notes)
	})

	t.Run("Delete of another user's note is not found and keeps it", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		mustCreate(t, store, Fixture("n1", "alice", "t", 0))

		_, err := store.Delete(ctx, "n1", "bob")

		assert.True(t, apperrors.IsNotFound(err))
		notes, _ := store.List(ctx, "alice")
		assert.Len(t, notes, 1)
	})

	t.Run("Delete twice is not found the second time", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		mustCreate(t, store, Fixture("n1", "alice", "t", 0))
		_, err := store.Delete(ctx, "n1", "alice")
		require.NoError(t, err)

		_, err = store.Delete(ctx, "n1", "alice")

		assert.True(t, apperrors.IsNotFound(err))
	})
}

func mustCreate(t *testing.T, store repository.NoteStore, n note.Note) note.Note {
	t.Helper()
	out, err := store.Create(context.Background(), n)
	require.NoError(t, err)
	return out
}
