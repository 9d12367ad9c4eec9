package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
	"github.com/DaX-523/notes-ai-1811/internal/repository/storetest"
)

func TestNoteStore_Contract(t *testing.T) {
	storetest.RunNoteStoreContract(t, func(t *testing.T) repository.NoteStore {
		return NewNoteStore()
	})
}

func TestNoteStore_ReturnsCopies(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := NewNoteStore()
	store.Seed(storetest.Fixture("n1", "alice", "t", 0).WithSummary("original"))

	// Act
	notes, err := store.List(ctx, "alice")
	require.NoError(t, err)
	*notes[0].Summary = "mutated by caller"

	// Assert
	again, err := store.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].SummaryText())
}

func TestNoteStore_CanceledContextIsStoreError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewNoteStore().List(ctx, "alice")

	assert.True(t, apperrors.IsStore(err))
}

func TestProfileStore_CreateIsInsertIfAbsent(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := NewProfileStore()
	first := note.Profile{ID: "u1", Name: "Ada"}

	// Act
	_, err := store.CreateProfile(ctx, first)
	require.NoError(t, err)
	got, err := store.CreateProfile(ctx, note.Profile{ID: "u1", Name: "Someone Else"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	_, err = store.GetProfile(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}
