package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
	"github.com/DaX-523/notes-ai-1811/internal/repository/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_Contract(t *testing.T) {
	storetest.RunNoteStoreContract(t, func(t *testing.T) repository.NoteStore {
		return newTestStore(t)
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	// Arrange
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "notes.db")
	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.Create(ctx, storetest.Fixture("n1", "alice", "kept", 0).WithSummary("s"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Act
	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	notes, err := reopened.List(ctx, "alice")

	// Assert
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "kept", notes[0].Title)
	assert.Equal(t, "s", notes[0].SummaryText())
}

func TestStore_ProfileInsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.CreateProfile(ctx, note.Profile{ID: "u1", Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	second, err := store.CreateProfile(ctx, note.Profile{ID: "u1", Name: "Other"})
	require.NoError(t, err)

	assert.Equal(t, "Ada", first.Name)
	assert.Equal(t, "Ada", second.Name)
	assert.Equal(t, "ada@example.com", second.Email)
}
