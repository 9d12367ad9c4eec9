// Package memory provides map-backed stores for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

// NoteStore keeps notes in a map guarded by an RWMutex.
type NoteStore struct {
	mu    sync.RWMutex
	notes map[string]note.Note
	now   func() time.Time
}

// NewNoteStore creates an empty store.
func NewNoteStore() *NoteStore {
	return &NoteStore{
		notes: make(map[string]note.Note),
		now:   time.Now,
	}
}

// Seed inserts notes as-is, bypassing validation. Used by tests and demos.
func (s *NoteStore) Seed(notes ...note.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range notes {
		s.notes[n.ID] = n.Clone()
	}
}

// List returns the caller's notes, newest first.
func (s *NoteStore) List(ctx context.Context, userID string) ([]note.Note, error) {
	if err := note.RequireOwner(userID, "List"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.FromContext(err, "List")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]note.Note, 0)
	for _, n := range s.notes {
		if n.UserID == userID {
			out = append(out, n.Clone())
		}
	}
	note.SortNewestFirst(out)
	return out, nil
}

// Create inserts n. Duplicate ids are rejected regardless of owner.
func (s *NoteStore) Create(ctx context.Context, n note.Note) (note.Note, error) {
	if err := note.Validate(n); err != nil {
		return note.Note{}, err
	}
	if err := ctx.Err(); err != nil {
		return note.Note{}, apperrors.FromContext(err, "Create")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.notes[n.ID]; exists {
		return note.Note{}, apperrors.Store(apperrors.CodeDuplicateID, "a note with this id already exists").
			WithOperation("Create").
			WithResource("note").
			WithRetryable(false).
			Build()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	stored := n.Clone()
	s.notes[n.ID] = stored
	return stored.Clone(), nil
}

// Update edits title and content of the caller's note.
func (s *NoteStore) Update(ctx context.Context, n note.Note) (note.Note, error) {
	if err := note.RequireOwner(n.UserID, "Update"); err != nil {
		return note.Note{}, err
	}
	if err := note.Validate(n); err != nil {
		return note.Note{}, err
	}
	if err := ctx.Err(); err != nil {
		return note.Note{}, apperrors.FromContext(err, "Update")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.owned(n.ID, n.UserID)
	if !ok {
		return note.Note{}, notFound("Update", n.ID, n.UserID)
	}
	updated := current.Merge(n)
	s.notes[n.ID] = updated
	return updated.Clone(), nil
}

// Delete removes the caller's note after confirming it exists.
func (s *NoteStore) Delete(ctx context.Context, noteID, userID string) (string, error) {
	if err := note.RequireOwner(userID, "Delete"); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", apperrors.FromContext(err, "Delete")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.owned(noteID, userID); !ok {
		return "", notFound("Delete", noteID, userID)
	}
	delete(s.notes, noteID)
	return noteID, nil
}

// UpdateSummary writes only the summary of the caller's note.
func (s *NoteStore) UpdateSummary(ctx context.Context, n note.Note) (note.Note, error) {
	if err := note.RequireOwner(n.UserID, "UpdateSummary"); err != nil {
		return note.Note{}, err
	}
	if err := note.ValidateSummary(n.Summary); err != nil {
		return note.Note{}, err
	}
	if err := ctx.Err(); err != nil {
		return note.Note{}, apperrors.FromContext(err, "UpdateSummary")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.owned(n.ID, n.UserID)
	if !ok {
		return note.Note{}, notFound("UpdateSummary", n.ID, n.UserID)
	}
	updated := current.WithSummary(*n.Summary)
	s.notes[n.ID] = updated
	return updated.Clone(), nil
}

func (s *NoteStore) owned(noteID, userID string) (note.Note, bool) {
	n, ok := s.notes[noteID]
	if !ok || n.UserID != userID {
		return note.Note{}, false
	}
	return n, true
}

func notFound(operation, noteID, userID string) error {
	return apperrors.NotFound(apperrors.CodeNoteNotFound, "Note not found or you don't have permission to access it").
		WithOperation(operation).
		WithResource("note").
		WithDetails(noteID).
		WithUserID(userID).
		Build()
}

var _ repository.NoteStore = (*NoteStore)(nil)
