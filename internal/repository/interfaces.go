// Package repository defines the persistence ports for notes and profiles.
//
// Every NoteStore implementation scopes reads and writes by the compound
// (note id, user id) filter. A note owned by someone else is reported as
// not found, exactly like a note that never existed.
package repository

import (
	"context"
	"time"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
)

// NoteStore is the remote persistence boundary for notes.
type NoteStore interface {
	// List returns every note owned by userID, newest first.
	List(ctx context.Context, userID string) ([]note.Note, error)

	// Create inserts n and returns the canonical stored record. An id that
	// already exists, under any owner, is a store error.
	Create(ctx context.Context, n note.Note) (note.Note, error)

	// Update replaces title and content of the note matching (n.ID, n.UserID).
	// A nil summary leaves the stored one untouched.
	Update(ctx context.Context, n note.Note) (note.Note, error)

	// Delete confirms (noteID, userID) exists, then removes it. It returns
	// the deleted id.
	Delete(ctx context.Context, noteID, userID string) (string, error)

	// UpdateSummary writes only the summary of the note matching
	// (n.ID, n.UserID).
	UpdateSummary(ctx context.Context, n note.Note) (note.Note, error)
}

// ProfileStore persists user profiles keyed by user id.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (note.Profile, error)
	// CreateProfile inserts p unless a profile with that id exists, and
	// returns the stored profile either way.
	CreateProfile(ctx context.Context, p note.Profile) (note.Profile, error)
}

// EventType names a note lifecycle event.
type EventType string

const (
	EventNoteCreated    EventType = "note.created"
	EventNoteUpdated    EventType = "note.updated"
	EventNoteDeleted    EventType = "note.deleted"
	EventNoteSummarized EventType = "note.summarized"
)

// NoteEvent is published after a note mutation commits.
type NoteEvent struct {
	Type       EventType `json:"type"`
	NoteID     string    `json:"note_id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher ships note events to a message bus.
type EventPublisher interface {
	Publish(ctx context.Context, events ...NoteEvent) error
}
