package cache

import (
	"context"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
)

// Kind names the mutation a handle tracks.
type Kind string

const (
	KindCreate    Kind = "create"
	KindUpdate    Kind = "update"
	KindDelete    Kind = "delete"
	KindSummarize Kind = "summarize"
)

// Mutation is the handle returned by every cache mutation. The optimistic
// change is already visible when the handle is returned; Wait blocks until
// the store settles it.
type Mutation struct {
	kind   Kind
	noteID string
	done   chan struct{}
	result note.Note
	err    error
}

func newMutation(kind Kind, noteID string) *Mutation {
	return &Mutation{kind: kind, noteID: noteID, done: make(chan struct{})}
}

// failed returns a handle that settled before anything was applied.
func failed(kind Kind, noteID string, err error) *Mutation {
	m := newMutation(kind, noteID)
	m.settle(note.Note{}, err)
	return m
}

func (m *Mutation) settle(result note.Note, err error) {
	m.result = result
	m.err = err
	close(m.done)
}

// Kind reports which operation this is.
func (m *Mutation) Kind() Kind { return m.kind }

// NoteID is the id of the note being changed.
func (m *Mutation) NoteID() string { return m.noteID }

// Done is closed once the mutation has settled.
func (m *Mutation) Done() <-chan struct{} { return m.done }

// Err returns the settled error, or nil while the mutation is in flight.
func (m *Mutation) Err() error {
	select {
	case <-m.done:
		return m.err
	default:
		return nil
	}
}

// Wait blocks until the mutation settles and returns the stored note. For
// deletes the returned note only carries the id.
func (m *Mutation) Wait(ctx context.Context) (note.Note, error) {
	select {
	case <-m.done:
		return m.result.Clone(), m.err
	case <-ctx.Done():
		return note.Note{}, ctx.Err()
	}
}
