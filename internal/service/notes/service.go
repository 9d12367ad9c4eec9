// Package notes provides the server-side note operations. The owner of every
// operation is the authenticated user handed in by the transport layer; any
// user id carried in a request payload is ignored.
package notes

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

// Summarizer generates summaries for the service.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
	SummarizeNotes(ctx context.Context, notes []note.Note) string
}

// CreateInput is the client-controlled part of a new note.
type CreateInput struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Summary *string `json:"summary,omitempty"`
}

// UpdateInput is the client-controlled part of an edit.
type UpdateInput struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Summary *string `json:"summary,omitempty"`
}

// Service defines the note operations exposed over the API.
type Service interface {
	List(ctx context.Context, userID string) ([]note.Note, error)
	Create(ctx context.Context, userID string, in CreateInput) (note.Note, error)
	Update(ctx context.Context, userID, noteID string, in UpdateInput) (note.Note, error)
	UpdateSummary(ctx context.Context, userID, noteID, summary string) (note.Note, error)
	Delete(ctx context.Context, userID, noteID string) (string, error)

	// Summarize generates a summary for a stored note and persists it.
	Summarize(ctx context.Context, userID, noteID string) (note.Note, error)
	// SummarizeContent summarizes arbitrary text without storing anything.
	SummarizeContent(ctx context.Context, userID, content string) (string, error)
	// SummarizeAll summarizes the combined content of the user's notes.
	SummarizeAll(ctx context.Context, userID string) (string, error)

	// EnsureProfile returns the user's profile, creating it on first use.
	EnsureProfile(ctx context.Context, user note.User) (note.Profile, error)
}

type service struct {
	store      repository.NoteStore
	profiles   repository.ProfileStore
	summarizer Summarizer
	events     repository.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates the note service. events may be nil.
func NewService(
	store repository.NoteStore,
	profiles repository.ProfileStore,
	summarizer Summarizer,
	events repository.EventPublisher,
	logger *zap.Logger,
) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		store:      store,
		profiles:   profiles,
		summarizer: summarizer,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *service) List(ctx context.Context, userID string) ([]note.Note, error) {
	if err := authorize(userID, "List"); err != nil {
		return nil, err
	}
	return s.store.List(ctx, userID)
}

// Create stamps the owner and the canonical creation time before storing.
func (s *service) Create(ctx context.Context, userID string, in CreateInput) (note.Note, error) {
	if err := authorize(userID, "Create"); err != nil {
		return note.Note{}, err
	}

	n := note.Note{
		ID:        strings.TrimSpace(in.ID),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		Summary:   in.Summary,
		CreatedAt: s.now().UTC(),
		UserID:    userID,
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if err := note.Validate(n); err != nil {
		return note.Note{}, err
	}

	created, err := s.store.Create(ctx, n)
	if err != nil {
		return note.Note{}, err
	}
	s.publish(ctx, repository.EventNoteCreated, created)
	return created, nil
}

func (s *service) Update(ctx context.Context, userID, noteID string, in UpdateInput) (note.Note, error) {
	if err := authorize(userID, "Update"); err != nil {
		return note.Note{}, err
	}

	n := note.Note{
		ID:      noteID,
		Title:   strings.TrimSpace(in.Title),
		Content: in.Content,
		Summary: in.Summary,
		UserID:  userID,
	}
	if err := note.Validate(n); err != nil {
		return note.Note{}, err
	}

	updated, err := s.store.Update(ctx, n)
	if err != nil {
		return note.Note{}, err
	}
	s.publish(ctx, repository.EventNoteUpdated, updated)
	return updated, nil
}

func (s *service) UpdateSummary(ctx context.Context, userID, noteID, summary string) (note.Note, error) {
	if err := authorize(userID, "UpdateSummary"); err != nil {
		return note.Note{}, err
	}

	updated, err := s.store.UpdateSummary(ctx, note.Note{ID: noteID, UserID: userID, Summary: note.Text(summary)})
	if err != nil {
		return note.Note{}, err
	}
	s.publish(ctx, repository.EventNoteSummarized, updated)
	return updated, nil
}

func (s *service) Delete(ctx context.Context, userID, noteID string) (string, error) {
	if err := authorize(userID, "Delete"); err != nil {
		return "", err
	}

	deleted, err := s.store.Delete(ctx, noteID, userID)
	if err != nil {
		return "", err
	}
	s.publish(ctx, repository.EventNoteDeleted, note.Note{ID: deleted, UserID: userID})
	return deleted, nil
}

func (s *service) Summarize(ctx context.Context, userID, noteID string) (note.Note, error) {
	if err := authorize(userID, "Summarize"); err != nil {
		return note.Note{}, err
	}

	notes, err := s.store.List(ctx, userID)
	if err != nil {
		return note.Note{}, err
	}
	var target *note.Note
	for i := range notes {
		if notes[i].ID == noteID {
			target = &notes[i]
			break
		}
	}
	if target == nil {
		return note.Note{}, apperrors.NotFound(apperrors.CodeNoteNotFound, "Note not found or you don't have permission to access it").
			WithOperation("Summarize").
			WithResource("note").
			WithDetails(noteID).
			WithUserID(userID).
			Build()
	}

	text, err := s.summarizer.Summarize(ctx, target.Content)
	if err != nil {
		return note.Note{}, err
	}
	return s.UpdateSummary(ctx, userID, noteID, text)
}

func (s *service) SummarizeContent(ctx context.Context, userID, content string) (string, error) {
	if err := authorize(userID, "SummarizeContent"); err != nil {
		return "", err
	}
	return s.summarizer.Summarize(ctx, content)
}

func (s *service) SummarizeAll(ctx context.Context, userID string) (string, error) {
	notes, err := s.List(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.summarizer.SummarizeNotes(ctx, notes), nil
}

func (s *service) EnsureProfile(ctx context.Context, user note.User) (note.Profile, error) {
	if err := authorize(user.ID, "EnsureProfile"); err != nil {
		return note.Profile{}, err
	}
	return s.profiles.CreateProfile(ctx, note.ProfileFor(user, s.now()))
}

// publish is best effort: the mutation already committed.
func (s *service) publish(ctx context.Context, eventType repository.EventType, n note.Note) {
	if s.events == nil {
		return
	}
	event := repository.NoteEvent{
		Type:       eventType,
		NoteID:     n.ID,
		UserID:     n.UserID,
		Title:      n.Title,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish note event",
			zap.String("type", string(eventType)),
			zap.String("noteID", n.ID),
			zap.Error(err),
		)
	}
}

func authorize(userID, operation string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.Permission(apperrors.CodeNoSession, "You must be signed in to manage notes").
			WithOperation(operation).
			Build()
	}
	return nil
}
