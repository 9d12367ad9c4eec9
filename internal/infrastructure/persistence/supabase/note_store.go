// Package supabase stores notes and profiles in Supabase Postgres through
// PostgREST. The service-role key bypasses row level security, so every
// query carries explicit id and user_id filters.
package supabase

import (
	"context"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

const (
	notesTable    = "notes"
	profilesTable = "profiles"
	noteColumns   = "id,title,content,summary,created_at,user_id"
)

// Store implements repository.NoteStore and repository.ProfileStore.
type Store struct {
	client *supa.Client
	logger *zap.Logger
}

// NewStore connects to the project at url with the service-role key.
func NewStore(url, serviceKey string, logger *zap.Logger) (*Store, error) {
	client, err := supa.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, apperrors.Store(apperrors.CodeStoreUnavailable, "failed to create supabase client").
			WithCause(err).
			Build()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, logger: logger}, nil
}

type insertRow struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Summary   *string    `json:"summary"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UserID    string     `json:"user_id"`
}

// List selects the caller's notes ordered by created_at descending.
func (s *Store) List(ctx context.Context, userID string) ([]note.Note, error) {
	if err := note.RequireOwner(userID, "List"); err != nil {
		return nil, err
	}

	var rows []note.Note
	err := run(ctx, "List", func() error {
		_, err := s.client.From(notesTable).
			Select(noteColumns, "", false).
			Eq("user_id", userID).
			Order("created_at", &postgrest.OrderOpts{Ascending: false}).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = make([]note.Note, 0)
	}
	note.SortNewestFirst(rows)
	return rows, nil
}

// Create inserts n and returns the row PostgREST hands back.
func (s *Store) Create(ctx context.Context, n note.Note) (note.Note, error) {
	if err := note.Validate(n); err != nil {
		return note.Note{}, err
	}

	row := insertRow{ID: n.ID, Title: n.Title, Content: n.Content, Summary: n.Summary, UserID: n.UserID}
	if !n.CreatedAt.IsZero() {
		createdAt := n.CreatedAt.UTC()
		row.CreatedAt = &createdAt
	}

	var rows []note.Note
	err := run(ctx, "Create", func() error {
		_, err := s.client.From(notesTable).
			Insert(row, false, "", "representation", "").
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return note.Note{}, err
	}
	if len(rows) == 0 {
		return n.Clone(), nil
	}
	return rows[0], nil
}

// Update sets title and content (and summary when present) on the row
// matching both id and user_id.
func (s *Store) Update(ctx context.Context, n note.Note) (note.Note, error) {
	if err := note.RequireOwner(n.UserID, "Update"); err != nil {
		return note.Note{}, err
	}
	if err := note.Validate(n); err != nil {
		return note.Note{}, err
	}

	payload := map[string]any{"title": n.Title, "content": n.Content}
	if n.Summary != nil {
		payload["summary"] = *n.Summary
	}
	return s.updateScoped(ctx, "Update", n.ID, n.UserID, payload)
}

// UpdateSummary sets only the summary column.
func (s *Store) UpdateSummary(ctx context.Context, n note.Note) (note.Note, error) {
	if err := note.RequireOwner(n.UserID, "UpdateSummary"); err != nil {
		return note.Note{}, err
	}
	if err := note.ValidateSummary(n.Summary); err != nil {
		return note.Note{}, err
	}
	return s.updateScoped(ctx, "UpdateSummary", n.ID, n.UserID, map[string]any{"summary": *n.Summary})
}

func (s *Store) updateScoped(ctx context.Context, operation, noteID, userID string, payload map[string]any) (note.Note, error) {
	var rows []note.Note
	err := run(ctx, operation, func() error {
		_, err := s.client.From(notesTable).
			Update(payload, "representation", "").
			Eq("id", noteID).
			Eq("user_id", userID).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return note.Note{}, err
	}
	if len(rows) == 0 {
		return note.Note{}, notFound(operation, noteID, userID)
	}
	return rows[0], nil
}

// Delete checks the caller owns the row before deleting it.
func (s *Store) Delete(ctx context.Context, noteID, userID string) (string, error) {
	if err := note.RequireOwner(userID, "Delete"); err != nil {
		return "", err
	}

	var found []struct {
		ID string `json:"id"`
	}
	err := run(ctx, "Delete", func() error {
		_, err := s.client.From(notesTable).
			Select("id", "", false).
			Eq("id", noteID).
			Eq("user_id", userID).
			ExecuteTo(&found)
		return err
	})
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", notFound("Delete", noteID, userID)
	}

	var deleted []note.Note
	err = run(ctx, "Delete", func() error {
		_, err := s.client.From(notesTable).
			Delete("representation", "").
			Eq("id", noteID).
			Eq("user_id", userID).
			ExecuteTo(&deleted)
		return err
	})
	if err != nil {
		return "", err
	}
	if len(deleted) == 0 {
		return "", notFound("Delete", noteID, userID)
	}

	s.logger.Debug("Note deleted", zap.String("noteID", noteID), zap.String("userID", userID))
	return noteID, nil
}

// run executes a PostgREST call, which takes no context, so that the caller's
// deadline still bounds it. An abandoned call finishes in the background.
func run(ctx context.Context, operation string, call func() error) error {
	done := make(chan error, 1)
	go func() { done <- call() }()

	select {
	case err := <-done:
		if err != nil {
			return classify(operation, err)
		}
		return nil
	case <-ctx.Done():
		return apperrors.FromContext(ctx.Err(), operation)
	}
}

func classify(operation string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key") {
		return apperrors.Store(apperrors.CodeDuplicateID, "a note with this id already exists").
			WithOperation(operation).
			WithResource("note").
			WithRetryable(false).
			WithCause(err).
			Build()
	}
	return apperrors.Store(apperrors.CodeStoreUnavailable, "supabase request failed").
		WithOperation(operation).
		WithResource("note").
		WithCause(err).
		Build()
}

func notFound(operation, noteID, userID string) error {
	return apperrors.NotFound(apperrors.CodeNoteNotFound, "Note not found or you don't have permission to access it").
		WithOperation(operation).
		WithResource("note").
		WithDetails(noteID).
		WithUserID(userID).
		Build()
}

var _ repository.NoteStore = (*Store)(nil)
