// Package sqlite stores notes and profiles in a local SQLite database using
// the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

const schema = `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	summary    TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS notes_user_created ON notes (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
`

// Store implements repository.NoteStore and repository.ProfileStore.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serialises writers; a single connection also keeps ":memory:"
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns the caller's notes, newest first.
func (s *Store) List(ctx context.Context, userID string) ([]note.Note, error) {
	if err := note.RequireOwner(userID, "List"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, content, summary, created_at
		FROM notes
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, storeErr("List", err)
	}
	defer rows.Close()

	notes := make([]note.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, storeErr("List", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("List", err)
	}
	return notes, nil
}

// Create inserts n; the primary key rejects duplicate ids.
func (s *Store) Create(ctx context.Context, n note.Note) (note.Note, error) {
	if err := note.Validate(n); err != nil {
		return note.Note{}, err
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, user_id, title, content, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID, n.Title, n.Content, nullable(n.Summary), n.CreatedAt.UnixNano())
	if err != nil {
		if isConstraint(err) {
			return note.Note{}, apperrors.Store(apperrors.CodeDuplicateID, "a note with this id already exists").
				WithOperation("Create").
				WithResource("note").
				WithRetryable(false).
				WithCause(err).
				Build()
		}
		return note.Note{}, storeErr("Create", err)
	}
	return s.get(ctx, "Create", n.ID, n.UserID)
}

// Update edits title and content; COALESCE keeps an existing summary when the
// payload has none.
func (s *Store) Update(ctx context.Context, n note.Note) (note.Note, error) {
	if err := note.RequireOwner(n.UserID, "Update"); err != nil {
		return note.Note{}, err
	}
	if err := note.Validate(n); err != nil {
		return note.Note{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET title = ?, content = ?, summary = COALESCE(?, summary)
		WHERE id = ? AND user_id = ?
	`, n.Title, n.Content, nullable(n.Summary), n.ID, n.UserID)
	if err != nil {
		return note.Note{}, storeErr("Update", err)
	}
	if err := requireAffected(res, "Update", n.ID, n.UserID); err != nil {
		return note.Note{}, err
	}
	return s.get(ctx, "Update", n.ID, n.UserID)
}

// Delete confirms the note exists for the caller, then removes it.
func (s *Store) Delete(ctx context.Context, noteID, userID string) (string, error) {
	if err := note.RequireOwner(userID, "Delete"); err != nil {
		return "", err
	}

	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM notes WHERE id = ? AND user_id = ?`, noteID, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound("Delete", noteID, userID)
	}
	if err != nil {
		return "", storeErr("Delete", err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, noteID, userID)
	if err != nil {
		return "", storeErr("Delete", err)
	}
	if err := requireAffected(res, "Delete", noteID, userID); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateSummary writes only the summary column.
func (s *Store) UpdateSummary(ctx context.Context, n note.Note) (note.Note, error) {
	if err := note.RequireOwner(n.UserID, "UpdateSummary"); err != nil {
		return note.Note{}, err
	}
	if err := note.ValidateSummary(n.Summary); err != nil {
		return note.Note{}, err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE notes SET summary = ? WHERE id = ? AND user_id = ?`,
		*n.Summary, n.ID, n.UserID)
	if err != nil {
		return note.Note{}, storeErr("UpdateSummary", err)
	}
	if err := requireAffected(res, "UpdateSummary", n.ID, n.UserID); err != nil {
		return note.Note{}, err
	}
	return s.get(ctx, "UpdateSummary", n.ID, n.UserID)
}

func (s *Store) get(ctx context.Context, operation, noteID, userID string) (note.Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, content, summary, created_at
		FROM notes
		WHERE id = ? AND user_id = ?
	`, noteID, userID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return note.Note{}, notFound(operation, noteID, userID)
	}
	if err != nil {
		return note.Note{}, storeErr(operation, err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (note.Note, error) {
	var (
		n         note.Note
		summary   sql.NullString
		createdAt int64
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &summary, &createdAt); err != nil {
		return note.Note{}, err
	}
	if summary.Valid {
		n.Summary = note.Text(summary.String)
	}
	n.CreatedAt = time.Unix(0, createdAt).UTC()
	return n, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func requireAffected(res sql.Result, operation, noteID, userID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(operation, err)
	}
	if n == 0 {
		return notFound(operation, noteID, userID)
	}
	return nil
}

func isConstraint(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed")
}

func storeErr(operation string, err error) error {
	if ctxErr := apperrors.FromContext(err, operation); ctxErr != nil {
		return ctxErr
	}
	return apperrors.Store(apperrors.CodeStoreUnavailable, "sqlite operation failed").
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
