package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

func (s *Store) GetProfile(ctx context.Context, userID string) (note.Profile, error) {
	var (
		p         note.Profile
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, email, created_at FROM profiles WHERE id = ?`, userID).
		Scan(&p.ID, &p.Name, &p.Email, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return note.Profile{}, apperrors.NotFound(apperrors.CodeProfileNotFound, "profile not found").
			WithResource("profile").
			WithUserID(userID).
			Build()
	}
	if err != nil {
		return note.Profile{}, storeErr("GetProfile", err)
	}
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	return p, nil
}

func (s *Store) CreateProfile(ctx context.Context, p note.Profile) (note.Profile, error) {
	if err := note.Validate(p); err != nil {
		return note.Profile{}, err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, email, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, p.ID, p.Name, p.Email, p.CreatedAt.UnixNano())
	if err != nil {
		return note.Profile{}, storeErr("CreateProfile", err)
	}
	return s.GetProfile(ctx, p.ID)
}

var _ repository.ProfileStore = (*Store)(nil)
