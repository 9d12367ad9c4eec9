package supabase

import (
	"context"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

func (s *Store) GetProfile(ctx context.Context, userID string) (note.Profile, error) {
	var rows []note.Profile
	err := run(ctx, "GetProfile", func() error {
		_, err := s.client.From(profilesTable).
			Select("id,name,email,created_at", "", false).
			Eq("id", userID).
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return note.Profile{}, err
	}
	if len(rows) == 0 {
		return note.Profile{}, apperrors.NotFound(apperrors.CodeProfileNotFound, "profile not found").
			WithResource("profile").
			WithUserID(userID).
			Build()
	}
	return rows[0], nil
}

// CreateProfile looks the profile up first and only inserts when it is
// missing; a concurrent insert losing the race reads the winner back.
func (s *Store) CreateProfile(ctx context.Context, p note.Profile) (note.Profile, error) {
	if err := note.Validate(p); err != nil {
		return note.Profile{}, err
	}

	existing, err := s.GetProfile(ctx, p.ID)
	if err == nil {
		return existing, nil
	}
	if !apperrors.IsNotFound(err) {
		return note.Profile{}, err
	}

	row := map[string]any{"id": p.ID, "name": p.Name, "email": p.Email}
	err = run(ctx, "CreateProfile", func() error {
		var inserted []note.Profile
		_, err := s.client.From(profilesTable).
			Insert(row, false, "", "representation", "").
			ExecuteTo(&inserted)
		return err
	})
	if err != nil {
		var unifiedErr *apperrors.UnifiedError
		if apperrors.As(err, &unifiedErr) && unifiedErr.Code == apperrors.CodeDuplicateID {
			return s.GetProfile(ctx, p.ID)
		}
		return note.Profile{}, err
	}
	return s.GetProfile(ctx, p.ID)
}

var _ repository.ProfileStore = (*Store)(nil)
