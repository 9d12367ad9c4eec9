package memory

import (
	"context"
	"sync"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

// ProfileStore keeps profiles in a map.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]note.Profile
}

// NewProfileStore creates an empty profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]note.Profile)}
}

func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (note.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return note.Profile{}, apperrors.NotFound(apperrors.CodeProfileNotFound, "profile not found").
			WithResource("profile").
			WithUserID(userID).
			Build()
	}
	return p, nil
}

func (s *ProfileStore) CreateProfile(ctx context.Context, p note.Profile) (note.Profile, error) {
	if err := note.Validate(p); err != nil {
		return note.Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.profiles[p.ID]; ok {
		return existing, nil
	}
	s.profiles[p.ID] = p
	return p, nil
}

var _ repository.ProfileStore = (*ProfileStore)(nil)
