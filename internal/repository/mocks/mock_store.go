// Package mocks provides testify mocks of the repository ports.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

// MockNoteStore is a testify mock of repository.NoteStore.
type MockNoteStore struct {
	mock.Mock
}

func (m *MockNoteStore) List(ctx context.Context, userID string) ([]note.Note, error) {
	args := m.Called(ctx, userID)
	notes, _ := args.Get(0).([]note.Note)
	return notes, args.Error(1)
}

func (m *MockNoteStore) Create(ctx context.Context, n note.Note) (note.Note, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(note.Note), args.Error(1)
}

func (m *MockNoteStore) Update(ctx context.Context, n note.Note) (note.Note, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(note.Note), args.Error(1)
}

func (m *MockNoteStore) Delete(ctx context.Context, noteID, userID string) (string, error) {
	args := m.Called(ctx, noteID, userID)
	return args.String(0), args.Error(1)
}

func (m *MockNoteStore) UpdateSummary(ctx context.Context, n note.Note) (note.Note, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(note.Note), args.Error(1)
}

// MockProfileStore is a testify mock of repository.ProfileStore.
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetProfile(ctx context.Context, userID string) (note.Profile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(note.Profile), args.Error(1)
}

func (m *MockProfileStore) CreateProfile(ctx context.Context, p note.Profile) (note.Profile, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(note.Profile), args.Error(1)
}

// MockEventPublisher is a testify mock of repository.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...repository.NoteEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

var (
	_ repository.NoteStore      = (*MockNoteStore)(nil)
	_ repository.ProfileStore   = (*MockProfileStore)(nil)
	_ repository.EventPublisher = (*MockEventPublisher)(nil)
)
