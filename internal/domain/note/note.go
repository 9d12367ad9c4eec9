// Package note holds the note and user types shared by every layer.
//
// A Note belongs to exactly one user. Its ID is generated on the client at
// creation time and never changes, and its summary only ever moves from
// "not yet summarized" to text.
package note

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
)

// MaxTitleLength bounds note titles.
const MaxTitleLength = 200

// Note is a single user-owned note.
type Note struct {
	ID        string    `json:"id" validate:"required,max=64"`
	Title     string    `json:"title" validate:"notblank,max=200"`
	Content   string    `json:"content"`
	Summary   *string   `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id,omitempty" validate:"required"`
}

// New builds a note owned by userID with a fresh client-side ID.
func New(userID, title, content string) (Note, error) {
	n := Note{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Content:   content,
		CreatedAt: time.Now().UTC(),
		UserID:    userID,
	}
	if err := Validate(n); err != nil {
		return Note{}, err
	}
	return n, nil
}

// HasSummary reports whether the note has been summarized.
func (n Note) HasSummary() bool {
	return n.Summary != nil
}

// SummaryText returns the summary or "" when none exists yet.
func (n Note) SummaryText() string {
	if n.Summary == nil {
		return ""
	}
	return *n.Summary
}

// Clone returns a deep copy; the summary pointer is not shared.
func (n Note) Clone() Note {
	if n.Summary != nil {
		s := *n.Summary
		n.Summary = &s
	}
	return n
}

// WithSummary returns a copy carrying summary text.
func (n Note) WithSummary(summary string) Note {
	n.Summary = &summary
	return n
}

// Merge applies an edit from next onto n. Identity, owner and creation time
// stay with n, and a missing summary in next never clears an existing one.
func (n Note) Merge(next Note) Note {
	merged := n.Clone()
	merged.Title = next.Title
	merged.Content = next.Content
	if next.Summary != nil {
		merged.Summary = Text(*next.Summary)
	}
	return merged
}

// Text returns a pointer to a copy of s.
func Text(s string) *string {
	return &s
}

// CloneAll deep-copies a slice of notes. A nil input yields an empty slice.
func CloneAll(notes []Note) []Note {
	out := make([]Note, len(notes))
	for i, n := range notes {
		out[i] = n.Clone()
	}
	return out
}

// ValidateSummary rejects summaries that would move a note back to
// "not yet summarized".
func ValidateSummary(summary *string) error {
	if summary == nil || strings.TrimSpace(*summary) == "" {
		return apperrors.Validation(apperrors.CodeEmptySummary, "summary must not be empty").
			WithResource("note").
			Build()
	}
	return nil
}

// RequireOwner fails with a validation error when userID is empty.
func RequireOwner(userID, operation string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.Validation(apperrors.CodeMissingUserID, "user id is required").
			WithOperation(operation).
			WithResource("note").
			Build()
	}
	return nil
}

// SortNewestFirst orders notes by creation time, newest first. Ties break by
// id so the order is stable across refreshes.
func SortNewestFirst(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].ID > notes[j].ID
		}
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
}
