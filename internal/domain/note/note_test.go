package note

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
)

func TestNew_GeneratesIdentity(t *testing.T) {
	n, err := New("user-1", "  Groceries  ", "milk")

	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "Groceries", n.Title)
	assert.Equal(t, "user-1", n.UserID)
	assert.Nil(t, n.Summary)
	assert.False(t, n.CreatedAt.IsZero())

	other, err := New("user-1", "Groceries", "milk")
	require.NoError(t, err)
	assert.NotEqual(t, n.ID, other.ID)
}

func TestNew_RejectsBlankTitle(t *testing.T) {
	_, err := New("user-1", "   ", "content")

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	var unifiedErr *apperrors.UnifiedError
	require.ErrorAs(t, err, &unifiedErr)
	assert.Equal(t, apperrors.CodeEmptyTitle, unifiedErr.Code)
}

func TestNew_RejectsMissingOwner(t *testing.T) {
	_, err := New("", "title", "content")

	require.Error(t, err)
	var unifiedErr *apperrors.UnifiedError
	require.ErrorAs(t, err, &unifiedErr)
	assert.Equal(t, apperrors.CodeMissingUserID, unifiedErr.Code)
}

func TestNew_RejectsLongTitle(t *testing.T) {
	_, err := New("user-1", strings.Repeat("a", MaxTitleLength+1), "")

	assert.True(t, apperrors.IsValidation(err))
}

func TestClone_DoesNotShareSummary(t *testing.T) {
	original := Note{ID: "n1", Title: "t", UserID: "u"}.WithSummary("first")

	clone := original.Clone()
	*clone.Summary = "changed"

	assert.Equal(t, "first", original.SummaryText())
}

func TestMerge_KeepsSummaryWhenEditOmitsIt(t *testing.T) {
	stored := Note{ID: "n1", Title: "old", Content: "old", UserID: "u"}.WithSummary("s")

	merged := stored.Merge(Note{ID: "n1", Title: "new", Content: "new"})

	assert.Equal(t, "new", merged.Title)
	assert.Equal(t, "new", merged.Content)
	assert.Equal(t, "s", merged.SummaryText())
	assert.Equal(t, "u", merged.UserID)
}

func TestValidateSummary(t *testing.T) {
	assert.True(t, apperrors.IsValidation(ValidateSummary(nil)))
	assert.True(t, apperrors.IsValidation(ValidateSummary(Text("  "))))
	assert.NoError(t, ValidateSummary(Text("short summary")))
}

func TestValidate_NoteSummary(t *testing.T) {
	n := Note{ID: "n1", Title: "t", UserID: "u"}

	assert.NoError(t, Validate(n))
	assert.NoError(t, Validate(n.WithSummary("kept")))
	assert.True(t, apperrors.IsValidation(Validate(n.WithSummary("   "))))
	blank := n.WithSummary("")
	assert.True(t, apperrors.IsValidation(Validate(&blank)))
}

func TestValidate_SignUpPasswordsMustMatch(t *testing.T) {
	err := Validate(SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1", ConfirmPassword: "secret2"})

	require.Error(t, err)
	assert.Contains(t, apperrors.UserMessage(err), "passwords do not match")
}

func TestCloneAll_NilYieldsEmpty(t *testing.T) {
	out := CloneAll(nil)

	assert.NotNil(t, out)
	assert.Empty(t, out)
}
