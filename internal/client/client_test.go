package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/cache"
	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/persistence/memory"
	"github.com/DaX-523/notes-ai-1811/internal/interfaces/http/handlers"
	"github.com/DaX-523/notes-ai-1811/internal/service/notes"
)

type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, token string) (note.User, error) {
	id, ok := strings.CutPrefix(token, "token-")
	if !ok || id == "" {
		return note.User{}, apperrors.Permission(apperrors.CodeInvalidToken, "invalid token").Build()
	}
	return note.User{ID: id, Name: "User " + id}, nil
}

type echoSummarizer struct{}

func (echoSummarizer) Summarize(_ context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "There is no content to summarize.", nil
	}
	return "tl;dr " + content, nil
}

func (echoSummarizer) SummarizeNotes(_ context.Context, list []note.Note) string {
	return fmt.Sprintf("%d notes", len(list))
}

// newAPI serves the real router over in-memory stores.
func newAPI(t *testing.T) (*httptest.Server, *memory.NoteStore) {
	t.Helper()
	store := memory.NewNoteStore()
	svc := notes.NewService(store, memory.NewProfileStore(), echoSummarizer{}, nil, zap.NewNop())
	server := httptest.NewServer(handlers.NewRouter(handlers.RouterConfig{
		Notes:    svc,
		Verifier: tokenVerifier{},
		Logger:   zap.NewNop(),
	}))
	t.Cleanup(server.Close)
	return server, store
}

func staticToken(token string) TokenSource {
	return func() string { return token }
}

func TestHTTPStore_RoundTrip(t *testing.T) {
	// Arrange
	server, _ := newAPI(t)
	store := NewHTTPStore(New(server.URL, staticToken("token-alice")))
	ctx := context.Background()

	// Act
	created, createErr := store.Create(ctx, note.Note{ID: "n1", Title: "First", Content: "hello", UserID: "alice"})
	updated, updateErr := store.Update(ctx, note.Note{ID: "n1", Title: "First!", Content: "hello world", UserID: "alice"})
	summarized, summaryErr := store.UpdateSummary(ctx, note.Note{ID: "n1", UserID: "alice", Summary: note.Text("short")})
	listed, listErr := store.List(ctx, "alice")
	deleted, deleteErr := store.Delete(ctx, "n1", "alice")
	afterDelete, _ := store.List(ctx, "alice")

	// Assert
	require.NoError(t, createErr)
	require.NoError(t, updateErr)
	require.NoError(t, summaryErr)
	require.NoError(t, listErr)
	require.NoError(t, deleteErr)
	assert.Equal(t, "alice", created.UserID)
	assert.Equal(t, "First!", updated.Title)
	assert.Equal(t, "short", summarized.SummaryText())
	require.Len(t, listed, 1)
	assert.Equal(t, "short", listed[0].SummaryText())
	assert.Equal(t, "n1", deleted)
	assert.Empty(t, afterDelete)
}

func TestHTTPStore_ForeignNoteIsNotFound(t *testing.T) {
	server, backing := newAPI(t)
	backing.Seed(note.Note{ID: "b1", Title: "Bob's", UserID: "bob", CreatedAt: time.Now()})
	store := NewHTTPStore(New(server.URL, staticToken("token-alice")))

	_, updateErr := store.Update(context.Background(), note.Note{ID: "b1", Title: "Mine", UserID: "alice"})
	_, deleteErr := store.Delete(context.Background(), "b1", "alice")

	assert.True(t, apperrors.IsNotFound(updateErr))
	assert.True(t, apperrors.IsNotFound(deleteErr))
}

func TestHTTPStore_SignedOutIsPermissionError(t *testing.T) {
	server, _ := newAPI(t)
	store := NewHTTPStore(New(server.URL, staticToken("")))

	_, err := store.List(context.Background(), "alice")

	assert.True(t, apperrors.IsPermission(err))
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind apperrors.ErrorType
		wantCode string
	}{
		{name: "typed body", status: http.StatusConflict, body: `{"error":"id taken","type":"STORE","code":"DUPLICATE_ID"}`, wantKind: apperrors.ErrorTypeStore, wantCode: apperrors.CodeDuplicateID},
		{name: "bare 404", status: http.StatusNotFound, body: "", wantKind: apperrors.ErrorTypeNotFound},
		{name: "bare 500", status: http.StatusInternalServerError, body: "oops", wantKind: apperrors.ErrorTypeStore},
		{name: "undecodable success", status: http.StatusOK, body: "not json", wantKind: apperrors.ErrorTypeStore, wantCode: apperrors.CodeDecodeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()
			store := NewHTTPStore(New(server.URL, staticToken("t")))

			_, err := store.List(context.Background(), "alice")

			var unifiedErr *apperrors.UnifiedError
			require.ErrorAs(t, err, &unifiedErr)
			assert.Equal(t, tt.wantKind, unifiedErr.Type)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, unifiedErr.Code)
			}
		})
	}
}

func TestClient_UnreachableIsStoreError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewHTTPStore(New(url, staticToken("t"))).List(context.Background(), "alice")

	assert.True(t, apperrors.IsStore(err))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestClient_DeadlineIsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewHTTPStore(New(server.URL, staticToken("t"))).List(ctx, "alice")

	var unifiedErr *apperrors.UnifiedError
	require.ErrorAs(t, err, &unifiedErr)
	assert.Equal(t, apperrors.CodeTimeout, unifiedErr.Code)
}

func TestHTTPSummarizer(t *testing.T) {
	server, backing := newAPI(t)
	backing.Seed(note.Note{ID: "a", Title: "A", UserID: "alice", CreatedAt: time.Now()})
	c := New(server.URL, staticToken("token-alice"))
	summarizer := NewHTTPSummarizer(c)

	summary, err := summarizer.Summarize(context.Background(), "the text")
	all, allErr := summarizer.SummarizeAll(context.Background())
	profile, profileErr := c.Profile(context.Background())

	require.NoError(t, err)
	require.NoError(t, allErr)
	require.NoError(t, profileErr)
	assert.Equal(t, "tl;dr the text", summary)
	assert.Equal(t, "1 notes", all)
	assert.Equal(t, "alice", profile.ID)
}

func TestMutationCache_OverHTTPStore(t *testing.T) {
	// Arrange
	server, backing := newAPI(t)
	c := New(server.URL, staticToken("token-alice"))
	owner := note.User{ID: "alice", Name: "Alice"}
	mc := cache.New(NewHTTPStore(c), NewHTTPSummarizer(c), owner, cache.Options{Logger: zap.NewNop()})
	defer mc.Close(context.Background())
	ctx := context.Background()
	require.NoError(t, mc.Refresh(ctx))

	// Act
	created, createErr := mc.Create(ctx, "Remote", "stored over HTTP").Wait(ctx)
	summarized, summaryErr := mc.Summarize(ctx, created.ID).Wait(ctx)
	require.NoError(t, mc.WaitIdle(ctx))

	// Assert
	require.NoError(t, createErr)
	require.NoError(t, summaryErr)
	assert.Equal(t, "tl;dr stored over HTTP", summarized.SummaryText())
	stored, err := backing.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "tl;dr stored over HTTP", stored[0].SummaryText())
	assert.Len(t, mc.Notes(), 1)
}
