package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gotrue "github.com/supabase-community/gotrue-go"
	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
)

const testUserID = "3f1c7a52-8a2e-4d8b-9a5e-1f2b3c4d5e6f"

func userJSON() map[string]any {
	return map[string]any{
		"id":            testUserID,
		"email":         "ada@example.com",
		"user_metadata": map[string]any{"name": "Ada"},
	}
}

// fakeGoTrue answers the handful of GoTrue endpoints the boundary uses.
func fakeGoTrue(t *testing.T, validToken string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Query().Get("grant_type") == "password" && body["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		writeJSON(w, map[string]any{
			"access_token":  validToken,
			"token_type":    "bearer",
			"expires_in":    3600,
			"expires_at":    1900000000,
			"refresh_token": "refresh-1",
			"user":          userJSON(),
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+validToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		writeJSON(w, userJSON())
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestAuth(serverURL string, tokens LocalStore) *SupabaseAuth {
	client := gotrue.New("test", "anon-key").WithCustomGoTrueURL(serverURL)
	return NewSupabaseAuthWithClient(client, tokens, zap.NewNop())
}

func TestSupabaseAuth_SignIn(t *testing.T) {
	// Arrange
	server := fakeGoTrue(t, "token-1")
	auth := newTestAuth(server.URL, NewFileStore(t.TempDir()))

	// Act
	s, err := auth.SignIn(context.Background(), note.Credentials{Email: "ada@example.com", Password: "secret"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "token-1", s.AccessToken)
	assert.Equal(t, "refresh-1", s.RefreshToken)
	assert.Equal(t, testUserID, s.User.ID)
	assert.Equal(t, "Ada", s.User.Name)
}

func TestSupabaseAuth_SignIn_BadCredentials(t *testing.T) {
	server := fakeGoTrue(t, "token-1")
	auth := newTestAuth(server.URL, NewFileStore(t.TempDir()))

	_, err := auth.SignIn(context.Background(), note.Credentials{Email: "ada@example.com", Password: "wrong"})

	var unifiedErr *apperrors.UnifiedError
	require.ErrorAs(t, err, &unifiedErr)
	assert.Equal(t, apperrors.ErrorTypePermission, unifiedErr.Type)
	assert.Equal(t, apperrors.CodeBadCredentials, unifiedErr.Code)
}

func TestSupabaseAuth_GetSession_ValidToken(t *testing.T) {
	server := fakeGoTrue(t, "token-1")
	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Save(Record{User: note.User{ID: testUserID}, AccessToken: "token-1"}))
	auth := newTestAuth(server.URL, store)

	s, err := auth.GetSession(context.Background())

	require.NoError(t, err)
	require.True(t, s.Active())
	assert.Equal(t, "ada@example.com", s.User.Email)
}

func TestSupabaseAuth_GetSession_NoRecord(t *testing.T) {
	server := fakeGoTrue(t, "token-1")
	auth := newTestAuth(server.URL, NewFileStore(t.TempDir()))

	s, err := auth.GetSession(context.Background())

	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSupabaseAuth_GetSession_Unreachable(t *testing.T) {
	server := fakeGoTrue(t, "token-1")
	url := server.URL
	server.Close()
	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Save(Record{User: note.User{ID: testUserID}, AccessToken: "token-1"}))
	auth := newTestAuth(url, store)

	_, err := auth.GetSession(context.Background())

	assert.ErrorIs(t, err, ErrUnreachable)
}
