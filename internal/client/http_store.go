package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

// HTTPStore implements repository.NoteStore over the REST API. The server
// derives the owner from the bearer token, so the user ids passed in only
// filter what comes back.
type HTTPStore struct {
	client *Client
}

func NewHTTPStore(c *Client) *HTTPStore {
	return &HTTPStore{client: c}
}

type createRequest struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Summary *string `json:"summary,omitempty"`
}

type updateRequest struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Summary *string `json:"summary,omitempty"`
}

type summaryRequest struct {
	Summary string `json:"summary"`
}

type deleteResponse struct {
	ID string `json:"id"`
}

func (s *HTTPStore) List(ctx context.Context, userID string) ([]note.Note, error) {
	var list []note.Note
	if err := s.client.do(ctx, "List", http.MethodGet, "/api/v1/notes", nil, &list); err != nil {
		return nil, err
	}
	owned := make([]note.Note, 0, len(list))
	for _, n := range list {
		if n.UserID == "" || n.UserID == userID {
			n.UserID = userID
			owned = append(owned, n)
		}
	}
	return owned, nil
}

func (s *HTTPStore) Create(ctx context.Context, n note.Note) (note.Note, error) {
	var created note.Note
	body := createRequest{ID: n.ID, Title: n.Title, Content: n.Content, Summary: n.Summary}
	if err := s.client.do(ctx, "Create", http.MethodPost, "/api/v1/notes", body, &created); err != nil {
		return note.Note{}, err
	}
	return created, nil
}

func (s *HTTPStore) Update(ctx context.Context, n note.Note) (note.Note, error) {
	var updated note.Note
	body := updateRequest{Title: n.Title, Content: n.Content, Summary: n.Summary}
	if err := s.client.do(ctx, "Update", http.MethodPut, notePath(n.ID), body, &updated); err != nil {
		return note.Note{}, err
	}
	return updated, nil
}

func (s *HTTPStore) Delete(ctx context.Context, noteID, userID string) (string, error) {
	var resp deleteResponse
	if err := s.client.do(ctx, "Delete", http.MethodDelete, notePath(noteID), nil, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (s *HTTPStore) UpdateSummary(ctx context.Context, n note.Note) (note.Note, error) {
	var updated note.Note
	body := summaryRequest{Summary: n.SummaryText()}
	if err := s.client.do(ctx, "UpdateSummary", http.MethodPut, notePath(n.ID)+"/summary", body, &updated); err != nil {
		return note.Note{}, err
	}
	return updated, nil
}

func notePath(id string) string {
	return "/api/v1/notes/" + url.PathEscape(id)
}

var _ repository.NoteStore = (*HTTPStore)(nil)
