// Package handlers implements the REST endpoints of the notes API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DaX-523/notes-ai-1811/internal/domain/note"
	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/interfaces/http/middleware"
	"github.com/DaX-523/notes-ai-1811/internal/interfaces/http/response"
	"github.com/DaX-523/notes-ai-1811/internal/service/notes"
)

const maxBodyBytes = 1 << 20

// SummaryRequest sets a note's summary.
type SummaryRequest struct {
	Summary string `json:"summary"`
}

// ContentRequest carries text to summarize.
type ContentRequest struct {
	Content string `json:"content"`
}

// SummaryResponse carries a generated summary.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// DeleteResponse names the deleted note.
type DeleteResponse struct {
	ID string `json:"id"`
}

// NoteHandler serves /api/v1/notes, /api/v1/summaries and /api/v1/profile.
type NoteHandler struct {
	notes  notes.Service
	logger *zap.Logger
}

func NewNoteHandler(svc notes.Service, logger *zap.Logger) *NoteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteHandler{notes: svc, logger: logger.Named("NoteHandler")}
}

// List handles GET /api/v1/notes.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	user := h.user(r)
	list, err := h.notes.List(r.Context(), user.ID)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, list)
}

// Create handles POST /api/v1/notes. Any user_id in the body is ignored.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in notes.CreateInput
	if !h.decode(w, r, &in) {
		return
	}
	created, err := h.notes.Create(r.Context(), h.user(r).ID, in)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/v1/notes/"+created.ID)
	response.JSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/v1/notes/{noteID}.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in notes.UpdateInput
	if !h.decode(w, r, &in) {
		return
	}
	updated, err := h.notes.Update(r.Context(), h.user(r).ID, chi.URLParam(r, "noteID"), in)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/notes/{noteID}.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := h.notes.Delete(r.Context(), h.user(r).ID, chi.URLParam(r, "noteID"))
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, DeleteResponse{ID: id})
}

// UpdateSummary handles PUT /api/v1/notes/{noteID}/summary.
func (h *NoteHandler) UpdateSummary(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.notes.UpdateSummary(r.Context(), h.user(r).ID, chi.URLParam(r, "noteID"), req.Summary)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

// Summarize handles POST /api/v1/notes/{noteID}/summarize.
func (h *NoteHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	updated, err := h.notes.Summarize(r.Context(), h.user(r).ID, chi.URLParam(r, "noteID"))
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

// SummarizeContent handles POST /api/v1/summaries.
func (h *NoteHandler) SummarizeContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !h.decode(w, r, &req) {
		return
	}
	summary, err := h.notes.SummarizeContent(r.Context(), h.user(r).ID, req.Content)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, SummaryResponse{Summary: summary})
}

// SummarizeAll handles GET /api/v1/summaries/all.
func (h *NoteHandler) SummarizeAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.notes.SummarizeAll(r.Context(), h.user(r).ID)
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, SummaryResponse{Summary: summary})
}

// Profile handles GET /api/v1/profile.
func (h *NoteHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.notes.EnsureProfile(r.Context(), h.user(r))
	if err != nil {
		response.Error(w, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, profile)
}

// user is only called behind Authenticator. A missing user yields an empty
// id, which the service rejects.
func (h *NoteHandler) user(r *http.Request) note.User {
	u, _ := middleware.UserFromContext(r.Context())
	return u
}

func (h *NoteHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		message := "invalid request body"
		if errors.Is(err, io.EOF) {
			message = "request body is required"
		}
		response.Error(w, h.logger, apperrors.Validation(apperrors.CodeInvalidRequest, message).WithCause(err).Build())
		return false
	}
	return true
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
