// Package response writes JSON bodies for the REST API.
package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
)

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Error maps err to its status and writes the error body. Unclassified
// errors are logged and reported as internal errors.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	if logger != nil {
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
		} else {
			logger.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
		}
	}
	JSON(w, status, apperrors.Response(err))
}
