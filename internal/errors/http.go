package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
)

// UserMessage is the short message shown after a failed operation is rolled back.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch Kind(err) {
	case ErrorTypeNotFound:
		return "That note no longer exists or you don't have permission to change it."
	case ErrorTypePermission:
		return "You need to sign in to manage your notes."
	case ErrorTypeStore:
		return "Couldn't reach the notes service. Your change was not saved."
	case ErrorTypeSummarization:
		return "Couldn't generate a summary right now. Please try again."
	case ErrorTypeValidation:
		var unifiedErr *UnifiedError
		if As(err, &unifiedErr) && unifiedErr.Message != "" {
			return unifiedErr.Message
		}
		return "Please check your input and try again."
	default:
		return "Something went wrong. Please try again."
	}
}

// HTTPStatus maps an error kind to the response status used by the API.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypePermission:
		var unifiedErr *UnifiedError
		if As(err, &unifiedErr) && (unifiedErr.Code == CodeNoSession || unifiedErr.Code == CodeInvalidToken) {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeSummarization:
		return http.StatusBadGateway
	case ErrorTypeStore:
		var unifiedErr *UnifiedError
		if As(err, &unifiedErr) && unifiedErr.Code == CodeDuplicateID {
			return http.StatusConflict
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the JSON body written for failed API calls.
type ErrorResponse struct {
	Error string    `json:"error"`
	Type  ErrorType `json:"type,omitempty"`
	Code  string    `json:"code,omitempty"`
}

// Response builds the API body for err.
func Response(err error) ErrorResponse {
	var unifiedErr *UnifiedError
	if As(err, &unifiedErr) {
		return ErrorResponse{Error: unifiedErr.Message, Type: unifiedErr.Type, Code: unifiedErr.Code}
	}
	return ErrorResponse{Error: "internal server error"}
}

// FromStatus turns an API error response back into a typed error on the
// client side, so a remote failure rolls back the same way a local one does.
func FromStatus(status int, body []byte, operation string) *UnifiedError {
	var resp ErrorResponse
	_ = json.Unmarshal(body, &resp)
	message := strings.TrimSpace(resp.Error)
	if message == "" {
		message = http.StatusText(status)
	}

	if resp.Type != "" {
		code := resp.Code
		if code == "" {
			code = string(resp.Type)
		}
		return NewError(resp.Type, code, message).
			WithOperation(operation).
			WithRetryable(resp.Type == ErrorTypeStore || resp.Type == ErrorTypeSummarization).
			Build()
	}

	switch {
	case status == http.StatusNotFound:
		return NotFound(CodeNoteNotFound, message).WithOperation(operation).Build()
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return Permission(CodeInvalidToken, message).WithOperation(operation).Build()
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return Validation(CodeInvalidRequest, message).WithOperation(operation).Build()
	default:
		return Store(CodeStoreUnavailable, message).WithOperation(operation).Build()
	}
}

// As is errors.As, re-exported for callers that import this package as errors.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
