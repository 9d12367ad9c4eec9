package errors

// Error codes for programmatic handling. The kind decides behaviour, the code
// narrows it down for logs and API clients.
const (
	// Not found
	CodeNoteNotFound    = "NOTE_NOT_FOUND"
	CodeProfileNotFound = "PROFILE_NOT_FOUND"

	// Permission
	CodeNoSession      = "NO_SESSION"
	CodeInvalidToken   = "INVALID_TOKEN"
	CodeSessionClosed  = "SESSION_CLOSED"
	CodeUserExists     = "USER_EXISTS"
	CodeBadCredentials = "BAD_CREDENTIALS"

	// Store
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeDuplicateID      = "DUPLICATE_ID"
	CodeCircuitOpen      = "CIRCUIT_OPEN"
	CodeTimeout          = "TIMEOUT"
	CodeCanceled         = "CANCELED"
	CodeDecodeFailed     = "DECODE_FAILED"

	// Summarization
	CodeSummaryFailed     = "SUMMARY_FAILED"
	CodeSummaryEmpty      = "SUMMARY_EMPTY"
	CodeSummaryNotAllowed = "SUMMARY_NOT_ALLOWED"
	CodeProviderMissing   = "PROVIDER_MISSING"

	// Validation
	CodeInvalidInput   = "INVALID_INPUT"
	CodeMissingUserID  = "MISSING_USER_ID"
	CodeMissingNoteID  = "MISSING_NOTE_ID"
	CodeEmptyTitle     = "EMPTY_TITLE"
	CodeEmptySummary   = "EMPTY_SUMMARY"
	CodeInvalidRequest = "INVALID_REQUEST"
)
