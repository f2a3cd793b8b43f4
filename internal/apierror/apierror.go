// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	// OpenSessionID is set on "session already open" conflicts so the client
	// can redirect the operator to the session that is already open.
	OpenSessionID string `json:"open_session_id,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// NewConflict reports an open-session conflict together with the winning id.
func NewConflict(msg, openSessionID string) *APIError {
	return &APIError{Detail: msg, OpenSessionID: openSessionID}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation error", Fields: fields}
}
