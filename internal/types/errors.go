package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers and repositories use these constants
// instead of hardcoded strings so that HTTP mapping stays consistent.
const (
	// Validation (400)
	ErrCodeValidationInvalidJSON  ErrorCode = "validation_invalid_json"
	ErrCodeValidationMissingField ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidQuery ErrorCode = "validation_invalid_query_param"

	// Not Found (404)
	ErrCodeNotFoundInvitation ErrorCode = "not_found_invitation"

	// Conflict (409)
	ErrCodeConflictDuplicateConversation ErrorCode = "conflict_duplicate_conversation"

	// Internal/Upstream (500/502)
	ErrCodeInternalDB           ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected   ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamMailProvider ErrorCode = "upstream_mail_provider_unavailable"
	ErrCodeUpstreamContacts     ErrorCode = "upstream_contact_lookup_unavailable"
	ErrCodeUpstreamRateLimited  ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamUnavailable  ErrorCode = "upstream_unavailable"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict
	case s == string(ErrCodeUpstreamRateLimited):
		return http.StatusTooManyRequests
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. All domain and handler
// errors are expressed as AppError to enable consistent formatting, HTTP
// status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
