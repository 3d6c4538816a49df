// Package errors provides standardized error handling for the analytics pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Safety boundary
	ErrCodeSchemaViolation     ErrorCode = "SCHEMA_VIOLATION"
	ErrCodeStatementNotAllowed ErrorCode = "STATEMENT_NOT_ALLOWED"

	// Database
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseQueryFailed      ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	// Language model
	ErrCodeLLMRequestFailed ErrorCode = "LLM_REQUEST_FAILED"
	ErrCodeLLMOutputInvalid ErrorCode = "LLM_OUTPUT_INVALID"
	ErrCodeLLMTimeout       ErrorCode = "LLM_TIMEOUT"
	ErrCodeAgentNotFound    ErrorCode = "AGENT_NOT_FOUND"

	// Request surface
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ErrorCode returns the code as a plain string for metrics labels.
func (e *StandardError) ErrorCode() string {
	return string(e.Code)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 2. Error Constructors
// ==========================

// NewSchemaViolationError reports generated SQL that touches tables outside the allow-list.
func NewSchemaViolationError(details string, cause error) *StandardError {
	return newError(ErrCodeSchemaViolation, "Attempted to call tables that do not exist", details, false, cause)
}

// NewStatementNotAllowedError reports generated SQL that is not a read.
func NewStatementNotAllowedError(details string, cause error) *StandardError {
	return newError(ErrCodeStatementNotAllowed, "Only read statements may be executed", details, false, cause)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", detailsOf(err), true, err)
}

// NewDatabaseQueryFailedError reports a failed statement; stage names the pipeline step.
func NewDatabaseQueryFailedError(stage string, err error) *StandardError {
	return newError(ErrCodeDatabaseQueryFailed, "Call to DB failed",
		fmt.Sprintf("stage: %s, error: %s", stage, detailsOf(err)), true, err)
}

func NewQueryTimeoutError(stage string, err error) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout",
		fmt.Sprintf("stage: %s", stage), true, err)
}

func NewLLMRequestFailedError(agent string, err error) *StandardError {
	return newError(ErrCodeLLMRequestFailed, "Language model request failed",
		fmt.Sprintf("agent: %s, error: %s", agent, detailsOf(err)), true, err)
}

func NewLLMOutputInvalidError(agent, details string, cause error) *StandardError {
	return newError(ErrCodeLLMOutputInvalid, "Language model output did not match the declared shape",
		fmt.Sprintf("agent: %s, %s", agent, details), false, cause)
}

func NewLLMTimeoutError(agent string, err error) *StandardError {
	return newError(ErrCodeLLMTimeout, "Language model request timeout",
		fmt.Sprintf("agent: %s", agent), true, err)
}

func NewAgentNotFoundError(agent string) *StandardError {
	return newError(ErrCodeAgentNotFound, "Agent not found in registry",
		fmt.Sprintf("agent: %s", agent), false, nil)
}

func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request", details, false, nil)
}

func NewRateLimitedError(retryAfter time.Duration) *StandardError {
	return newError(ErrCodeRateLimited, "Too many requests",
		fmt.Sprintf("retry after %s", retryAfter), true, nil).
		WithMetadata("retryAfterSeconds", int(retryAfter.Seconds()))
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", detailsOf(err), false, err)
}

// ==========================
// 3. Classification
// ==========================

// AsStandardError returns the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// HTTPStatus maps an error code to the status written before any stream bytes.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeSchemaViolation, ErrCodeStatementNotAllowed:
		return http.StatusUnprocessableEntity
	case ErrCodeDatabaseConnectionFailed, ErrCodeDatabaseQueryFailed,
		ErrCodeLLMRequestFailed, ErrCodeLLMOutputInvalid:
		return http.StatusBadGateway
	case ErrCodeQueryTimeout, ErrCodeLLMTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory groups codes for logs and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeSchemaViolation, ErrCodeStatementNotAllowed:
		return "SAFETY"
	case ErrCodeDatabaseConnectionFailed, ErrCodeDatabaseQueryFailed, ErrCodeQueryTimeout:
		return "DATABASE"
	case ErrCodeLLMRequestFailed, ErrCodeLLMOutputInvalid, ErrCodeLLMTimeout, ErrCodeAgentNotFound:
		return "LLM"
	case ErrCodeInvalidRequest, ErrCodeRateLimited:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}
