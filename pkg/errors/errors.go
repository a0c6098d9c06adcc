package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	CodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	CodeDuplicateUser       ErrorCode = "DUPLICATE_USER"
	CodeInvalidCredentials  ErrorCode = "INVALID_CREDENTIALS"
	CodeUnauthenticated     ErrorCode = "UNAUTHENTICATED"
	CodeInvalidToken        ErrorCode = "INVALID_TOKEN"
	CodeForbidden           ErrorCode = "FORBIDDEN"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeIdempotencyConflict ErrorCode = "IDEMPOTENCY_CONFLICT"
	CodeBadRequest          ErrorCode = "BAD_REQUEST"
	CodeInternalError       ErrorCode = "INTERNAL_ERROR"
)

// HTTPStatusMap maps error codes to HTTP status codes.
// DUPLICATE_USER and INVALID_CREDENTIALS stay on 400 for client compatibility.
var HTTPStatusMap = map[ErrorCode]int{
	CodeValidationFailed:    http.StatusBadRequest,
	CodeDuplicateUser:       http.StatusBadRequest,
	CodeInvalidCredentials:  http.StatusBadRequest,
	CodeUnauthenticated:     http.StatusUnauthorized,
	CodeInvalidToken:        http.StatusForbidden,
	CodeForbidden:           http.StatusForbidden,
	CodeNotFound:            http.StatusNotFound,
	CodeIdempotencyConflict: http.StatusConflict,
	CodeBadRequest:          http.StatusBadRequest,
	CodeInternalError:       http.StatusInternalServerError,
}

// FieldError describes a single invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse represents the standardized error response structure
type ErrorResponse struct {
	Error struct {
		Code    ErrorCode    `json:"code"`
		Message string       `json:"message"`
		TraceID string       `json:"trace_id,omitempty"`
		Fields  []FieldError `json:"fields,omitempty"`
	} `json:"error"`
}

// AppError represents an application error with code and message
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Fields  []FieldError
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorf creates a new AppError with formatted message
func NewAppErrorf(code ErrorCode, cause error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// WithFields attaches field-level detail, used for validation failures
func (e *AppError) WithFields(fields ...FieldError) *AppError {
	e.Fields = append(e.Fields, fields...)
	return e
}

// ToErrorResponse converts AppError to ErrorResponse
func (e *AppError) ToErrorResponse(traceID string) ErrorResponse {
	resp := ErrorResponse{}
	resp.Error.Code = e.Code
	resp.Error.Message = e.Message
	resp.Error.TraceID = traceID
	resp.Error.Fields = e.Fields
	return resp
}

// HTTPStatus returns the HTTP status code for this error
func (e *AppError) HTTPStatus() int {
	if status, exists := HTTPStatusMap[e.Code]; exists {
		return status
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether the error is caused by the caller
func (e *AppError) IsClientError() bool {
	status := e.HTTPStatus()
	return status >= 400 && status < 500
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{Code: appErr.Code, Message: message, Cause: err, Fields: appErr.Fields}
	}
	return NewAppError(CodeInternalError, message, err)
}
