package dto

import "net/http"

// Standard error codes used across the API
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// errorCodeStatus maps error codes to HTTP status codes. Domain error
// codes appear here verbatim so domain failures translate without a
// renaming layer.
var errorCodeStatus = map[string]int{
	ErrCodeBadRequest:          http.StatusBadRequest,
	"INVALID_INPUT":            http.StatusBadRequest,
	"VALIDATION_ERROR":         http.StatusBadRequest,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	"ALREADY_EXISTS":           http.StatusConflict,
	"CONCURRENCY_CONFLICT":     http.StatusConflict,
	"INVALID_STATE":            http.StatusUnprocessableEntity,
	"TERMINAL_STATE":           http.StatusUnprocessableEntity,
	"INVALID_CHECKOUT_SESSION": http.StatusUnprocessableEntity,
	ErrCodeInternal:            http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code,
// defaulting to 500 for unknown codes.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
