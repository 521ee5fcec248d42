package dto

import "net/http"

// Machine-readable error codes carried in ErrorInfo.Code. The ERR_
// prefix marks the standardized form; domain errors use bare codes and
// are translated on the way out through NormalizeErrorCode.

// General failures with no better category.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Request validation failures. ErrCodeValidation is the umbrella code
// used for binding errors; the narrower forms exist for handlers that
// can name the exact rule.
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
)

// Authentication and authorization failures.
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource lookup and conflict failures.
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule violations. The request was well formed but the
// operation is not allowed against the current state.
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// Malformed or unacceptable requests.
const (
	ErrCodeBadRequest       = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput     = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON      = "ERR_INVALID_JSON"
	ErrCodePayloadTooLarge  = "ERR_PAYLOAD_TOO_LARGE"
	ErrCodeMethodNotAllowed = "ERR_METHOD_NOT_ALLOWED"
)

// ErrCodeRateLimited is returned when a client exceeds its request quota.
const ErrCodeRateLimited = "ERR_RATE_LIMITED"

// ErrorCodeHTTPStatus maps each standardized code to the status the
// HTTP layer writes for it, grouped by status.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeInvalidInput:       http.StatusBadRequest,
	ErrCodeInvalidJSON:        http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeForbidden: http.StatusForbidden,

	ErrCodeNotFound: http.StatusNotFound,

	ErrCodeMethodNotAllowed: http.StatusMethodNotAllowed,

	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	ErrCodeRateLimited: http.StatusTooManyRequests,

	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,
}

// GetHTTPStatus resolves the response status for a standardized code.
// Codes with no mapping are treated as internal errors.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping translates the bare codes domain errors carry
// into their standardized ERR_ form. Domain errors know nothing about
// HTTP, so the translation lives here.
var DomainErrorCodeMapping = map[string]string{
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"FORBIDDEN":            ErrCodeForbidden,
	"INTERNAL_ERROR":       ErrCodeInternal,
	"INVALID_FIELD":        ErrCodeInvalidInput,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"NOT_FOUND":            ErrCodeNotFound,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"VALIDATION_ERROR":     ErrCodeValidation,
}

// NormalizeErrorCode converts a domain error code to the standardized
// form. Codes already standardized, and unknown codes, pass through.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
