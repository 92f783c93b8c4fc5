// Package errors defines the coded failures of the blend engine.
//
// Every failure that can leave a blend cycle or an operator command carries a
// Code, so the boundaries (scheduler, Discord commands, admin API) can decide
// how to surface it without string matching:
//
//	if errors.Is(err, errors.ErrLevelNotFound) {
//	    reply("That level does not exist on the codex.")
//	}
//
//	switch errors.CodeOf(err) {
//	case errors.CodeNothingToBlend:
//	    reporter.Alert(ctx, "The random pool is empty!")
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code is a machine-readable failure class.
type Code string

// Failure codes.
const (
	CodeInvalidSource              Code = "INVALID_SOURCE"
	CodeLevelNotFound              Code = "LEVEL_NOT_FOUND"
	CodeCatalogUnavailable         Code = "CATALOG_UNAVAILABLE"
	CodeMetadataParse              Code = "METADATA_PARSE_ERROR"
	CodeUnsupportedModeCombination Code = "UNSUPPORTED_MODE_COMBINATION"
	CodeUnknownDifficulty          Code = "UNKNOWN_DIFFICULTY"
	CodePoolEmpty                  Code = "POOL_EMPTY"
	CodeNothingToBlend             Code = "NOTHING_TO_BLEND"
	CodePublishFailed              Code = "PUBLISH_FAILED"
	CodeBusy                       Code = "BUSY"
	CodeValidation                 Code = "VALIDATION"
	CodeNotFound                   Code = "NOT_FOUND"
	CodeUnauthorized               Code = "UNAUTHORIZED"
	CodeForbidden                  Code = "FORBIDDEN"
	CodeInternal                   Code = "INTERNAL"
)

// HTTPStatus returns the status the admin API answers with for this code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidSource, CodeValidation:
		return http.StatusBadRequest
	case CodeLevelNotFound, CodeNotFound:
		return http.StatusNotFound
	case CodeCatalogUnavailable, CodeMetadataParse, CodeUnsupportedModeCombination,
		CodeUnknownDifficulty, CodePublishFailed:
		return http.StatusBadGateway
	case CodePoolEmpty, CodeNothingToBlend, CodeBusy:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Recoverable reports whether the condition is expected during normal
// operation. Only INTERNAL failures indicate a bug.
func (c Code) Recoverable() bool {
	return c != CodeInternal
}

// Error is a coded failure with an optional cause and details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a copy wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// CodeOf returns the code of the first *Error in err's chain, or INTERNAL.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Sentinels for use with errors.Is.
var (
	ErrInvalidSource              = &Error{Code: CodeInvalidSource, Message: "invalid level source"}
	ErrLevelNotFound              = &Error{Code: CodeLevelNotFound, Message: "level not found"}
	ErrCatalogUnavailable         = &Error{Code: CodeCatalogUnavailable, Message: "catalog unavailable"}
	ErrMetadataParse              = &Error{Code: CodeMetadataParse, Message: "malformed level metadata"}
	ErrUnsupportedModeCombination = &Error{Code: CodeUnsupportedModeCombination, Message: "level supports neither 1P nor 2P"}
	ErrUnknownDifficulty          = &Error{Code: CodeUnknownDifficulty, Message: "unknown level difficulty"}
	ErrPoolEmpty                  = &Error{Code: CodePoolEmpty, Message: "random pool is empty"}
	ErrNothingToBlend             = &Error{Code: CodeNothingToBlend, Message: "nothing to blend"}
	ErrPublishFailed              = &Error{Code: CodePublishFailed, Message: "publish failed"}
	ErrBusy                       = &Error{Code: CodeBusy, Message: "a blend is already running"}
	ErrValidation                 = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound                   = &Error{Code: CodeNotFound, Message: "not found"}
	ErrUnauthorized               = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden                  = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrInternal                   = &Error{Code: CodeInternal, Message: "internal error"}
)

// InvalidSourcef creates an INVALID_SOURCE error.
func InvalidSourcef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidSource, Message: fmt.Sprintf(format, args...)}
}

// LevelNotFound creates a LEVEL_NOT_FOUND error for id.
func LevelNotFound(id string) *Error {
	return &Error{
		Code:    CodeLevelNotFound,
		Message: fmt.Sprintf("failed to find level with id '%s'", id),
		Details: map[string]string{"level_id": id},
	}
}

// CatalogUnavailablef creates a CATALOG_UNAVAILABLE error.
func CatalogUnavailablef(format string, args ...any) *Error {
	return &Error{Code: CodeCatalogUnavailable, Message: fmt.Sprintf(format, args...)}
}

// MetadataParsef creates a METADATA_PARSE_ERROR error.
func MetadataParsef(format string, args ...any) *Error {
	return &Error{Code: CodeMetadataParse, Message: fmt.Sprintf(format, args...)}
}

// UnknownDifficulty creates an UNKNOWN_DIFFICULTY error for value.
func UnknownDifficulty(value int) *Error {
	return &Error{
		Code:    CodeUnknownDifficulty,
		Message: fmt.Sprintf("unknown level metadata difficulty: %d", value),
		Details: map[string]int{"difficulty": value},
	}
}

// UnsupportedModeCombination creates an UNSUPPORTED_MODE_COMBINATION error.
func UnsupportedModeCombination(levelID string) *Error {
	return &Error{
		Code:    CodeUnsupportedModeCombination,
		Message: fmt.Sprintf("level '%s' supports neither 1P nor 2P", levelID),
	}
}

// PublishFailedf creates a PUBLISH_FAILED error.
func PublishFailedf(format string, args ...any) *Error {
	return &Error{Code: CodePublishFailed, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with field details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// NotFoundf creates a not found error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Wrap wraps err with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps err with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
