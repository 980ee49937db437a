package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every AppError wraps exactly one of these so callers can use errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("resource conflict")
	ErrForbidden  = errors.New("forbidden")
)

// AppError is a classified error carrying the HTTP status it maps to
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Context    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext attaches a key/value pair that handlers may expose to the client
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func newAppError(kind error, status int, format string, args ...interface{}) *AppError {
	return &AppError{
		Err:        kind,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: status,
	}
}

// Validation reports bad input shape or value. Nothing was mutated.
func Validation(format string, args ...interface{}) *AppError {
	return newAppError(ErrValidation, http.StatusBadRequest, format, args...)
}

// NotFound reports an unknown entity id.
func NotFound(format string, args ...interface{}) *AppError {
	return newAppError(ErrNotFound, http.StatusNotFound, format, args...)
}

// Conflict reports that the caller's view of the entity is stale or the entity
// is in a state that does not allow the operation. Callers re-read before retrying.
func Conflict(format string, args ...interface{}) *AppError {
	return newAppError(ErrConflict, http.StatusConflict, format, args...)
}

// Forbidden reports an access guard denial.
func Forbidden(format string, args ...interface{}) *AppError {
	return newAppError(ErrForbidden, http.StatusForbidden, format, args...)
}

// StatusOf maps any error to the HTTP status a transport should answer with
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
