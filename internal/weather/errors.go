package weather

import (
	"errors"
	"fmt"
)

// ErrorType classifies every failure a lookup can end with.
type ErrorType string

const (
	ErrGeolocationDenied      ErrorType = "GEOLOCATION_DENIED"
	ErrGeolocationUnavailable ErrorType = "GEOLOCATION_UNAVAILABLE"
	ErrGeolocationTimeout     ErrorType = "GEOLOCATION_TIMEOUT"
	ErrCityNotFound           ErrorType = "CITY_NOT_FOUND"
	ErrAPI                    ErrorType = "API_ERROR"
	ErrNetwork                ErrorType = "NETWORK_ERROR"
	ErrUnknown                ErrorType = "UNKNOWN"
)

// AppError is a classified, user-facing error. Message is ready to display;
// Cause keeps the low-level error, if any.
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates an AppError without a cause.
func NewAppError(t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message}
}

// WrapAppError creates an AppError keeping err as its cause.
func WrapAppError(err error, t ErrorType, message string) *AppError {
	return &AppError{Type: t, Message: message, Cause: err}
}

// AsAppError extracts an AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of type t.
func IsType(err error, t ErrorType) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Type == t
}
