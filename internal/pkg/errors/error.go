package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInternal       = errors.New("internal server error")
	ErrSessionExpired = errors.New("session expired or invalid")

	// Auth errors, surfaced verbatim to the login/signup form.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateAccount   = errors.New("an account with this email already exists")
	ErrAccountNotFound    = errors.New("no account found for this email")
	ErrProviderExchange   = errors.New("sign-in with provider failed")

	// Store errors.
	ErrStoreWrite     = errors.New("record store write failed")
	ErrStoreRead      = errors.New("record store read failed")
	ErrStoreSubscribe = errors.New("record store subscription failed")

	// Map / geolocation errors.
	ErrMapLoad            = errors.New("map configuration unavailable")
	ErrGeolocationDenied  = errors.New("location permission denied")
	ErrGeolocationTimeout = errors.New("location lookup timed out")

	// Editor errors.
	ErrNoActiveOverlay = errors.New("no overlay is active")
	ErrOverlayNotFound = errors.New("overlay not found")
	ErrTooFewVertices  = errors.New("polygon needs at least three vertices")
	ErrEditorNotFound  = errors.New("editor session not found")
	ErrDrawingDisabled = errors.New("drawing is disabled while an overlay exists")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap extracts the underlying wrapped error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
