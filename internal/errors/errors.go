package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy for the compute broker. Every failure surfaced to a caller
// wraps exactly one of these so the HTTP layer can pick a status code.
var (
	// Lookup errors
	ErrNotFound         = errors.New("not found")
	ErrSessionNotFound  = fmt.Errorf("session %w", ErrNotFound)
	ErrInstanceNotFound = fmt.Errorf("instance %w", ErrNotFound)

	// Provider errors (transport, timeout, non-2xx, malformed response)
	ErrProviderUnavailable = errors.New("compute provider unavailable")

	// Request errors
	ErrInvalidRequest = errors.New("invalid request")

	// General errors
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Invalidf builds an ErrInvalidRequest with a human readable reason.
func Invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound reports whether err is a session or instance lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
