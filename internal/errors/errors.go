package errors

import (
	"errors"
	"fmt"
)

// Common error types for the storefront console
var (
	// Session errors
	ErrSessionMissing   = errors.New("not authenticated")
	ErrSessionInvalid   = errors.New("session expired")
	ErrRenewalTransport = errors.New("token renewal unavailable")

	// Login errors
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Remote API errors
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Transport marks err as a transient renewal failure while keeping the
// original cause reachable through errors.Is/As.
func Transport(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRenewalTransport, err)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
