package usecase

import "errors"

// Service failures fold into four buckets the transport layer maps onto
// status codes. Wrap with %w and put the detail in the message.
var (
	// ErrInvalidInput rejects a malformed request before any repository
	// or provider work happens.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound reports a device or team missing from the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized covers missing or malformed credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDependencyUnavailable reports an upstream outage or a
	// half-configured deployment, never a caller mistake.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
