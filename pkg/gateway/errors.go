package gateway

import "errors"

// Predefined errors for the gateway package.
var (
	// ErrResolveFailed indicates the gateway could not be reached or
	// returned a non-success status.
	ErrResolveFailed = errors.New("failed to resolve attributes via gateway")

	// ErrNoGateway indicates resolution was requested but no gateway base
	// URL is configured.
	ErrNoGateway = errors.New("no gateway configured")
)
