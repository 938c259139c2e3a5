package events

import "errors"

// Predefined errors for the events package.
var (
	// ErrSinkFailed indicates the sink rejected a batch.
	ErrSinkFailed = errors.New("impression sink delivery failed")

	// ErrDispatcherClosed indicates Dispatch was called after Close.
	ErrDispatcherClosed = errors.New("event dispatcher is closed")
)
