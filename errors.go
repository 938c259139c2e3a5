package flagkit

import "errors"

var (
	// ErrNoSettings is returned when an operation needs a settings snapshot
	// and none has been loaded yet.
	ErrNoSettings = errors.New("no settings snapshot loaded")

	// ErrNoSource is returned by Refresh and Start when the client was built
	// without a settings source.
	ErrNoSource = errors.New("no settings source configured")

	// ErrMissingUserID is returned when an operation requires a user
	// identifier and none was supplied.
	ErrMissingUserID = errors.New("missing user id")

	// ErrMissingEventName is returned by Track when the event name is empty.
	ErrMissingEventName = errors.New("missing event name")
)
