package settings

import "errors"

// Predefined errors for the settings package.
var (
	// ErrInvalidSettings indicates the payload failed structural validation.
	ErrInvalidSettings = errors.New("invalid settings payload")

	// ErrDuplicateFeatureKey indicates two features share the same key.
	ErrDuplicateFeatureKey = errors.New("duplicate feature key in settings")

	// ErrUnknownCampaign indicates a rule or group references a campaign id
	// that is not present in the snapshot.
	ErrUnknownCampaign = errors.New("settings reference an unknown campaign")

	// ErrFetchFailed indicates the settings endpoint could not be reached or
	// returned a non-success status.
	ErrFetchFailed = errors.New("failed to fetch settings")
)
