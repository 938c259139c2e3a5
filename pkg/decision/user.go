package decision

import "github.com/dmitrymomot/flagkit/pkg/segment"

// UserContext is the caller-supplied identity and attribute set for one
// evaluation. It is constructed fresh per API call and never retained by
// the engine; only the resulting decision is persisted.
type UserContext struct {
	// ID is the stable user identifier all bucketing derives from.
	ID string

	// CustomVariables are compared by custom_variable segment operands.
	CustomVariables map[string]any

	// UserAgent and IPAddress feed gateway resolution when a campaign's
	// segments target location or device attributes.
	UserAgent string
	IPAddress string

	// Location and Device, when pre-resolved by the caller, suppress
	// gateway resolution entirely.
	Location *segment.Location
	Device   *segment.Device

	// ForcedVariations maps campaign key to variation name: an explicit,
	// hash-bypassing override that takes precedence over bucketing.
	ForcedVariations map[string]string
}
