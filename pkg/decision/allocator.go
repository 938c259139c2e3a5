package decision

import (
	"fmt"

	"github.com/dmitrymomot/flagkit/pkg/bucketer"
	"github.com/dmitrymomot/flagkit/pkg/settings"
)

// trafficKey is the user-level bucketing key for a campaign's traffic gate.
// With the bucketing seed enabled the key is salted with the campaign id so
// gates are independent across campaigns.
func trafficKey(c *settings.Campaign, userID string) string {
	if c.IsBucketingSeedEnabled {
		return fmt.Sprintf("%d_%s", c.ID, userID)
	}
	return userID
}

// variationKey salts variation-level bucketing with the campaign id so the
// same user gets statistically independent assignments across campaigns.
func variationKey(c *settings.Campaign, userID string) string {
	return fmt.Sprintf("%d_%s", c.ID, userID)
}

// InTraffic reports whether the user's traffic bucket falls inside the
// campaign's traffic percentage.
func InTraffic(c *settings.Campaign, userID string) bool {
	return bucketer.ValueForUser(trafficKey(c, userID)) <= c.PercentTraffic
}

// WhitelistedVariation returns the variation explicitly forced for this
// user, or nil. A per-call override from the user context takes precedence
// over the campaign's configured whitelist. Whitelisting bypasses hashing
// entirely, including the traffic gate.
func WhitelistedVariation(c *settings.Campaign, user *UserContext) *settings.Variation {
	if name, ok := user.ForcedVariations[c.Key]; ok {
		if v := c.VariationByName(name); v != nil {
			return v
		}
	}
	if c.IsForcedVariationEnabled {
		if id, ok := c.Whitelist[user.ID]; ok {
			return c.VariationByID(id)
		}
	}
	return nil
}

// AllocateVariation picks the campaign variation for a user via hashed
// bucketing: nil when the user is outside the campaign's traffic, otherwise
// the variation whose range contains the user's bucket. Whitelists are the
// caller's concern; this function only hashes.
func AllocateVariation(c *settings.Campaign, userID string) *settings.Variation {
	if !InTraffic(c, userID) {
		return nil
	}
	bucket := bucketer.ValueForVariation(variationKey(c, userID))
	return variationForBucket(c.Variations, bucket)
}

// variationForBucket scans ranges in order. Ranges are disjoint and sorted
// ascending by construction, so the first match wins.
func variationForBucket(variations []*settings.Variation, bucket int) *settings.Variation {
	for _, v := range variations {
		if v == nil || v.EndRange == 0 {
			continue
		}
		if bucket >= v.StartRange && bucket <= v.EndRange {
			return v
		}
	}
	return nil
}
