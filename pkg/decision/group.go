package decision

import (
	"context"
	"math"
	"strconv"

	"github.com/dmitrymomot/flagkit/pkg/bucketer"
	"github.com/dmitrymomot/flagkit/pkg/settings"
)

// electGroupWinner picks the single campaign a user may see from a mutually
// exclusive group. Deterministic for a given user: re-electing with the same
// inputs always yields the same winner. Returns 0 when no campaign is
// eligible.
//
// Eligibility requires a running campaign whose audience the user matches
// and whose traffic gate admits the user (or an explicit whitelist entry,
// which bypasses the gate but not the audience).
func (r *ruleEvaluator) electGroupWinner(ctx context.Context, snap *settings.Settings, groupID string, g *settings.Group, user *UserContext, pass *passState) int {
	eligible := make([]*settings.Campaign, 0, len(g.CampaignIDs))
	for _, id := range g.CampaignIDs {
		c := snap.CampaignByID(id)
		if c == nil || !c.Running() {
			continue
		}
		if passed, ok := r.segmentationPasses(ctx, c, user, pass); !ok || !passed {
			continue
		}
		if WhitelistedVariation(c, user) != nil || InTraffic(c, user.ID) {
			eligible = append(eligible, c)
		}
	}

	switch len(eligible) {
	case 0:
		return 0
	case 1:
		return eligible[0].ID
	}

	if g.Election == settings.ElectionAdvanced {
		// Priority order first: the highest-priority eligible campaign wins
		// outright.
		for _, id := range g.Priority {
			for _, c := range eligible {
				if c.ID == id {
					return id
				}
			}
		}
		if len(g.Weights) > 0 {
			// A bucket outside the configured weight coverage elects nobody;
			// uncovered traffic stays out of every campaign in the group.
			return weightedWinner(eligible, g.Weights, groupID, user.ID)
		}
		// No weights configured; same fallback as ElectionRandom.
	}

	return equalWeightWinner(eligible, groupID, user.ID)
}

// groupBucket buckets the user on the 1..10000 scale with a group-salted
// key, independent of any campaign-level bucketing.
func groupBucket(groupID, userID string) int {
	return bucketer.ValueForVariation(groupID + "_" + userID)
}

// weightedWinner walks cumulative weight ranges in eligibility order.
// Weights are percentages; campaigns without a configured weight get none.
func weightedWinner(eligible []*settings.Campaign, weights map[string]float64, groupID, userID string) int {
	bucket := groupBucket(groupID, userID)
	current := 0
	for _, c := range eligible {
		w, ok := weights[strconv.Itoa(c.ID)]
		if !ok || w <= 0 {
			continue
		}
		step := int(math.Floor(w * 100))
		if bucket > current && bucket <= current+step {
			return c.ID
		}
		current += step
	}
	return 0
}

// equalWeightWinner splits the scale evenly across eligible campaigns.
func equalWeightWinner(eligible []*settings.Campaign, groupID, userID string) int {
	bucket := groupBucket(groupID, userID)
	step := bucketer.MaxBucketValue / len(eligible)
	idx := (bucket - 1) / step
	if idx >= len(eligible) {
		idx = len(eligible) - 1
	}
	return eligible[idx].ID
}
