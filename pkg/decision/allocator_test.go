package decision_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/decision"
	"github.com/dmitrymomot/flagkit/pkg/settings"
)

func parseSettings(t *testing.T, payload string) *settings.Settings {
	t.Helper()
	snap, err := settings.Parse([]byte(payload))
	require.NoError(t, err)
	return snap
}

func TestInTraffic(t *testing.T) {
	t.Parallel()

	snap := parseSettings(t, `{
		"accountId": 1,
		"campaigns": [
			{"id": 10, "key": "full", "type": "ROLLOUT", "status": "RUNNING", "percentTraffic": 100,
			 "variations": [{"id": 1, "name": "on", "weight": 100}]},
			{"id": 11, "key": "closed", "type": "ROLLOUT", "status": "RUNNING", "percentTraffic": 0,
			 "variations": [{"id": 1, "name": "on", "weight": 100}]},
			{"id": 12, "key": "half", "type": "ROLLOUT", "status": "RUNNING", "percentTraffic": 50,
			 "variations": [{"id": 1, "name": "on", "weight": 100}]}
		]
	}`)

	t.Run("FullTrafficAdmitsEveryone", func(t *testing.T) {
		t.Parallel()
		c := snap.CampaignByID(10)
		for i := 0; i < 50; i++ {
			assert.True(t, decision.InTraffic(c, fmt.Sprintf("user-%d", i)))
		}
	})

	t.Run("ZeroTrafficAdmitsNobody", func(t *testing.T) {
		t.Parallel()
		c := snap.CampaignByID(11)
		for i := 0; i < 50; i++ {
			assert.False(t, decision.InTraffic(c, fmt.Sprintf("user-%d", i)))
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		t.Parallel()
		c := snap.CampaignByID(12)
		first := decision.InTraffic(c, "sticky-user")
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, decision.InTraffic(c, "sticky-user"))
		}
	})

	t.Run("PartialTrafficSplits", func(t *testing.T) {
		t.Parallel()
		c := snap.CampaignByID(12)
		admitted := 0
		for i := 0; i < 1000; i++ {
			if decision.InTraffic(c, fmt.Sprintf("user-%d", i)) {
				admitted++
			}
		}
		assert.Greater(t, admitted, 350)
		assert.Less(t, admitted, 650)
	})
}

func TestWhitelistedVariation(t *testing.T) {
	t.Parallel()

	snap := parseSettings(t, `{
		"accountId": 1,
		"campaigns": [
			{"id": 20, "key": "exp", "type": "EXPERIMENT", "status": "RUNNING", "percentTraffic": 0,
			 "isForcedVariationEnabled": true,
			 "whitelist": {"vip": 2},
			 "variations": [
				{"id": 1, "name": "control", "weight": 50},
				{"id": 2, "name": "treatment", "weight": 50}
			 ]},
			{"id": 21, "key": "plain", "type": "EXPERIMENT", "status": "RUNNING", "percentTraffic": 0,
			 "whitelist": {"vip": 2},
			 "variations": [
				{"id": 1, "name": "control", "weight": 50},
				{"id": 2, "name": "treatment", "weight": 50}
			 ]}
		]
	}`)

	t.Run("CampaignWhitelist", func(t *testing.T) {
		t.Parallel()
		c := snap.CampaignByID(20)
		v := decision.WhitelistedVariation(c, &decision.UserContext{ID: "vip"})
		require.NotNil(t, v)
		assert.Equal(t, "treatment", v.Name)
		assert.Nil(t, decision.WhitelistedVariation(c, &decision.UserContext{ID: "nobody"}))
	})

	t.Run("WhitelistIgnoredWhenDisabled", func(t *testing.T) {
		t.Parallel()
		c := snap.CampaignByID(21)
		assert.Nil(t, decision.WhitelistedVariation(c, &decision.UserContext{ID: "vip"}))
	})

	t.Run("ForcedVariationWins", func(t *testing.T) {
		t.Parallel()
		c := snap.CampaignByID(20)
		user := &decision.UserContext{
			ID:               "vip",
			ForcedVariations: map[string]string{"exp": "control"},
		}
		v := decision.WhitelistedVariation(c, user)
		require.NotNil(t, v)
		assert.Equal(t, "control", v.Name)
	})

	t.Run("UnknownForcedNameFallsThrough", func(t *testing.T) {
		t.Parallel()
		c := snap.CampaignByID(20)
		user := &decision.UserContext{
			ID:               "vip",
			ForcedVariations: map[string]string{"exp": "no-such-variation"},
		}
		v := decision.WhitelistedVariation(c, user)
		require.NotNil(t, v)
		assert.Equal(t, "treatment", v.Name)
	})
}

func TestAllocateVariation(t *testing.T) {
	t.Parallel()

	snap := parseSettings(t, `{
		"accountId": 1,
		"campaigns": [
			{"id": 30, "key": "split", "type": "EXPERIMENT", "status": "RUNNING", "percentTraffic": 100,
			 "variations": [
				{"id": 1, "name": "control", "weight": 50},
				{"id": 2, "name": "treatment", "weight": 50}
			 ]},
			{"id": 31, "key": "gated", "type": "EXPERIMENT", "status": "RUNNING", "percentTraffic": 0,
			 "variations": [{"id": 1, "name": "control", "weight": 100}]}
		]
	}`)

	t.Run("EveryAdmittedUserGetsExactlyOne", func(t *testing.T) {
		t.Parallel()
		c := snap.CampaignByID(30)
		seen := map[string]int{}
		for i := 0; i < 500; i++ {
			v := decision.AllocateVariation(c, fmt.Sprintf("user-%d", i))
			require.NotNil(t, v)
			seen[v.Name]++
		}
		assert.Positive(t, seen["control"])
		assert.Positive(t, seen["treatment"])
		assert.Equal(t, 500, seen["control"]+seen["treatment"])
	})

	t.Run("Deterministic", func(t *testing.T) {
		t.Parallel()
		c := snap.CampaignByID(30)
		first := decision.AllocateVariation(c, "sticky-user")
		require.NotNil(t, first)
		for i := 0; i < 20; i++ {
			again := decision.AllocateVariation(c, "sticky-user")
			require.NotNil(t, again)
			assert.Equal(t, first.ID, again.ID)
		}
	})

	t.Run("OutsideTrafficGetsNil", func(t *testing.T) {
		t.Parallel()
		c := snap.CampaignByID(31)
		assert.Nil(t, decision.AllocateVariation(c, "anyone"))
	})
}
