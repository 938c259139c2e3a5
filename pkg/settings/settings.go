package settings

import (
	"encoding/json"
	"strconv"
)

// RuleType distinguishes how a feature rule participates in evaluation.
type RuleType string

const (
	// RuleRollout gates whether the feature is enabled at all for a user.
	RuleRollout RuleType = "ROLLOUT"
	// RuleExperiment assigns a user to one of several variations for
	// measurement, evaluated only after rollout passes.
	RuleExperiment RuleType = "EXPERIMENT"
)

// CampaignType mirrors RuleType on the campaign object itself.
type CampaignType string

const (
	CampaignRollout    CampaignType = "ROLLOUT"
	CampaignExperiment CampaignType = "EXPERIMENT"
)

// CampaignStatus gates campaign eligibility; only running campaigns are
// ever evaluated.
type CampaignStatus string

const (
	StatusRunning CampaignStatus = "RUNNING"
	StatusPaused  CampaignStatus = "PAUSED"
)

// Election identifies the winner-election algorithm of a mutually exclusive
// group.
type Election int

const (
	// ElectionRandom picks the winner by equal-weight random bucketing
	// across eligible campaigns.
	ElectionRandom Election = 1
	// ElectionAdvanced walks an explicit priority order first and falls back
	// to weighted random bucketing.
	ElectionAdvanced Election = 2
)

// Settings is the root configuration snapshot. Immutable after Parse.
type Settings struct {
	AccountID int         `json:"accountId"`
	Version   string      `json:"version"`
	SDKKey    string      `json:"sdkKey,omitempty"`
	Campaigns []*Campaign `json:"campaigns"`
	Features  []*Feature  `json:"features"`
	// Groups maps group id to its definition.
	Groups map[string]*Group `json:"groups,omitempty"`
	// CampaignGroups maps campaign id (as a string, per the wire format) to
	// the id of the group it belongs to.
	CampaignGroups map[string]string `json:"campaignGroups,omitempty"`

	featuresByKey map[string]*Feature
	campaignsByID map[int]*Campaign
}

// Feature is a caller-facing flag: an ordered list of rules plus declared
// variable defaults and metrics.
type Feature struct {
	ID        int         `json:"id"`
	Key       string      `json:"key"`
	Name      string      `json:"name,omitempty"`
	Rules     []*Rule     `json:"rules"`
	Variables []*Variable `json:"variables,omitempty"`
	Metrics   []*Metric   `json:"metrics,omitempty"`
	// ImpactCampaign, when set, receives a holdout impression on every
	// evaluation regardless of the outcome.
	ImpactCampaign *ImpactCampaign `json:"impactCampaign,omitempty"`
}

// Rule links a feature to a campaign with an evaluation role.
type Rule struct {
	Type       RuleType `json:"type"`
	CampaignID int      `json:"campaignId"`
}

// Campaign is a rollout or experiment definition.
type Campaign struct {
	ID             int             `json:"id"`
	Key            string          `json:"key"`
	Name           string          `json:"name,omitempty"`
	Type           CampaignType    `json:"type"`
	Status         CampaignStatus  `json:"status"`
	PercentTraffic int             `json:"percentTraffic"`
	Variations     []*Variation    `json:"variations"`
	Segments       json.RawMessage `json:"segments,omitempty"`
	// IsAlwaysCheckSegment re-checks the audience on every evaluation,
	// including replays of stored sticky decisions.
	IsAlwaysCheckSegment     bool `json:"isAlwaysCheckSegment,omitempty"`
	IsForcedVariationEnabled bool `json:"isForcedVariationEnabled,omitempty"`
	// IsBucketingSeedEnabled salts the user-level traffic bucket with the
	// campaign id so traffic gates are independent across campaigns.
	IsBucketingSeedEnabled bool `json:"isBucketingSeedEnabled,omitempty"`
	// Whitelist maps user id to the variation id forced for that user.
	// Honored only when IsForcedVariationEnabled is set.
	Whitelist map[string]int `json:"whitelist,omitempty"`
}

// Variation owns a slice of the 1..10000 bucket scale plus its variable
// overrides. StartRange and EndRange are computed from Weight at parse time.
type Variation struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Weight     float64     `json:"weight"`
	StartRange int         `json:"startRangeVariation,omitempty"`
	EndRange   int         `json:"endRangeVariation,omitempty"`
	Variables  []*Variable `json:"variables,omitempty"`
}

// Variable is a typed key/value a feature exposes to the host application.
type Variable struct {
	ID    int    `json:"id,omitempty"`
	Key   string `json:"key"`
	Type  string `json:"type,omitempty"`
	Value any    `json:"value"`
}

// Metric names a conversion event a feature measures.
type Metric struct {
	ID        int    `json:"id,omitempty"`
	EventName string `json:"eventName"`
}

// ImpactCampaign identifies the holdout measurement campaign of a feature.
type ImpactCampaign struct {
	CampaignID int    `json:"campaignId"`
	Type       string `json:"type,omitempty"`
}

// Group is a set of mutually exclusive campaigns: at most one of them may be
// shown to any one user.
type Group struct {
	Name        string  `json:"name"`
	CampaignIDs []int   `json:"campaigns"`
	Election    Election `json:"et"`
	// Priority orders campaign ids for ElectionAdvanced; first eligible wins.
	Priority []int `json:"p,omitempty"`
	// Weights maps campaign id (string keyed, per the wire format) to its
	// election weight for the weighted-random fallback.
	Weights map[string]float64 `json:"wt,omitempty"`
}

// FeatureByKey returns the feature with the given key, or nil.
func (s *Settings) FeatureByKey(key string) *Feature {
	return s.featuresByKey[key]
}

// CampaignByID returns the campaign with the given id, or nil.
func (s *Settings) CampaignByID(id int) *Campaign {
	return s.campaignsByID[id]
}

// GroupForCampaign returns the mutually exclusive group a campaign belongs
// to along with its id, or ("", nil) when the campaign is not grouped.
func (s *Settings) GroupForCampaign(campaignID int) (string, *Group) {
	groupID, ok := s.CampaignGroups[strconv.Itoa(campaignID)]
	if !ok {
		return "", nil
	}
	return groupID, s.Groups[groupID]
}

// VariationByID returns the variation with the given id, or nil.
func (c *Campaign) VariationByID(id int) *Variation {
	for _, v := range c.Variations {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// VariationByName returns the variation with the given name, or nil.
func (c *Campaign) VariationByName(name string) *Variation {
	for _, v := range c.Variations {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Running reports whether the campaign is eligible for evaluation.
func (c *Campaign) Running() bool {
	return c.Status == StatusRunning
}

// MetricByEventName returns the metric with the given event name, or nil.
func (f *Feature) MetricByEventName(eventName string) *Metric {
	for _, m := range f.Metrics {
		if m.EventName == eventName {
			return m
		}
	}
	return nil
}

// RulesOfType returns the feature's rules of the given type in declared
// order. Rule order is significant: the first passing rule wins.
func (f *Feature) RulesOfType(t RuleType) []*Rule {
	rules := make([]*Rule, 0, len(f.Rules))
	for _, r := range f.Rules {
		if r.Type == t {
			rules = append(rules, r)
		}
	}
	return rules
}
