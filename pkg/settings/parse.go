package settings

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/dmitrymomot/flagkit/pkg/bucketer"
)

// Parse unmarshals a settings payload, computes variation bucket ranges and
// validates structural invariants. The returned snapshot is immutable.
func Parse(payload []byte) (*Settings, error) {
	var s Settings
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) normalize() error {
	s.campaignsByID = make(map[int]*Campaign, len(s.Campaigns))
	for _, c := range s.Campaigns {
		if c == nil {
			continue
		}
		c.allocateRanges()
		if err := c.validateRanges(); err != nil {
			return err
		}
		s.campaignsByID[c.ID] = c
	}

	s.featuresByKey = make(map[string]*Feature, len(s.Features))
	for _, f := range s.Features {
		if f == nil {
			continue
		}
		if f.Key == "" {
			return fmt.Errorf("%w: feature %d has no key", ErrInvalidSettings, f.ID)
		}
		if _, exists := s.featuresByKey[f.Key]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateFeatureKey, f.Key)
		}
		s.featuresByKey[f.Key] = f

		for _, r := range f.Rules {
			if s.campaignsByID[r.CampaignID] == nil {
				return fmt.Errorf("%w: feature %q rule points at campaign %d", ErrUnknownCampaign, f.Key, r.CampaignID)
			}
		}
	}

	for groupID, g := range s.Groups {
		if g == nil {
			continue
		}
		for _, id := range g.CampaignIDs {
			if s.campaignsByID[id] == nil {
				return fmt.Errorf("%w: group %q lists campaign %d", ErrUnknownCampaign, groupID, id)
			}
		}
	}
	return nil
}

// allocateRanges assigns each variation its contiguous slice of the 1..10000
// scale from its weight. Computed once per snapshot; with weights summing to
// 100 the slices tile the scale exactly.
func (c *Campaign) allocateRanges() {
	current := 0
	for _, v := range c.Variations {
		if v == nil {
			continue
		}
		step := int(math.Floor(v.Weight * 100))
		if step <= 0 {
			v.StartRange = 0
			v.EndRange = 0
			continue
		}
		v.StartRange = current + 1
		v.EndRange = current + step
		current += step
	}
}

func (c *Campaign) validateRanges() error {
	total := 0
	prevEnd := 0
	for _, v := range c.Variations {
		if v == nil || v.EndRange == 0 {
			continue
		}
		if v.StartRange != prevEnd+1 {
			return fmt.Errorf("%w: campaign %d variation %q range starts at %d, want %d",
				ErrInvalidSettings, c.ID, v.Name, v.StartRange, prevEnd+1)
		}
		total += v.EndRange - v.StartRange + 1
		prevEnd = v.EndRange
	}
	if total > bucketer.MaxBucketValue {
		return fmt.Errorf("%w: campaign %d variation ranges cover %d buckets", ErrInvalidSettings, c.ID, total)
	}
	return nil
}
