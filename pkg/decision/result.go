package decision

import "github.com/dmitrymomot/flagkit/pkg/settings"

// Flag is the materialized decision for one feature and one user. It is a
// plain value the caller can keep; nothing in it references the settings
// snapshot it was computed from.
type Flag struct {
	// Enabled reports whether the feature is on for this user.
	Enabled bool

	// Variables are the effective variable values: feature defaults
	// overridden by the assigned rollout variation, then by the assigned
	// experiment variation.
	Variables []*settings.Variable

	// RolloutKey and RolloutVariation identify the rollout campaign and
	// variation that enabled the flag, when one did.
	RolloutKey       string
	RolloutVariation string

	// ExperimentKey and ExperimentVariation identify the experiment
	// assignment, when one was made.
	ExperimentKey       string
	ExperimentVariation string
}

// Variable returns the effective value for a variable key, or fallback when
// the feature does not declare it.
func (f *Flag) Variable(key string, fallback any) any {
	for _, v := range f.Variables {
		if v.Key == key {
			return v.Value
		}
	}
	return fallback
}

// mergeVariables layers variable sets left to right: later sets override
// earlier ones by key. Declaration order of the first occurrence of each
// key is preserved.
func mergeVariables(layers ...[]*settings.Variable) []*settings.Variable {
	merged := make([]*settings.Variable, 0)
	index := make(map[string]int)
	for _, layer := range layers {
		for _, v := range layer {
			if v == nil {
				continue
			}
			if i, ok := index[v.Key]; ok {
				merged[i] = v
				continue
			}
			index[v.Key] = len(merged)
			merged = append(merged, v)
		}
	}
	return merged
}
