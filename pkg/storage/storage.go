package storage

import (
	"context"
	"fmt"
)

// Record is the persisted outcome of one feature evaluation for one user.
// Either or both of the rollout and experiment assignments may be present.
type Record struct {
	FeatureKey string `json:"featureKey"`
	UserID     string `json:"userId"`

	RolloutID          int    `json:"rolloutId,omitempty"`
	RolloutKey         string `json:"rolloutKey,omitempty"`
	RolloutVariationID int    `json:"rolloutVariationId,omitempty"`

	ExperimentID          int    `json:"experimentId,omitempty"`
	ExperimentKey         string `json:"experimentKey,omitempty"`
	ExperimentVariationID int    `json:"experimentVariationId,omitempty"`
}

// HasRollout reports whether the record carries a rollout assignment.
func (r *Record) HasRollout() bool {
	return r.RolloutKey != "" || r.RolloutVariationID != 0
}

// HasExperiment reports whether the record carries an experiment assignment.
func (r *Record) HasExperiment() bool {
	return r.ExperimentKey != "" || r.ExperimentVariationID != 0
}

// Validate checks the invariants a record must satisfy before being written:
// both identifying keys present, and every assignment fully specified.
func (r *Record) Validate() error {
	if r == nil {
		return ErrInvalidRecord
	}
	if r.FeatureKey == "" {
		return fmt.Errorf("%w: missing feature key", ErrInvalidRecord)
	}
	if r.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidRecord)
	}
	if r.HasRollout() && (r.RolloutKey == "" || r.RolloutVariationID == 0) {
		return fmt.Errorf("%w: rollout for feature %q", ErrIncompleteAssignment, r.FeatureKey)
	}
	if r.HasExperiment() && (r.ExperimentKey == "" || r.ExperimentVariationID == 0) {
		return fmt.Errorf("%w: experiment for feature %q", ErrIncompleteAssignment, r.FeatureKey)
	}
	return nil
}

// Reader looks up previously stored decisions. Implementations return
// ErrNotFound for a missing pair, never a nil record with a nil error.
type Reader interface {
	Get(ctx context.Context, featureKey, userID string) (*Record, error)
}

// Writer persists decisions. Implementations must reject records that fail
// Validate.
type Writer interface {
	Set(ctx context.Context, record *Record) error
}

// Store combines both directions of decision persistence.
type Store interface {
	Reader
	Writer
}
