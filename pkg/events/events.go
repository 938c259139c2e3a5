package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Well-known event names emitted by the decision engine.
const (
	// EventVariationShown records that a user was assigned a variation.
	EventVariationShown = "vwo_variation_shown"
	// EventSyncVisitorProp records a visitor attribute update.
	EventSyncVisitorProp = "vwo_sync_visitor_prop"
)

// Impression is one analytics event. CampaignID and VariationID are zero for
// events that are not tied to an assignment (e.g. attribute syncs).
type Impression struct {
	ID          uuid.UUID      `json:"id"`
	EventName   string         `json:"eventName"`
	AccountID   int            `json:"accountId"`
	UserID      string         `json:"userId"`
	CampaignID  int            `json:"campaignId,omitempty"`
	VariationID int            `json:"variationId,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Sink receives batches of impressions. Implementations must be safe for
// use from a single worker goroutine; they are never called concurrently by
// the dispatcher.
type Sink interface {
	Send(ctx context.Context, batch []Impression) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, batch []Impression) error

// Send calls the function.
func (f SinkFunc) Send(ctx context.Context, batch []Impression) error {
	return f(ctx, batch)
}
