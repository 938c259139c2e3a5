package flagkit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/decision"
	"github.com/dmitrymomot/flagkit/pkg/events"
	"github.com/dmitrymomot/flagkit/pkg/gateway"
	"github.com/dmitrymomot/flagkit/pkg/settings"
	"github.com/dmitrymomot/flagkit/pkg/storage"
)

const defaultPollInterval = time.Minute

// Client is the SDK entry point: it holds the current settings snapshot and
// evaluates flags, tracks conversions and syncs visitor attributes against
// it. Safe for concurrent use; snapshot swaps are atomic and in-flight
// evaluations keep the snapshot they started with.
type Client struct {
	settings atomic.Pointer[settings.Settings]
	source   settings.Source
	store    storage.Store
	tracker  decision.Tracker
	resolver gateway.Resolver
	orch     *decision.Orchestrator
	log      *slog.Logger

	pollInterval time.Duration
	pollStop     context.CancelFunc
	pollDone     chan struct{}
	pollOnce     sync.Once
}

// New creates a client. At least one of WithSettings and WithSource must be
// given, otherwise the client could never evaluate anything.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		log:          slog.New(slog.DiscardHandler),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.settings.Load() == nil && c.source == nil {
		return nil, ErrNoSettings
	}
	c.orch = decision.NewOrchestrator(
		decision.WithStore(c.store),
		decision.WithTracker(c.tracker),
		decision.WithResolver(c.resolver),
		decision.WithLogger(c.log),
	)
	return c, nil
}

// Settings returns the current snapshot, or nil before the first load.
func (c *Client) Settings() *settings.Settings {
	return c.settings.Load()
}

// UpdateSettings parses a raw payload and atomically swaps it in.
func (c *Client) UpdateSettings(payload []byte) error {
	snap, err := settings.Parse(payload)
	if err != nil {
		return err
	}
	c.settings.Store(snap)
	c.log.Info("settings updated", "account_id", snap.AccountID, "version", snap.Version)
	return nil
}

// Refresh fetches a fresh snapshot from the configured source and swaps it
// in. The previous snapshot stays active when the fetch fails.
func (c *Client) Refresh(ctx context.Context) error {
	if c.source == nil {
		return ErrNoSource
	}
	snap, err := c.source.Fetch(ctx)
	if err != nil {
		return err
	}
	c.settings.Store(snap)
	c.log.Info("settings refreshed", "account_id", snap.AccountID, "version", snap.Version)
	return nil
}

// Start launches the background settings poller. The first fetch happens
// immediately; failures are logged and retried on the next tick. Start is
// idempotent and returns ErrNoSource when there is nothing to poll.
func (c *Client) Start(ctx context.Context) error {
	if c.source == nil {
		return ErrNoSource
	}
	c.pollOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		c.pollStop = cancel
		c.pollDone = make(chan struct{})
		go c.poll(ctx)
	})
	return nil
}

// Close stops the background poller, if running. It does not close injected
// collaborators; the caller owns the dispatcher and store lifecycles.
func (c *Client) Close() {
	if c.pollStop != nil {
		c.pollStop()
		<-c.pollDone
	}
}

func (c *Client) poll(ctx context.Context) {
	defer close(c.pollDone)

	if err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
		c.log.Warn("initial settings fetch failed", "error", err)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.log.Warn("settings refresh failed", "error", err)
			}
		}
	}
}

// GetFlag evaluates a feature for a user. It never returns an error: an
// unknown feature, missing snapshot or any internal failure yields a
// disabled flag.
func (c *Client) GetFlag(ctx context.Context, featureKey string, user *decision.UserContext) *decision.Flag {
	return c.orch.GetFlag(ctx, c.settings.Load(), featureKey, user)
}

// Track reports a conversion event for a user. One impression is emitted per
// feature declaring a metric with this event name, carrying the user's
// stored campaign and variation assignment for that feature so the
// conversion attributes to the variation the user actually saw. Returns
// false without an error when no feature declares the event; such events are
// dropped rather than sent.
func (c *Client) Track(ctx context.Context, eventName string, user *decision.UserContext, properties map[string]any) (bool, error) {
	if eventName == "" {
		return false, ErrMissingEventName
	}
	if user == nil || user.ID == "" {
		return false, ErrMissingUserID
	}
	snap := c.settings.Load()
	if snap == nil {
		return false, ErrNoSettings
	}

	matched := false
	for _, f := range snap.Features {
		if f == nil || f.MetricByEventName(eventName) == nil {
			continue
		}
		matched = true

		imp := events.Impression{
			EventName:  eventName,
			AccountID:  snap.AccountID,
			UserID:     user.ID,
			Properties: properties,
		}
		if rec := c.storedDecision(ctx, f.Key, user.ID); rec != nil {
			// Experiment assignments take precedence for attribution; a
			// rollout-only record still names the campaign shown.
			switch {
			case rec.HasExperiment():
				imp.CampaignID = rec.ExperimentID
				imp.VariationID = rec.ExperimentVariationID
			case rec.HasRollout():
				imp.CampaignID = rec.RolloutID
				imp.VariationID = rec.RolloutVariationID
			}
		}
		c.emit(imp)
	}

	if !matched {
		c.log.Warn("event not declared by any feature metric, dropping",
			"event", eventName, "user_id", user.ID)
		return false, nil
	}
	return true, nil
}

func (c *Client) storedDecision(ctx context.Context, featureKey, userID string) *storage.Record {
	if c.store == nil {
		return nil
	}
	rec, err := c.store.Get(ctx, featureKey, userID)
	if err != nil {
		return nil
	}
	return rec
}

// SetAttribute syncs visitor attributes to the analytics backend so they can
// be used for post-hoc segmentation of results.
func (c *Client) SetAttribute(ctx context.Context, user *decision.UserContext, attributes map[string]any) error {
	if user == nil || user.ID == "" {
		return ErrMissingUserID
	}
	snap := c.settings.Load()
	if snap == nil {
		return ErrNoSettings
	}

	c.emit(events.Impression{
		EventName:  events.EventSyncVisitorProp,
		AccountID:  snap.AccountID,
		UserID:     user.ID,
		Properties: attributes,
	})
	return nil
}

func (c *Client) emit(imp events.Impression) {
	if c.tracker == nil {
		return
	}
	if err := c.tracker.Dispatch(imp); err != nil {
		c.log.Warn("impression dispatch failed", "event", imp.EventName, "error", err)
	}
}
