package flagkit

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/decision"
	"github.com/dmitrymomot/flagkit/pkg/gateway"
	"github.com/dmitrymomot/flagkit/pkg/settings"
	"github.com/dmitrymomot/flagkit/pkg/storage"
)

// Option configures a Client.
type Option func(*Client)

// WithSettings seeds the client with an already parsed snapshot, e.g. one
// bundled with the application or loaded from a file.
func WithSettings(snap *settings.Settings) Option {
	return func(c *Client) {
		if snap != nil {
			c.settings.Store(snap)
		}
	}
}

// WithSource sets where Refresh and the background poller fetch settings
// from.
func WithSource(source settings.Source) Option {
	return func(c *Client) {
		c.source = source
	}
}

// WithStore enables sticky decisions: evaluated assignments are persisted
// and replayed on later calls for the same feature and user.
func WithStore(store storage.Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithTracker routes analytics impressions to the given tracker, typically
// an events.Dispatcher. Without it impressions are silently skipped.
func WithTracker(tracker decision.Tracker) Option {
	return func(c *Client) {
		c.tracker = tracker
	}
}

// WithResolver enables location and device attribute resolution for
// campaigns whose segments need it.
func WithResolver(resolver gateway.Resolver) Option {
	return func(c *Client) {
		c.resolver = resolver
	}
}

// WithPollInterval sets how often Start refreshes settings. Values below
// one second are raised to one second.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval < time.Second {
			interval = time.Second
		}
		c.pollInterval = interval
	}
}

// WithLogger sets the diagnostics logger. Nil discards diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}
