package flagkit

import (
	"context"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/config"
	"github.com/dmitrymomot/flagkit/pkg/events"
	"github.com/dmitrymomot/flagkit/pkg/gateway"
	"github.com/dmitrymomot/flagkit/pkg/settings"
	"github.com/dmitrymomot/flagkit/pkg/storage"
)

// Config assembles a fully wired client from the environment. Load it with
// pkg/config and pass it to NewFromConfig.
type Config struct {
	AccountID int    `env:"FLAGKIT_ACCOUNT_ID,required"`
	SDKKey    string `env:"FLAGKIT_SDK_KEY,required"`

	// SettingsURL is the config delivery base URL.
	SettingsURL string `env:"FLAGKIT_SETTINGS_URL,required"`
	// EventsURL receives impression batches. Empty disables tracking.
	EventsURL string `env:"FLAGKIT_EVENTS_URL"`
	// GatewayURL resolves location and device attributes. Empty falls back
	// to local user-agent parsing only.
	GatewayURL string `env:"FLAGKIT_GATEWAY_URL"`

	PollInterval time.Duration `env:"FLAGKIT_POLL_INTERVAL" envDefault:"1m"`

	// StickyDecisions persists assignments in Redis using the
	// FLAGKIT_REDIS_* settings. Off by default; without it decisions are
	// still deterministic but not pinned across settings changes.
	StickyDecisions bool `env:"FLAGKIT_STICKY_DECISIONS" envDefault:"false"`
}

// NewFromConfig wires up a client with an HTTP settings source and, where
// configured, an HTTP event sink, a gateway resolver and a Redis decision
// store. Explicit options run last and may override any wired collaborator.
// The returned dispatcher is nil when EventsURL is empty; when present the
// caller must Close it on shutdown.
func NewFromConfig(ctx context.Context, cfg Config, opts ...Option) (*Client, *events.Dispatcher, error) {
	base := []Option{
		WithSource(settings.NewHTTPSource(cfg.SettingsURL, cfg.AccountID, cfg.SDKKey)),
		WithPollInterval(cfg.PollInterval),
	}

	var dispatcher *events.Dispatcher
	if cfg.EventsURL != "" {
		dispatcher = events.NewDispatcher(events.NewHTTPSink(cfg.EventsURL), nil)
		base = append(base, WithTracker(dispatcher))
	}

	if cfg.GatewayURL != "" {
		base = append(base, WithResolver(gateway.NewHTTPResolver(cfg.GatewayURL)))
	} else {
		base = append(base, WithResolver(gateway.NewLocalResolver()))
	}

	if cfg.StickyDecisions {
		var redisCfg storage.Config
		if err := loadRedisConfig(&redisCfg); err != nil {
			return nil, nil, err
		}
		store, err := storage.Connect(ctx, redisCfg)
		if err != nil {
			return nil, nil, err
		}
		base = append(base, WithStore(store))
	}

	client, err := New(append(base, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return client, dispatcher, nil
}

func loadRedisConfig(cfg *storage.Config) error {
	return config.Load(cfg)
}
