package flagkit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit"
	"github.com/dmitrymomot/flagkit/pkg/decision"
	"github.com/dmitrymomot/flagkit/pkg/events"
	"github.com/dmitrymomot/flagkit/pkg/settings"
	"github.com/dmitrymomot/flagkit/pkg/storage"
)

const clientSettings = `{
	"accountId": 42,
	"version": "7",
	"campaigns": [
		{"id": 1, "key": "promo-rollout", "type": "ROLLOUT", "status": "RUNNING", "percentTraffic": 100,
		 "variations": [{"id": 1, "name": "on", "weight": 100}]}
	],
	"features": [
		{"id": 100, "key": "promo",
		 "variables": [{"key": "banner", "value": "hello"}],
		 "metrics": [{"id": 1, "eventName": "purchase"}],
		 "rules": [{"type": "ROLLOUT", "campaignId": 1}]}
	]
}`

type trackerStub struct {
	mu   sync.Mutex
	imps []events.Impression
}

func (s *trackerStub) Dispatch(imp events.Impression) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imps = append(s.imps, imp)
	return nil
}

func (s *trackerStub) impressions() []events.Impression {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Impression(nil), s.imps...)
}

func parsedSettings(t *testing.T) *settings.Settings {
	t.Helper()
	snap, err := settings.Parse([]byte(clientSettings))
	require.NoError(t, err)
	return snap
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("RequiresSettingsOrSource", func(t *testing.T) {
		t.Parallel()
		_, err := flagkit.New()
		assert.ErrorIs(t, err, flagkit.ErrNoSettings)
	})

	t.Run("SeededSettings", func(t *testing.T) {
		t.Parallel()
		client, err := flagkit.New(flagkit.WithSettings(parsedSettings(t)))
		require.NoError(t, err)
		require.NotNil(t, client.Settings())
		assert.Equal(t, 42, client.Settings().AccountID)
	})
}

func TestClientGetFlag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	client, err := flagkit.New(flagkit.WithSettings(parsedSettings(t)))
	require.NoError(t, err)

	t.Run("Enabled", func(t *testing.T) {
		t.Parallel()
		flag := client.GetFlag(ctx, "promo", &decision.UserContext{ID: "user-1"})
		assert.True(t, flag.Enabled)
		assert.Equal(t, "hello", flag.Variable("banner", ""))
	})

	t.Run("UnknownFeature", func(t *testing.T) {
		t.Parallel()
		flag := client.GetFlag(ctx, "nope", &decision.UserContext{ID: "user-1"})
		assert.False(t, flag.Enabled)
	})
}

func TestClientTrack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newClient := func(t *testing.T) (*flagkit.Client, *trackerStub) {
		t.Helper()
		tracker := &trackerStub{}
		client, err := flagkit.New(
			flagkit.WithSettings(parsedSettings(t)),
			flagkit.WithTracker(tracker),
		)
		require.NoError(t, err)
		return client, tracker
	}

	t.Run("RegisteredEvent", func(t *testing.T) {
		t.Parallel()
		client, tracker := newClient(t)
		ok, err := client.Track(ctx, "purchase", &decision.UserContext{ID: "user-1"}, map[string]any{"amount": 42})
		require.NoError(t, err)
		assert.True(t, ok)

		imps := tracker.impressions()
		require.Len(t, imps, 1)
		assert.Equal(t, "purchase", imps[0].EventName)
		assert.Equal(t, 42, imps[0].AccountID)
		assert.Equal(t, map[string]any{"amount": 42}, imps[0].Properties)
	})

	t.Run("AttributesStoredAssignment", func(t *testing.T) {
		t.Parallel()
		tracker := &trackerStub{}
		store := storage.NewMemoryStore()
		client, err := flagkit.New(
			flagkit.WithSettings(parsedSettings(t)),
			flagkit.WithTracker(tracker),
			flagkit.WithStore(store),
		)
		require.NoError(t, err)

		user := &decision.UserContext{ID: "user-1"}
		flag := client.GetFlag(ctx, "promo", user)
		require.True(t, flag.Enabled)

		ok, err := client.Track(ctx, "purchase", user, nil)
		require.NoError(t, err)
		assert.True(t, ok)

		imps := tracker.impressions()
		require.Len(t, imps, 1)
		assert.Equal(t, 1, imps[0].CampaignID)
		assert.Equal(t, 1, imps[0].VariationID)
	})

	t.Run("OneImpressionPerMatchingFeature", func(t *testing.T) {
		t.Parallel()
		snap, err := settings.Parse([]byte(`{
			"accountId": 42,
			"campaigns": [
				{"id": 1, "key": "r1", "type": "ROLLOUT", "status": "RUNNING", "percentTraffic": 100,
				 "variations": [{"id": 1, "name": "on", "weight": 100}]},
				{"id": 2, "key": "r2", "type": "ROLLOUT", "status": "RUNNING", "percentTraffic": 100,
				 "variations": [{"id": 1, "name": "on", "weight": 100}]}
			],
			"features": [
				{"id": 100, "key": "alpha",
				 "metrics": [{"id": 1, "eventName": "purchase"}],
				 "rules": [{"type": "ROLLOUT", "campaignId": 1}]},
				{"id": 101, "key": "beta",
				 "metrics": [{"id": 2, "eventName": "purchase"}],
				 "rules": [{"type": "ROLLOUT", "campaignId": 2}]}
			]
		}`))
		require.NoError(t, err)

		tracker := &trackerStub{}
		store := storage.NewMemoryStore()
		client, err := flagkit.New(
			flagkit.WithSettings(snap),
			flagkit.WithTracker(tracker),
			flagkit.WithStore(store),
		)
		require.NoError(t, err)

		user := &decision.UserContext{ID: "user-1"}
		require.True(t, client.GetFlag(ctx, "alpha", user).Enabled)
		require.True(t, client.GetFlag(ctx, "beta", user).Enabled)

		ok, err := client.Track(ctx, "purchase", user, nil)
		require.NoError(t, err)
		assert.True(t, ok)

		imps := tracker.impressions()
		require.Len(t, imps, 2)
		campaigns := []int{imps[0].CampaignID, imps[1].CampaignID}
		assert.ElementsMatch(t, []int{1, 2}, campaigns)
	})

	t.Run("UnregisteredEventDropped", func(t *testing.T) {
		t.Parallel()
		client, tracker := newClient(t)
		ok, err := client.Track(ctx, "no-such-event", &decision.UserContext{ID: "user-1"}, nil)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, tracker.impressions())
	})

	t.Run("Preconditions", func(t *testing.T) {
		t.Parallel()
		client, _ := newClient(t)
		_, err := client.Track(ctx, "", &decision.UserContext{ID: "user-1"}, nil)
		assert.ErrorIs(t, err, flagkit.ErrMissingEventName)
		_, err = client.Track(ctx, "purchase", &decision.UserContext{}, nil)
		assert.ErrorIs(t, err, flagkit.ErrMissingUserID)
		_, err = client.Track(ctx, "purchase", nil, nil)
		assert.ErrorIs(t, err, flagkit.ErrMissingUserID)
	})
}

func TestClientSetAttribute(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tracker := &trackerStub{}
	client, err := flagkit.New(
		flagkit.WithSettings(parsedSettings(t)),
		flagkit.WithTracker(tracker),
	)
	require.NoError(t, err)

	require.NoError(t, client.SetAttribute(ctx, &decision.UserContext{ID: "user-1"}, map[string]any{"plan": "pro"}))
	assert.ErrorIs(t, client.SetAttribute(ctx, &decision.UserContext{}, nil), flagkit.ErrMissingUserID)

	imps := tracker.impressions()
	require.Len(t, imps, 1)
	assert.Equal(t, events.EventSyncVisitorProp, imps[0].EventName)
	assert.Equal(t, map[string]any{"plan": "pro"}, imps[0].Properties)
}

func TestClientRefresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/settings", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("accountId"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(clientSettings))
	}))
	t.Cleanup(srv.Close)

	client, err := flagkit.New(
		flagkit.WithSource(settings.NewHTTPSource(srv.URL, 42, "sdk-key")),
	)
	require.NoError(t, err)
	require.Nil(t, client.Settings())

	require.NoError(t, client.Refresh(ctx))
	require.NotNil(t, client.Settings())
	assert.Equal(t, "7", client.Settings().Version)

	flag := client.GetFlag(ctx, "promo", &decision.UserContext{ID: "user-1"})
	assert.True(t, flag.Enabled)
}

func TestClientRefreshNoSource(t *testing.T) {
	t.Parallel()
	client, err := flagkit.New(flagkit.WithSettings(parsedSettings(t)))
	require.NoError(t, err)
	assert.ErrorIs(t, client.Refresh(context.Background()), flagkit.ErrNoSource)
	assert.ErrorIs(t, client.Start(context.Background()), flagkit.ErrNoSource)
}

func TestClientStartPolls(t *testing.T) {
	t.Parallel()

	fetched := make(chan struct{}, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case fetched <- struct{}{}:
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(clientSettings))
	}))
	t.Cleanup(srv.Close)

	client, err := flagkit.New(
		flagkit.WithSource(settings.NewHTTPSource(srv.URL, 42, "sdk-key")),
		flagkit.WithPollInterval(time.Second),
	)
	require.NoError(t, err)

	require.NoError(t, client.Start(context.Background()))
	t.Cleanup(client.Close)

	select {
	case <-fetched:
	case <-time.After(5 * time.Second):
		t.Fatal("initial settings fetch never happened")
	}

	require.Eventually(t, func() bool {
		return client.Settings() != nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 42, client.Settings().AccountID)
}
