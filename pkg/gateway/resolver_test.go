package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/gateway"
	"github.com/dmitrymomot/flagkit/pkg/segment"
)

const chromeOnWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestHTTPResolver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("ResolvesLocationAndDevice", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/resolve", r.URL.Path)

			var req gateway.Request
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "203.0.113.7", req.IP)

			_ = json.NewEncoder(w).Encode(gateway.Resolved{
				Location: &segment.Location{Country: "DE", Region: "BE", City: "Berlin"},
				Device:   &segment.Device{Type: "desktop", OS: "Windows"},
			})
		}))
		defer srv.Close()

		resolver := gateway.NewHTTPResolver(srv.URL)
		resolved, err := resolver.Resolve(ctx, gateway.Request{IP: "203.0.113.7", UserAgent: chromeOnWindows})
		require.NoError(t, err)
		require.NotNil(t, resolved.Location)
		assert.Equal(t, "Berlin", resolved.Location.City)
		require.NotNil(t, resolved.Device)
		assert.Equal(t, "desktop", resolved.Device.Type)
	})

	t.Run("FillsDeviceLocallyWhenGatewayOmitsIt", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(gateway.Resolved{
				Location: &segment.Location{Country: "US"},
			})
		}))
		defer srv.Close()

		resolver := gateway.NewHTTPResolver(srv.URL)
		resolved, err := resolver.Resolve(ctx, gateway.Request{UserAgent: chromeOnWindows})
		require.NoError(t, err)
		require.NotNil(t, resolved.Device)
		assert.Equal(t, "desktop", resolved.Device.Type)
		assert.Equal(t, "Chrome", resolved.Device.Browser)
	})

	t.Run("NonSuccessStatus", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}))
		defer srv.Close()

		resolver := gateway.NewHTTPResolver(srv.URL)
		_, err := resolver.Resolve(ctx, gateway.Request{IP: "203.0.113.7"})
		assert.ErrorIs(t, err, gateway.ErrResolveFailed)
	})

	t.Run("EmptyBaseURL", func(t *testing.T) {
		t.Parallel()
		resolver := gateway.NewHTTPResolver("")
		_, err := resolver.Resolve(ctx, gateway.Request{IP: "203.0.113.7"})
		assert.ErrorIs(t, err, gateway.ErrNoGateway)
	})
}

func TestLocalResolver(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	resolver := gateway.NewLocalResolver()

	t.Run("ParsesUserAgent", func(t *testing.T) {
		t.Parallel()
		resolved, err := resolver.Resolve(ctx, gateway.Request{UserAgent: chromeOnWindows})
		require.NoError(t, err)
		assert.Nil(t, resolved.Location)
		require.NotNil(t, resolved.Device)
		assert.Equal(t, "desktop", resolved.Device.Type)
		assert.Equal(t, "Windows", resolved.Device.OS)
		assert.Equal(t, chromeOnWindows, resolved.Device.UserAgent)
	})

	t.Run("EmptyUserAgent", func(t *testing.T) {
		t.Parallel()
		resolved, err := resolver.Resolve(ctx, gateway.Request{})
		require.NoError(t, err)
		assert.Nil(t, resolved.Device)
	})
}
