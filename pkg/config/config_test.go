package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/config"
)

type testConfig struct {
	AccountID int    `env:"TEST_FLAGKIT_ACCOUNT_ID" envDefault:"0"`
	SDKKey    string `env:"TEST_FLAGKIT_SDK_KEY" envDefault:"default-key"`
	Required  string `env:"TEST_FLAGKIT_REQUIRED,required"`
}

func TestLoad(t *testing.T) {
	t.Run("ParsesEnvironment", func(t *testing.T) {
		t.Setenv("TEST_FLAGKIT_ACCOUNT_ID", "1001")
		t.Setenv("TEST_FLAGKIT_REQUIRED", "present")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 1001, cfg.AccountID)
		assert.Equal(t, "default-key", cfg.SDKKey)
		assert.Equal(t, "present", cfg.Required)
	})

	t.Run("MissingRequired", func(t *testing.T) {
		var cfg testConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("NilPointer", func(t *testing.T) {
		var cfg *testConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("MustLoadPanics", func(t *testing.T) {
		assert.Panics(t, func() {
			var cfg testConfig
			config.MustLoad(&cfg)
		})
	})
}
