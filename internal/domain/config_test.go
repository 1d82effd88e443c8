package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultMaxRetries, cfg.Queue.MaxRetries)
	assert.Equal(t, DefaultRetryInterval, cfg.Queue.RetryInterval)
	assert.Equal(t, DefaultPollInterval, cfg.Queue.PollInterval)
	assert.Equal(t, DefaultConcurrency, cfg.Queue.Concurrency)
	assert.Equal(t, DefaultClaimTTL, cfg.Queue.ClaimTTL)
	assert.Equal(t, DefaultMetricsWindow, cfg.Metrics.Window)
	assert.NotEmpty(t, cfg.Storage.DataDir)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Queue: QueueConfig{
			MaxRetries:    2,
			RetryInterval: time.Second,
			PollInterval:  10 * time.Millisecond,
			Concurrency:   1,
		},
		Storage: StorageConfig{InMemory: true},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, 2, cfg.Queue.MaxRetries)
	assert.Equal(t, time.Second, cfg.Queue.RetryInterval)
	assert.True(t, cfg.Storage.InMemory)
	assert.Empty(t, cfg.Storage.DataDir)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := DefaultConfig()
	bad.Queue.Concurrency = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = DefaultConfig()
	bad.Queue.MaxRetries = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = DefaultConfig()
	bad.Queue.ClaimTTL = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = DefaultConfig()
	bad.Storage.DataDir = ""
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}
