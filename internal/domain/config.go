package domain

import (
	"fmt"
	"time"
)

// Defaults tolerate transient downstream outages without unbounded queue
// growth.
const (
	DefaultMaxRetries    = 7
	DefaultRetryInterval = 2 * time.Minute
	DefaultPollInterval  = 50 * time.Millisecond
	DefaultConcurrency   = 4
	DefaultClaimTTL      = 5 * time.Minute
	DefaultMetricsWindow = 60 * time.Second
)

type QueueConfig struct {
	MaxRetries    int           `json:"max_retries" mapstructure:"max_retries"`
	RetryInterval time.Duration `json:"retry_interval" mapstructure:"retry_interval"`
	PollInterval  time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	Concurrency   int           `json:"concurrency" mapstructure:"concurrency"`
	ClaimTTL      time.Duration `json:"claim_ttl" mapstructure:"claim_ttl"`
}

type MetricsConfig struct {
	Window time.Duration `json:"window" mapstructure:"window"`
}

type StorageConfig struct {
	DataDir  string `json:"data_dir" mapstructure:"data_dir"`
	InMemory bool   `json:"in_memory" mapstructure:"in_memory"`
}

type Config struct {
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	Queue   QueueConfig   `json:"queue" mapstructure:"queue"`
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Queue: QueueConfig{
			MaxRetries:    DefaultMaxRetries,
			RetryInterval: DefaultRetryInterval,
			PollInterval:  DefaultPollInterval,
			Concurrency:   DefaultConcurrency,
			ClaimTTL:      DefaultClaimTTL,
		},
		Metrics: MetricsConfig{
			Window: DefaultMetricsWindow,
		},
	}
}

func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Storage.DataDir == "" && !c.Storage.InMemory {
		c.Storage.DataDir = defaults.Storage.DataDir
	}
	if c.Queue.MaxRetries == 0 {
		c.Queue.MaxRetries = defaults.Queue.MaxRetries
	}
	if c.Queue.RetryInterval == 0 {
		c.Queue.RetryInterval = defaults.Queue.RetryInterval
	}
	if c.Queue.PollInterval == 0 {
		c.Queue.PollInterval = defaults.Queue.PollInterval
	}
	if c.Queue.Concurrency == 0 {
		c.Queue.Concurrency = defaults.Queue.Concurrency
	}
	if c.Queue.ClaimTTL == 0 {
		c.Queue.ClaimTTL = defaults.Queue.ClaimTTL
	}
	if c.Metrics.Window == 0 {
		c.Metrics.Window = defaults.Metrics.Window
	}
}

func (c *Config) Validate() error {
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("%w: queue.max_retries must not be negative", ErrInvalidConfig)
	}
	if c.Queue.RetryInterval < 0 {
		return fmt.Errorf("%w: queue.retry_interval must not be negative", ErrInvalidConfig)
	}
	if c.Queue.PollInterval <= 0 {
		return fmt.Errorf("%w: queue.poll_interval must be positive", ErrInvalidConfig)
	}
	if c.Queue.Concurrency <= 0 {
		return fmt.Errorf("%w: queue.concurrency must be positive", ErrInvalidConfig)
	}
	if c.Queue.ClaimTTL <= 0 {
		return fmt.Errorf("%w: queue.claim_ttl must be positive", ErrInvalidConfig)
	}
	if c.Metrics.Window <= 0 {
		return fmt.Errorf("%w: metrics.window must be positive", ErrInvalidConfig)
	}
	if !c.Storage.InMemory && c.Storage.DataDir == "" {
		return fmt.Errorf("%w: storage.data_dir is required for persistent storage", ErrInvalidConfig)
	}
	return nil
}
