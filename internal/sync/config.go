package sync

import (
	"time"

	"github.com/vistrive/assetnext/internal/config"
)

// Config controls the sync scheduler loop.
type Config struct {
	RunInterval time.Duration
	Enabled     bool
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 10 * time.Minute,
		Enabled:     true,
	}
}

func (c Config) withDefaults() Config {
	if c.RunInterval <= 0 {
		c.RunInterval = DefaultConfig().RunInterval
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.SyncInterval,
		Enabled:     cfg.SyncEnabled,
	}.withDefaults()
}
