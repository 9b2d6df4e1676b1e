package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SyncTuning carries operator-adjustable knobs for the inventory sync engine.
// It lives in sync.yml so it can be changed without a redeploy.
type SyncTuning struct {
	PageSize        int           `mapstructure:"pageSize"`
	RequestTimeout  time.Duration `mapstructure:"requestTimeout"`
	IdentityScanCap int           `mapstructure:"identityScanCap"`
	DisabledTenants []string      `mapstructure:"disabledTenants"`
}

func DefaultSyncTuning() SyncTuning {
	return SyncTuning{
		PageSize:        500,
		RequestTimeout:  30 * time.Second,
		IdentityScanCap: 1000,
	}
}

// SyncTuningHolder exposes the current tuning and hot-reloads sync.yml.
type SyncTuningHolder struct {
	current atomic.Value // holds SyncTuning
}

func NewSyncTuningHolder() (*SyncTuningHolder, error) {
	v := viper.New()

	v.SetConfigName("sync")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/assetnext/config") // Volume-mounted config
	v.AddConfigPath("/etc/assetnext")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	v.SetEnvPrefix("ASSETNEXT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultSyncTuning()
		v.SetDefault("sync.pageSize", defaults.PageSize)
		v.SetDefault("sync.requestTimeout", defaults.RequestTimeout)
		v.SetDefault("sync.identityScanCap", defaults.IdentityScanCap)
	}

	var tuning SyncTuning
	if err := v.UnmarshalKey("sync", &tuning); err != nil {
		return nil, err
	}
	tuning = tuning.withDefaults()
	if err := validateSyncTuning(tuning); err != nil {
		return nil, err
	}

	holder := &SyncTuningHolder{}
	holder.current.Store(tuning)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SyncTuning
		if err := v.UnmarshalKey("sync", &updated); err != nil {
			log.Printf("[sync-config] reload failed: %v", err)
			return
		}
		updated = updated.withDefaults()
		if err := validateSyncTuning(updated); err != nil {
			log.Printf("[sync-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[sync-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticSyncTuningHolder wraps a fixed tuning snapshot, with no file
// watching. Used by tests and embedded setups.
func NewStaticSyncTuningHolder(tuning SyncTuning) *SyncTuningHolder {
	holder := &SyncTuningHolder{}
	holder.current.Store(tuning.withDefaults())
	return holder
}

// Current returns the active tuning snapshot.
func (h *SyncTuningHolder) Current() SyncTuning {
	if h == nil {
		return DefaultSyncTuning()
	}
	if tuning, ok := h.current.Load().(SyncTuning); ok {
		return tuning
	}
	return DefaultSyncTuning()
}

// TenantDisabled reports whether a tenant slug is excluded from sync.
func (h *SyncTuningHolder) TenantDisabled(slug string) bool {
	for _, disabled := range h.Current().DisabledTenants {
		if strings.EqualFold(strings.TrimSpace(disabled), slug) {
			return true
		}
	}
	return false
}

func (t SyncTuning) withDefaults() SyncTuning {
	defaults := DefaultSyncTuning()
	if t.PageSize <= 0 {
		t.PageSize = defaults.PageSize
	}
	if t.RequestTimeout <= 0 {
		t.RequestTimeout = defaults.RequestTimeout
	}
	if t.IdentityScanCap <= 0 {
		t.IdentityScanCap = defaults.IdentityScanCap
	}
	return t
}

func validateSyncTuning(t SyncTuning) error {
	if t.PageSize > 10000 {
		return errors.New("sync.pageSize must be at most 10000")
	}
	if t.RequestTimeout > 5*time.Minute {
		return errors.New("sync.requestTimeout must be at most 5m")
	}
	return nil
}
