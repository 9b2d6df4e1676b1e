package metrics

import (
	"github.com/vistrive/assetnext/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("observability.metrics",
	fx.Provide(ProvideHTTPMetrics),
	fx.Invoke(func(cfg config.Config) {
		SyncWithConfig(Config{
			ServiceName: cfg.AppName,
			Environment: cfg.Environment,
		})
	}),
)

// ProvideHTTPMetrics builds the HTTP instruments and pins the shared
// service labels on the sync singleton before anything records to it.
func ProvideHTTPMetrics(cfg config.Config) *HTTPMetrics {
	mcfg := Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	}
	SyncWithConfig(mcfg)
	return NewHTTPMetrics(mcfg)
}
