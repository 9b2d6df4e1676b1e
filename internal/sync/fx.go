package sync

import (
	"context"

	"github.com/vistrive/assetnext/internal/inventory"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("sync",
	fx.Provide(ProvideConfig),
	fx.Provide(NewHeartbeat),
	fx.Provide(func(c *inventory.Client) InventoryAPI { return c }),
	fx.Provide(NewReconciler),
	fx.Provide(New),
	fx.Provide(NewProvisioner),
	fx.Invoke(RegisterScheduler),
)

func RegisterScheduler(lc fx.Lifecycle, cfg Config, sched *Scheduler, log *zap.Logger) {
	if !cfg.Enabled {
		log.Info("inventory sync disabled")
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
