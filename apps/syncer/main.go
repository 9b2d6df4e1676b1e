package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/vistrive/assetnext/internal/asset"
	"github.com/vistrive/assetnext/internal/clock"
	"github.com/vistrive/assetnext/internal/config"
	"github.com/vistrive/assetnext/internal/inventory"
	"github.com/vistrive/assetnext/internal/logger"
	"github.com/vistrive/assetnext/internal/migration"
	obsmetrics "github.com/vistrive/assetnext/internal/observability/metrics"
	syncengine "github.com/vistrive/assetnext/internal/sync"
	"github.com/vistrive/assetnext/internal/tenant"
	"github.com/vistrive/assetnext/pkg/db"
	"go.uber.org/fx"
)

// syncer runs the reconciliation loop without the HTTP API, for
// deployments that split the sync worker from the read path.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		obsmetrics.Module,

		inventory.Module,
		tenant.Module,
		asset.Module,
		syncengine.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
