package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/vistrive/assetnext/internal/clock"
	"github.com/vistrive/assetnext/internal/config"
	"github.com/vistrive/assetnext/internal/logger"
	"github.com/vistrive/assetnext/internal/migration"
	"github.com/vistrive/assetnext/internal/server"
	"github.com/vistrive/assetnext/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
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
