package asset

import (
	"github.com/vistrive/assetnext/internal/asset/repository"
	"github.com/vistrive/assetnext/internal/asset/service"
	"go.uber.org/fx"
)

var Module = fx.Module("asset.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
