package tenant

import (
	"github.com/vistrive/assetnext/internal/tenant/repository"
	"github.com/vistrive/assetnext/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
