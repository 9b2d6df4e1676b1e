package migration

import (
	assetdomain "github.com/vistrive/assetnext/internal/asset/domain"
	"github.com/vistrive/assetnext/internal/config"
	tenantdomain "github.com/vistrive/assetnext/internal/tenant/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}
		return autoMigrate(conn)
	}),
)

// autoMigrate covers the mysql and sqlite development paths. The partial
// name index only exists where the dialect supports it; the merge path
// does not rely on it for correctness.
func autoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&tenantdomain.Tenant{}, &assetdomain.Asset{}); err != nil {
		return err
	}
	if conn.Dialector.Name() == "sqlite" {
		return conn.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS ux_assets_tenant_name_nameless
			 ON assets (tenant_id, name) WHERE serial_number IS NULL`,
		).Error
	}
	return nil
}
