package sync

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/vistrive/assetnext/internal/config"
	"github.com/vistrive/assetnext/internal/inventory"
	tenantdomain "github.com/vistrive/assetnext/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ProvisionerParams struct {
	fx.In

	Log       *zap.Logger
	Config    config.Config
	Tuning    *config.SyncTuningHolder
	Inventory InventoryAPI
	TenantSvc tenantdomain.Service
}

// Provisioner onboards a tenant into the shared inventory instance: it
// creates an upstream org, records the mapping, and optionally adopts
// devices that already exist upstream under no (or the wrong) org.
type Provisioner struct {
	log       *zap.Logger
	cfg       config.Config
	tuning    *config.SyncTuningHolder
	inventory InventoryAPI
	tenantSvc tenantdomain.Service
}

func NewProvisioner(p ProvisionerParams) (*Provisioner, error) {
	if p.Log == nil || p.Inventory == nil || p.TenantSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Provisioner{
		log:       p.Log.Named("sync.provisioner"),
		cfg:       p.Config,
		tuning:    p.Tuning,
		inventory: p.Inventory,
		tenantSvc: p.TenantSvc,
	}, nil
}

// ProvisionTenant creates the upstream org for an unmapped tenant and
// stores the mapping. Seed devices that cannot be located or moved are
// logged and skipped; the mapping itself is never rolled back.
func (p *Provisioner) ProvisionTenant(ctx context.Context, tenantID snowflake.ID, seeds []inventory.IdentityQuery) (tenantdomain.Tenant, error) {
	tenant, err := p.tenantSvc.Get(ctx, tenantID)
	if err != nil {
		return tenantdomain.Tenant{}, err
	}
	if tenant.HasExternalOrg() {
		return tenant, tenantdomain.ErrAlreadyMapped
	}

	sess, err := p.inventory.Login(ctx, p.cfg.InventoryBaseURL, p.cfg.InventoryUsername, p.cfg.InventoryPassword)
	if err != nil {
		return tenantdomain.Tenant{}, err
	}

	orgID, err := p.inventory.CreateOrganization(ctx, sess, tenant.Name, "")
	if err != nil {
		return tenantdomain.Tenant{}, fmt.Errorf("create upstream org: %w", err)
	}

	tenant, err = p.tenantSvc.AssignExternalOrg(ctx, tenantID, orgID)
	if err != nil {
		// The org now exists upstream with nothing pointing at it. Keep
		// the id in the log so an operator can re-link or clean up.
		p.log.Error("upstream org created but mapping not stored",
			zap.String("tenant_id", tenantID.String()),
			zap.String("org_id", orgID),
			zap.Error(err),
		)
		return tenantdomain.Tenant{}, err
	}

	p.adoptSeedDevices(ctx, sess, tenant, orgID, seeds)
	return tenant, nil
}

func (p *Provisioner) adoptSeedDevices(ctx context.Context, sess *inventory.Session, tenant tenantdomain.Tenant, orgID string, seeds []inventory.IdentityQuery) {
	if len(seeds) == 0 {
		return
	}
	scanCap := p.tuning.Current().IdentityScanCap
	log := p.log.With(
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("org_id", orgID),
	)

	for _, seed := range seeds {
		deviceID, err := p.inventory.FindDeviceByIdentity(ctx, sess, seed, scanCap)
		if err != nil {
			log.Warn("seed device lookup failed",
				zap.String("serial", seed.Serial),
				zap.String("hostname", seed.Hostname),
				zap.Error(err),
			)
			continue
		}
		if deviceID == "" {
			log.Info("seed device not found upstream",
				zap.String("serial", seed.Serial),
				zap.String("hostname", seed.Hostname),
			)
			continue
		}
		if err := p.inventory.UpdateDeviceOrganization(ctx, sess, deviceID, orgID); err != nil {
			log.Warn("seed device adoption failed",
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
		}
	}
}
