package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	assetdomain "github.com/vistrive/assetnext/internal/asset/domain"
	"github.com/vistrive/assetnext/internal/config"
	"github.com/vistrive/assetnext/internal/inventory"
	tenantdomain "github.com/vistrive/assetnext/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrInvalidConfig  = errors.New("sync: missing dependency")
	ErrTenantUnmapped = errors.New("sync: tenant has no external org mapping")
)

// InventoryAPI is the slice of the inventory client the sync engine uses.
type InventoryAPI interface {
	Login(ctx context.Context, baseURL, username, password string) (*inventory.Session, error)
	ListDevices(ctx context.Context, sess *inventory.Session, limit, offset int) ([]inventory.DeviceRecord, int, error)
	FindDeviceByIdentity(ctx context.Context, sess *inventory.Session, q inventory.IdentityQuery, scanCap int) (string, error)
	UpdateDeviceOrganization(ctx context.Context, sess *inventory.Session, deviceID, orgID string) error
	CreateOrganization(ctx context.Context, sess *inventory.Session, name, parentID string) (string, error)
}

// Result summarizes one tenant reconciliation.
type Result struct {
	Fetched int
	Created int
	Updated int
	Failed  int
}

// Merged is the number of records that landed in the asset store.
func (r Result) Merged() int { return r.Created + r.Updated }

// TenantReconciler pulls one tenant's devices from the external inventory
// and merges them into the asset store.
type TenantReconciler interface {
	ReconcileTenant(ctx context.Context, tenant tenantdomain.Tenant) (Result, error)
}

type ReconcilerParams struct {
	fx.In

	Log       *zap.Logger
	Config    config.Config
	Tuning    *config.SyncTuningHolder
	Inventory InventoryAPI
	AssetSvc  assetdomain.Service
}

type Reconciler struct {
	log       *zap.Logger
	cfg       config.Config
	tuning    *config.SyncTuningHolder
	inventory InventoryAPI
	assetSvc  assetdomain.Service
}

func NewReconciler(p ReconcilerParams) (TenantReconciler, error) {
	if p.Log == nil || p.Inventory == nil || p.AssetSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Reconciler{
		log:       p.Log.Named("sync.reconciler"),
		cfg:       p.Config,
		tuning:    p.Tuning,
		inventory: p.Inventory,
		assetSvc:  p.AssetSvc,
	}, nil
}

// ReconcileTenant logs in fresh, pages through the full unfiltered device
// listing, scopes it to the tenant's org client-side, and merges each
// record. A record that fails to map or merge is counted and skipped;
// only session-level failures abort the tenant.
func (r *Reconciler) ReconcileTenant(ctx context.Context, tenant tenantdomain.Tenant) (Result, error) {
	if !tenant.HasExternalOrg() {
		return Result{}, ErrTenantUnmapped
	}
	orgID := *tenant.ExternalOrgID
	tuning := r.tuning.Current()

	log := r.log.With(
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("tenant_slug", tenant.Slug),
		zap.String("org_id", orgID),
	)

	sess, err := r.login(ctx, tuning.RequestTimeout)
	if err != nil {
		return Result{}, err
	}

	var result Result
	offset := 0
	for {
		page, total, err := r.listPage(ctx, sess, tuning.PageSize, offset, tuning.RequestTimeout)
		if err != nil {
			return result, fmt.Errorf("list devices at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}

		scoped := inventory.FilterByOrg(page, orgID)
		if dropped := len(page) - len(scoped); dropped > 0 {
			log.Debug("dropped out-of-org devices from page",
				zap.Int("offset", offset),
				zap.Int("dropped", dropped),
			)
		}

		result.Fetched += len(scoped)
		for _, rec := range scoped {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			r.mergeRecord(ctx, log, tenant, rec, &result)
		}

		offset += len(page)
		if len(page) < tuning.PageSize || (total > 0 && offset >= total) {
			break
		}
	}

	return result, nil
}

// mergeRecord maps and merges one device. Failures are isolated: the
// record is counted as failed and the rest of the page proceeds.
func (r *Reconciler) mergeRecord(ctx context.Context, log *zap.Logger, tenant tenantdomain.Tenant, rec inventory.DeviceRecord, result *Result) {
	draft, err := inventory.MapDevice(rec)
	if err != nil {
		result.Failed++
		log.Warn("device record unmappable, skipped",
			zap.String("device_id", rec.ID),
			zap.Error(err),
		)
		return
	}

	merged, err := r.assetSvc.Merge(ctx, tenant.ID, draft)
	if err != nil {
		result.Failed++
		log.Warn("device merge failed, skipped",
			zap.String("device_id", rec.ID),
			zap.String("name", draft.Name),
			zap.Error(err),
		)
		return
	}

	if merged.Created {
		result.Created++
	}
	if merged.Updated {
		result.Updated++
	}
}

func (r *Reconciler) login(ctx context.Context, timeout time.Duration) (*inventory.Session, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.inventory.Login(reqCtx, r.cfg.InventoryBaseURL, r.cfg.InventoryUsername, r.cfg.InventoryPassword)
}

func (r *Reconciler) listPage(ctx context.Context, sess *inventory.Session, limit, offset int, timeout time.Duration) ([]inventory.DeviceRecord, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.inventory.ListDevices(reqCtx, sess, limit, offset)
}
