package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vistrive/assetnext/internal/asset/domain"
	"github.com/vistrive/assetnext/pkg/db"
	"github.com/vistrive/assetnext/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("asset.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Merge resolves a draft into the tenant store exactly once per logical
// device. Serial-bearing drafts ride the native (tenant_id, serial_number)
// constraint; nameless drafts emulate an upsert over the partial
// (tenant_id, name) WHERE serial IS NULL constraint with a conditional
// update followed by an insert. The emulation is safe because the sync
// scheduler runs at most one writer per tenant.
func (s *Service) Merge(ctx context.Context, tenantID snowflake.ID, draft domain.Draft) (domain.MergeResult, error) {
	if tenantID == 0 {
		return domain.MergeResult{}, domain.ErrInvalidTenant
	}
	if draft.Name == "" {
		return domain.MergeResult{}, domain.ErrInvalidDraft
	}

	if draft.HasSerial() {
		return s.mergeBySerial(ctx, tenantID, draft)
	}
	return s.mergeNameless(ctx, tenantID, draft)
}

func (s *Service) mergeBySerial(ctx context.Context, tenantID snowflake.ID, draft domain.Draft) (domain.MergeResult, error) {
	// The pre-read only decides created-vs-updated for reporting; the
	// upsert below is atomic either way.
	existing, err := s.repo.FindBySerial(ctx, s.db, tenantID, *draft.SerialNumber)
	if err != nil {
		return domain.MergeResult{}, err
	}

	asset := s.newAssetFromDraft(tenantID, draft)
	if err := s.repo.UpsertBySerial(ctx, s.db, &asset); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.MergeResult{}, domain.ErrConstraintViolation
		}
		return domain.MergeResult{}, err
	}

	if existing == nil {
		return domain.MergeResult{Created: true}, nil
	}
	return domain.MergeResult{Updated: true}, nil
}

func (s *Service) mergeNameless(ctx context.Context, tenantID snowflake.ID, draft domain.Draft) (domain.MergeResult, error) {
	rows, err := s.repo.UpdateNamelessByName(ctx, s.db, tenantID, draft)
	if err != nil {
		return domain.MergeResult{}, err
	}
	if rows > 0 {
		return domain.MergeResult{Updated: true}, nil
	}

	asset := s.newAssetFromDraft(tenantID, draft)
	if err := s.repo.Insert(ctx, s.db, &asset); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// An external writer slipped a row in between the update and
			// the insert. Log-and-skip, never fatal for the page.
			s.log.Warn("nameless merge lost a race to a concurrent writer",
				zap.String("tenant_id", tenantID.String()),
				zap.String("name", draft.Name),
			)
			return domain.MergeResult{}, domain.ErrConstraintViolation
		}
		return domain.MergeResult{}, err
	}
	return domain.MergeResult{Created: true}, nil
}

// newAssetFromDraft builds the insert image. User-owned fields receive
// their first-insert defaults here and are absent from every update path.
func (s *Service) newAssetFromDraft(tenantID snowflake.ID, draft domain.Draft) domain.Asset {
	now := time.Now().UTC()
	metadata := draft.Metadata
	if metadata == nil {
		metadata = datatypes.JSONMap{}
	}
	category := draft.Category
	if category == "" {
		category = domain.CategoryHardware
	}
	return domain.Asset{
		ID:           s.genID.Generate(),
		TenantID:     tenantID,
		Name:         draft.Name,
		Category:     category,
		AssetType:    draft.AssetType,
		Manufacturer: draft.Manufacturer,
		Model:        draft.Model,
		SerialNumber: draft.SerialNumber,
		Metadata:     metadata,
		Notes:        draft.Notes,
		Status:       domain.StatusInUse,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID, req domain.ListAssetRequest) (domain.ListAssetResponse, error) {
	if tenantID == 0 {
		return domain.ListAssetResponse{}, domain.ErrInvalidTenant
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, tenantID, domain.ListFilter{
		Status:   req.Status,
		Category: req.Category,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListAssetResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(asset *domain.Asset) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        asset.ID.String(),
			CreatedAt: asset.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	assets := make([]domain.Asset, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		assets = append(assets, *item)
	}

	return domain.ListAssetResponse{
		Assets:        assets,
		NextPageToken: pageInfo.NextPageToken,
		HasMore:       pageInfo.HasMore,
	}, nil
}

func (s *Service) Count(ctx context.Context, tenantID snowflake.ID) (int64, error) {
	if tenantID == 0 {
		return 0, domain.ErrInvalidTenant
	}
	return s.repo.CountByTenant(ctx, s.db, tenantID)
}
