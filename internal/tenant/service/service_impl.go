package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/vistrive/assetnext/internal/tenant/domain"
	"github.com/vistrive/assetnext/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("tenant.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTenantRequest) (domain.Tenant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Tenant{}, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	tenant := domain.Tenant{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if externalOrgID := strings.TrimSpace(req.ExternalOrgID); externalOrgID != "" {
		tenant.ExternalOrgID = &externalOrgID
	}

	if err := s.repo.Insert(ctx, s.db, &tenant); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Tenant{}, domain.ErrSlugTaken
		}
		return domain.Tenant{}, err
	}

	return tenant, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Tenant, error) {
	tenant, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Tenant{}, err
	}
	if tenant == nil {
		return domain.Tenant{}, domain.ErrNotFound
	}
	return *tenant, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Tenant, error) {
	return s.repo.ListAll(ctx, s.db)
}

func (s *Service) AssignExternalOrg(ctx context.Context, id snowflake.ID, externalOrgID string) (domain.Tenant, error) {
	externalOrgID = strings.TrimSpace(externalOrgID)
	if externalOrgID == "" {
		return domain.Tenant{}, domain.ErrInvalidExternalOrg
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Tenant{}, err
	}
	if existing == nil {
		return domain.Tenant{}, domain.ErrNotFound
	}
	if existing.HasExternalOrg() {
		return domain.Tenant{}, domain.ErrAlreadyMapped
	}

	if err := s.repo.SetExternalOrgID(ctx, s.db, id, externalOrgID); err != nil {
		return domain.Tenant{}, err
	}

	s.log.Info("tenant mapped to external organization",
		zap.String("tenant_id", id.String()),
		zap.String("external_org_id", externalOrgID),
	)

	existing.ExternalOrgID = &externalOrgID
	return *existing, nil
}
