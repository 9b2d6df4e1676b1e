package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type CreateTenantRequest struct {
	Name          string `json:"name"`
	ExternalOrgID string `json:"external_org_id"`
}

type Service interface {
	Create(ctx context.Context, req CreateTenantRequest) (Tenant, error)
	Get(ctx context.Context, id snowflake.ID) (Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	AssignExternalOrg(ctx context.Context, id snowflake.ID, externalOrgID string) (Tenant, error)
}
