package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type ListAssetRequest struct {
	Status    string `form:"status"`
	Category  string `form:"category"`
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

type ListAssetResponse struct {
	Assets        []Asset `json:"assets"`
	NextPageToken string  `json:"next_page_token"`
	HasMore       bool    `json:"has_more"`
}

type Service interface {
	// Merge resolves a draft against the tenant store exactly once per
	// logical device: serial-keyed upsert when a serial is present,
	// emulated partial-unique upsert on (tenant, name) otherwise.
	Merge(ctx context.Context, tenantID snowflake.ID, draft Draft) (MergeResult, error)

	List(ctx context.Context, tenantID snowflake.ID, req ListAssetRequest) (ListAssetResponse, error)
	Count(ctx context.Context, tenantID snowflake.ID) (int64, error)
}
