package cache

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	assetdomain "github.com/vistrive/assetnext/internal/asset/domain"
)

const defaultAssetListTTL = 30 * time.Second

// AssetListCache stores asset list pages keyed by the sync revision they
// were read under. Every entry written under an older revision becomes
// unreachable the moment the revision moves, so readers never see a page
// that predates the latest reconciliation.
type AssetListCache interface {
	Get(tenantID string, req assetdomain.ListAssetRequest) (assetdomain.ListAssetResponse, bool)
	Set(tenantID string, req assetdomain.ListAssetRequest, resp assetdomain.ListAssetResponse)
	Invalidate(revision uint64)
}

type assetListCache struct {
	pages    Cache[string, assetdomain.ListAssetResponse]
	revision atomic.Uint64
	ttl      time.Duration
}

func NewAssetListCache() AssetListCache {
	return &assetListCache{
		pages: NewTTLCache[string, assetdomain.ListAssetResponse](),
		ttl:   defaultAssetListTTL,
	}
}

func (c *assetListCache) Get(tenantID string, req assetdomain.ListAssetRequest) (assetdomain.ListAssetResponse, bool) {
	return c.pages.Get(c.key(tenantID, req))
}

func (c *assetListCache) Set(tenantID string, req assetdomain.ListAssetRequest, resp assetdomain.ListAssetResponse) {
	c.pages.Set(c.key(tenantID, req), resp, c.ttl)
}

// Invalidate rotates the cache namespace to the given revision and purges
// the stale entries eagerly.
func (c *assetListCache) Invalidate(revision uint64) {
	if c.revision.Swap(revision) != revision {
		c.pages.Purge()
	}
}

func (c *assetListCache) key(tenantID string, req assetdomain.ListAssetRequest) string {
	parts := []string{
		fmt.Sprintf("r%d", c.revision.Load()),
		strings.TrimSpace(tenantID),
		strings.TrimSpace(req.Status),
		strings.TrimSpace(req.Category),
		strings.TrimSpace(req.PageToken),
		fmt.Sprintf("n%d", req.PageSize),
	}
	return strings.Join(parts, "|")
}
