package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	assetdomain "github.com/vistrive/assetnext/internal/asset/domain"
	"github.com/vistrive/assetnext/internal/cache"
	"github.com/vistrive/assetnext/internal/inventory"
	syncengine "github.com/vistrive/assetnext/internal/sync"
	tenantdomain "github.com/vistrive/assetnext/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServerParams struct {
	fx.In

	Engine      *gin.Engine
	Log         *zap.Logger
	TenantSvc   tenantdomain.Service
	AssetSvc    assetdomain.Service
	Heartbeat   *syncengine.Heartbeat
	Provisioner *syncengine.Provisioner
	SyncCfg     syncengine.Config
	ListCache   cache.AssetListCache
}

type Server struct {
	log         *zap.Logger
	tenantSvc   tenantdomain.Service
	assetSvc    assetdomain.Service
	heartbeat   *syncengine.Heartbeat
	provisioner *syncengine.Provisioner
	syncCfg     syncengine.Config
	listCache   cache.AssetListCache
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		log:         p.Log.Named("server"),
		tenantSvc:   p.TenantSvc,
		assetSvc:    p.AssetSvc,
		heartbeat:   p.Heartbeat,
		provisioner: p.Provisioner,
		syncCfg:     p.SyncCfg,
		listCache:   p.ListCache,
	}
	s.registerRoutes(p.Engine)
	return s
}

func (s *Server) registerRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	api.GET("/sync/status", s.syncStatus)

	api.POST("/tenants", s.createTenant)
	api.GET("/tenants", s.listTenants)
	api.GET("/tenants/:id", s.getTenant)
	api.POST("/tenants/:id/provision", s.provisionTenant)
	api.POST("/tenants/:id/external-org", s.assignExternalOrg)
	api.GET("/tenants/:id/assets", s.listAssets)
}

func (s *Server) syncStatus(c *gin.Context) {
	status := s.heartbeat.Status()
	c.JSON(http.StatusOK, gin.H{
		"enabled":      s.syncCfg.Enabled,
		"run_interval": s.syncCfg.RunInterval.String(),
		"heartbeat":    status,
	})
}

func (s *Server) createTenant(c *gin.Context) {
	var req tenantdomain.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	created, err := s.tenantSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) listTenants(c *gin.Context) {
	tenants, err := s.tenantSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenants": tenants})
}

func (s *Server) getTenant(c *gin.Context) {
	id, err := parseTenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	found, err := s.tenantSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

type provisionRequest struct {
	Seeds []struct {
		Serial   string `json:"serial"`
		Hostname string `json:"hostname"`
	} `json:"seeds"`
}

func (s *Server) provisionTenant(c *gin.Context) {
	id, err := parseTenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req provisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	seeds := make([]inventory.IdentityQuery, 0, len(req.Seeds))
	for _, seed := range req.Seeds {
		seeds = append(seeds, inventory.IdentityQuery{
			Serial:   seed.Serial,
			Hostname: seed.Hostname,
		})
	}

	provisioned, err := s.provisioner.ProvisionTenant(c.Request.Context(), id, seeds)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, provisioned)
}

type assignExternalOrgRequest struct {
	ExternalOrgID string `json:"external_org_id" binding:"required"`
}

func (s *Server) assignExternalOrg(c *gin.Context) {
	id, err := parseTenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req assignExternalOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	updated, err := s.tenantSvc.AssignExternalOrg(c.Request.Context(), id, req.ExternalOrgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) listAssets(c *gin.Context) {
	id, err := parseTenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req assetdomain.ListAssetRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	// Pages are cached under the current sync revision; a new revision
	// empties the namespace so a poll after the heartbeat moves always
	// reads fresh rows.
	s.listCache.Invalidate(s.heartbeat.Revision())
	if cached, ok := s.listCache.Get(id.String(), req); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	resp, err := s.assetSvc.List(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.listCache.Set(id.String(), req, resp)
	c.JSON(http.StatusOK, resp)
}

func parseTenantID(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil || id == 0 {
		return 0, ErrInvalidRequest
	}
	return id, nil
}
