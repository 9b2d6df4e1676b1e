package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vistrive/assetnext/internal/tenant/domain"
	"github.com/vistrive/assetnext/internal/tenant/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSchema = `
CREATE TABLE tenants (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL,
	external_org_id TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX ux_tenants_slug ON tenants (slug);
`

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range strings.Split(testSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		require.NoError(t, gdb.Exec(stmt).Error)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestCreateSlugifiesName(t *testing.T) {
	svc := newTestService(t)

	tenant, err := svc.Create(context.Background(), domain.CreateTenantRequest{Name: "Acme Corp East"})
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp East", tenant.Name)
	assert.Equal(t, "acme-corp-east", tenant.Slug)
	assert.False(t, tenant.HasExternalOrg())
	assert.NotZero(t, tenant.ID)
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateTenantRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestCreateDuplicateSlugFails(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateTenantRequest{Name: "Acme Corp"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), domain.CreateTenantRequest{Name: "acme corp"})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
}

func TestCreateWithExternalOrg(t *testing.T) {
	svc := newTestService(t)

	tenant, err := svc.Create(context.Background(), domain.CreateTenantRequest{
		Name:          "Acme Corp",
		ExternalOrgID: " 42 ",
	})
	require.NoError(t, err)

	require.True(t, tenant.HasExternalOrg())
	assert.Equal(t, "42", *tenant.ExternalOrgID)
}

func TestGetUnknownTenant(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), snowflake.ID(999))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssignExternalOrg(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), domain.CreateTenantRequest{Name: "Acme Corp"})
	require.NoError(t, err)

	mapped, err := svc.AssignExternalOrg(context.Background(), created.ID, "42")
	require.NoError(t, err)
	require.True(t, mapped.HasExternalOrg())
	assert.Equal(t, "42", *mapped.ExternalOrgID)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, got.HasExternalOrg())
}

func TestAssignExternalOrgValidation(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.Create(context.Background(), domain.CreateTenantRequest{Name: "Acme Corp"})
	require.NoError(t, err)

	_, err = svc.AssignExternalOrg(context.Background(), created.ID, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidExternalOrg)

	_, err = svc.AssignExternalOrg(context.Background(), snowflake.ID(999), "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.AssignExternalOrg(context.Background(), created.ID, "42")
	require.NoError(t, err)
	_, err = svc.AssignExternalOrg(context.Background(), created.ID, "43")
	assert.ErrorIs(t, err, domain.ErrAlreadyMapped)
}

func TestListReturnsAllTenants(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateTenantRequest{Name: "Alpha"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), domain.CreateTenantRequest{Name: "Beta"})
	require.NoError(t, err)

	tenants, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "alpha", tenants[0].Slug)
	assert.Equal(t, "beta", tenants[1].Slug)
}
