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
	"github.com/vistrive/assetnext/internal/asset/domain"
	"github.com/vistrive/assetnext/internal/asset/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const testSchema = `
CREATE TABLE assets (
    id INTEGER PRIMARY KEY,
    tenant_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT 'hardware',
    asset_type TEXT NOT NULL DEFAULT '',
    manufacturer TEXT,
    model TEXT,
    serial_number TEXT,
    metadata TEXT NOT NULL DEFAULT '{}',
    notes TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'in_use',
    assigned_to TEXT,
    location TEXT,
    purchase_date DATETIME,
    warranty_expiry DATETIME,
    purchase_cost NUMERIC,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX ux_assets_tenant_serial ON assets (tenant_id, serial_number);
CREATE UNIQUE INDEX ux_assets_tenant_name_nameless ON assets (tenant_id, name) WHERE serial_number IS NULL;
`

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range strings.Split(testSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		require.NoError(t, db.Exec(stmt).Error)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, db
}

func strPtr(v string) *string { return &v }

func countRows(t *testing.T, db *gorm.DB, tenantID snowflake.ID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(1) FROM assets WHERE tenant_id = ?`, tenantID).Scan(&count).Error)
	return count
}

func TestMergeSerialCreatesAsset(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := snowflake.ID(100)

	result, err := svc.Merge(context.Background(), tenantID, domain.Draft{
		Name:         "web-01",
		SerialNumber: strPtr("SN-001"),
		Manufacturer: strPtr("Dell"),
		Metadata:     datatypes.JSONMap{"ip": "10.0.0.5"},
	})
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.False(t, result.Updated)

	var asset domain.Asset
	require.NoError(t, db.Where("tenant_id = ?", tenantID).First(&asset).Error)
	assert.Equal(t, "web-01", asset.Name)
	assert.Equal(t, domain.StatusInUse, asset.Status)
	assert.Equal(t, domain.CategoryHardware, asset.Category)
	require.NotNil(t, asset.SerialNumber)
	assert.Equal(t, "SN-001", *asset.SerialNumber)
}

func TestMergeSerialIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := snowflake.ID(100)
	draft := domain.Draft{Name: "web-01", SerialNumber: strPtr("SN-001")}

	first, err := svc.Merge(context.Background(), tenantID, draft)
	require.NoError(t, err)
	assert.True(t, first.Created)

	draft.Name = "web-01.renamed"
	second, err := svc.Merge(context.Background(), tenantID, draft)
	require.NoError(t, err)
	assert.True(t, second.Updated)
	assert.False(t, second.Created)

	assert.EqualValues(t, 1, countRows(t, db, tenantID))

	var asset domain.Asset
	require.NoError(t, db.Where("tenant_id = ?", tenantID).First(&asset).Error)
	assert.Equal(t, "web-01.renamed", asset.Name)
}

func TestMergeSerialPreservesUserOwnedFields(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := snowflake.ID(100)
	draft := domain.Draft{Name: "web-01", SerialNumber: strPtr("SN-001")}

	_, err := svc.Merge(context.Background(), tenantID, draft)
	require.NoError(t, err)

	// An operator retires the asset and assigns it between syncs.
	require.NoError(t, db.Exec(
		`UPDATE assets SET status = 'retired', assigned_to = 'sam', location = 'rack 4'
		 WHERE tenant_id = ?`, tenantID,
	).Error)

	draft.Name = "web-01.internal"
	draft.Model = strPtr("R740")
	result, err := svc.Merge(context.Background(), tenantID, draft)
	require.NoError(t, err)
	assert.True(t, result.Updated)

	var asset domain.Asset
	require.NoError(t, db.Where("tenant_id = ?", tenantID).First(&asset).Error)
	assert.Equal(t, "web-01.internal", asset.Name)
	require.NotNil(t, asset.Model)
	assert.Equal(t, "R740", *asset.Model)
	assert.Equal(t, "retired", asset.Status)
	require.NotNil(t, asset.AssignedTo)
	assert.Equal(t, "sam", *asset.AssignedTo)
	require.NotNil(t, asset.Location)
	assert.Equal(t, "rack 4", *asset.Location)
}

func TestMergeNamelessCreatesThenUpdates(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := snowflake.ID(100)
	draft := domain.Draft{Name: "printer-lobby"}

	first, err := svc.Merge(context.Background(), tenantID, draft)
	require.NoError(t, err)
	assert.True(t, first.Created)

	draft.AssetType = "printer"
	second, err := svc.Merge(context.Background(), tenantID, draft)
	require.NoError(t, err)
	assert.True(t, second.Updated)
	assert.False(t, second.Created)

	assert.EqualValues(t, 1, countRows(t, db, tenantID))

	var asset domain.Asset
	require.NoError(t, db.Where("tenant_id = ?", tenantID).First(&asset).Error)
	assert.Equal(t, "printer", asset.AssetType)
	assert.Nil(t, asset.SerialNumber)
}

func TestMergeNamelessIgnoresSerialBearingRows(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := snowflake.ID(100)

	_, err := svc.Merge(context.Background(), tenantID, domain.Draft{
		Name:         "web-01",
		SerialNumber: strPtr("SN-001"),
	})
	require.NoError(t, err)

	// Same name without a serial is a different logical device.
	result, err := svc.Merge(context.Background(), tenantID, domain.Draft{Name: "web-01"})
	require.NoError(t, err)
	assert.True(t, result.Created)

	assert.EqualValues(t, 2, countRows(t, db, tenantID))
}

func TestMergeSerialMigrationLeavesNamelessRowBehind(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := snowflake.ID(100)

	_, err := svc.Merge(context.Background(), tenantID, domain.Draft{Name: "switch-1"})
	require.NoError(t, err)

	// The device later reports a serial. The serial path does not adopt
	// the old nameless row; a second row appears.
	result, err := svc.Merge(context.Background(), tenantID, domain.Draft{
		Name:         "switch-1",
		SerialNumber: strPtr("SN-SW1"),
	})
	require.NoError(t, err)
	assert.True(t, result.Created)

	assert.EqualValues(t, 2, countRows(t, db, tenantID))
}

func TestMergeTenantIsolation(t *testing.T) {
	svc, db := newTestService(t)
	draft := domain.Draft{Name: "web-01", SerialNumber: strPtr("SN-001")}

	first, err := svc.Merge(context.Background(), snowflake.ID(100), draft)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := svc.Merge(context.Background(), snowflake.ID(200), draft)
	require.NoError(t, err)
	assert.True(t, second.Created)

	assert.EqualValues(t, 1, countRows(t, db, snowflake.ID(100)))
	assert.EqualValues(t, 1, countRows(t, db, snowflake.ID(200)))
}

func TestMergeValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Merge(context.Background(), 0, domain.Draft{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)

	_, err = svc.Merge(context.Background(), snowflake.ID(100), domain.Draft{})
	assert.ErrorIs(t, err, domain.ErrInvalidDraft)
}

func TestListPaginatesWithCursor(t *testing.T) {
	svc, _ := newTestService(t)
	tenantID := snowflake.ID(100)

	for i := 0; i < 3; i++ {
		_, err := svc.Merge(context.Background(), tenantID, domain.Draft{
			Name:         fmt.Sprintf("host-%d", i),
			SerialNumber: strPtr(fmt.Sprintf("SN-%03d", i)),
		})
		require.NoError(t, err)
	}

	first, err := svc.List(context.Background(), tenantID, domain.ListAssetRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, first.Assets, 2)
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	second, err := svc.List(context.Background(), tenantID, domain.ListAssetRequest{
		PageSize:  2,
		PageToken: first.NextPageToken,
	})
	require.NoError(t, err)
	assert.Len(t, second.Assets, 1)
	assert.False(t, second.HasMore)

	seen := map[string]bool{}
	for _, a := range append(first.Assets, second.Assets...) {
		seen[a.Name] = true
	}
	assert.Len(t, seen, 3)
}

func TestListFiltersByStatus(t *testing.T) {
	svc, db := newTestService(t)
	tenantID := snowflake.ID(100)

	for i := 0; i < 2; i++ {
		_, err := svc.Merge(context.Background(), tenantID, domain.Draft{
			Name:         fmt.Sprintf("host-%d", i),
			SerialNumber: strPtr(fmt.Sprintf("SN-%03d", i)),
		})
		require.NoError(t, err)
	}
	require.NoError(t, db.Exec(
		`UPDATE assets SET status = 'retired' WHERE name = 'host-0'`,
	).Error)

	resp, err := svc.List(context.Background(), tenantID, domain.ListAssetRequest{Status: "retired"})
	require.NoError(t, err)
	require.Len(t, resp.Assets, 1)
	assert.Equal(t, "host-0", resp.Assets[0].Name)

	count, err := svc.Count(context.Background(), tenantID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
