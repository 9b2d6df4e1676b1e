package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vistrive/assetnext/internal/asset/domain"
	"github.com/vistrive/assetnext/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// syncOwnedColumns are overwritten on every merge. User-owned columns are
// deliberately absent so an upsert never clobbers operator edits.
var syncOwnedColumns = []string{
	"name",
	"asset_type",
	"category",
	"manufacturer",
	"model",
	"metadata",
	"notes",
	"updated_at",
}

// buildSerialConflictClause targets the (tenant_id, serial_number) unique
// index. On postgres the index is partial (serial_number IS NOT NULL), so
// the conflict target has to repeat the predicate.
func buildSerialConflictClause(db *gorm.DB) clause.OnConflict {
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "serial_number"}},
		DoUpdates: clause.AssignmentColumns(syncOwnedColumns),
	}
	if db != nil && strings.EqualFold(db.Dialector.Name(), "postgres") {
		conflict.TargetWhere = clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "serial_number IS NOT NULL"},
		}}
	}
	return conflict
}

func (r *repo) UpsertBySerial(ctx context.Context, db *gorm.DB, asset *domain.Asset) error {
	return db.WithContext(ctx).
		Clauses(buildSerialConflictClause(db)).
		Create(asset).Error
}

func (r *repo) UpdateNamelessByName(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, draft domain.Draft) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE assets
		 SET asset_type = ?, category = ?, manufacturer = ?, model = ?,
		     metadata = ?, notes = ?, updated_at = ?
		 WHERE tenant_id = ? AND name = ? AND serial_number IS NULL`,
		draft.AssetType,
		draft.Category,
		draft.Manufacturer,
		draft.Model,
		draft.Metadata,
		draft.Notes,
		time.Now().UTC(),
		tenantID,
		draft.Name,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, asset *domain.Asset) error {
	return db.WithContext(ctx).Create(asset).Error
}

func (r *repo) FindBySerial(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, serial string) (*domain.Asset, error) {
	var asset domain.Asset
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND serial_number = ?", tenantID, serial).
		Limit(1).
		Find(&asset).Error
	if err != nil {
		return nil, err
	}
	if asset.ID == 0 {
		return nil, nil
	}
	return &asset, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Asset, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Asset{}).
		Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		cursorID, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			createdAt, createdAt, cursorID,
		)
	}

	pageSize := page.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	var assets []*domain.Asset
	err := stmt.
		Order("created_at desc, id desc").
		Limit(pageSize + 1).
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *repo) CountByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM assets WHERE tenant_id = ?`,
		tenantID,
	).Scan(&count).Error
	return count, err
}
