package repository

import (
	"context"

	"akppos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryLogFilter defines filters for listing ledger rows.
type InventoryLogFilter struct {
	ProductID *uuid.UUID
	Type      model.InventoryLogType
	Page      int
	Limit     int
}

// InventoryLogRepository is append-only: there is no update or delete.
type InventoryLogRepository interface {
	AppendTx(tx *gorm.DB, l *model.InventoryLog) error
	List(ctx context.Context, tenantID uuid.UUID, filter InventoryLogFilter) ([]model.InventoryLog, int64, error)
}

type inventoryLogRepo struct{ db *gorm.DB }

func NewInventoryLogRepository(db *gorm.DB) InventoryLogRepository {
	return &inventoryLogRepo{db: db}
}

func (r *inventoryLogRepo) AppendTx(tx *gorm.DB, l *model.InventoryLog) error {
	return tx.Create(l).Error
}

func (r *inventoryLogRepo) List(ctx context.Context, tenantID uuid.UUID, filter InventoryLogFilter) ([]model.InventoryLog, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.InventoryLog{}).Where("tenant_id = ?", tenantID)
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := pageBounds(filter.Page, filter.Limit, 100, 500)

	var logs []model.InventoryLog
	err := q.Preload("Product").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&logs).Error
	return logs, total, err
}
