package repository

import (
	"context"
	"time"

	"akppos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesSummary aggregates completed orders over a window.
type SalesSummary struct {
	Total decimal.Decimal
	Count int64
}

type OrderRepository interface {
	// CreateTx inserts the order together with its items.
	CreateTx(tx *gorm.DB, o *model.Order) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]model.Order, int64, error)
	SummarizeCompletedSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (SalesSummary, error)
	Count(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepo{db: db} }

func (r *orderRepo) CreateTx(tx *gorm.DB, o *model.Order) error {
	return tx.Omit("User").Create(o).Error
}

func (r *orderRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Items.Product").Preload("User").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) List(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]model.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{}).Where("tenant_id = ?", tenantID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit = pageBounds(page, limit, 50, 200)

	var orders []model.Order
	err := q.Preload("Items.Product").Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error
	return orders, total, err
}

func (r *orderRepo) SummarizeCompletedSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (SalesSummary, error) {
	var row struct {
		Total decimal.Decimal
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("COALESCE(SUM(total_amount), 0) AS total, COUNT(*) AS count").
		Where("tenant_id = ? AND status = ? AND created_at >= ?", tenantID, model.OrderStatusCompleted, since).
		Scan(&row).Error
	return SalesSummary{Total: row.Total, Count: row.Count}, err
}

func (r *orderRepo) Count(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).Where("tenant_id = ?", tenantID).Count(&n).Error
	return n, err
}
