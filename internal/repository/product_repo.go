package repository

import (
	"context"
	"fmt"

	"akppos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter narrows List results.
type ProductFilter struct {
	CategoryID      *uuid.UUID
	Search          string
	IncludeInactive bool
	Page            int
	Limit           int
}

// metadataColumns are the product columns UpdateTx may write.
var metadataColumns = map[string]bool{
	"name": true, "description": true, "barcode": true,
	"price": true, "category_id": true, "is_active": true,
}

// ProductRepository defines the data access contract for products.
// Every method is scoped by tenant; a product of another tenant is reported
// as gorm.ErrRecordNotFound.
type ProductRepository interface {
	CreateTx(tx *gorm.DB, p *model.Product) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Product, error)
	FindByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*model.Product, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ProductFilter) ([]model.Product, int64, error)
	UpdateTx(tx *gorm.DB, p *model.Product, columns []string) error
	Deactivate(ctx context.Context, tenantID, id uuid.UUID) error
	CountActiveByCategory(ctx context.Context, tenantID, categoryID uuid.UUID) (int64, error)
	ListLowStock(ctx context.Context, tenantID uuid.UUID, threshold, limit int) ([]model.Product, error)
	CountLowStock(ctx context.Context, tenantID uuid.UUID, threshold int) (int64, error)

	// Used inside transactions; callers pass the tx instance

	// FindForUpdateTx reads and row-locks the active products of ids,
	// acquiring locks in ascending id order.
	FindForUpdateTx(tx *gorm.DB, tenantID uuid.UUID, ids []uuid.UUID) ([]model.Product, error)
	// DecrementStockTx subtracts qty only while stock >= qty; it returns
	// ErrInsufficientStock when no row matched.
	DecrementStockTx(tx *gorm.DB, tenantID, id uuid.UUID, qty int) error
	SetStockTx(tx *gorm.DB, tenantID, id uuid.UUID, stock int) error
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) CreateTx(tx *gorm.DB, p *model.Product) error {
	return translate(tx.Create(p).Error)
}

func (r *productRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Preload("Category").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) FindByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Preload("Category").
		Where("tenant_id = ? AND barcode = ? AND is_active = true", tenantID, barcode).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) List(ctx context.Context, tenantID uuid.UUID, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{}).Where("tenant_id = ?", tenantID)
	if !filter.IncludeInactive {
		q = q.Where("is_active = true")
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Search != "" {
		q = q.Where("(name ILIKE ? OR barcode LIKE ?)", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := pageBounds(filter.Page, filter.Limit, 100, 500)
	err := q.Preload("Category").Order("name ASC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&products).Error
	return products, total, err
}

// UpdateTx writes the named metadata columns of p and nothing else, so two
// edits touching different fields both survive. Stock is not a metadata
// column: it goes through SetStockTx or DecrementStockTx.
func (r *productRepo) UpdateTx(tx *gorm.DB, p *model.Product, columns []string) error {
	cols := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		if !metadataColumns[c] {
			return fmt.Errorf("product update: column %q is not editable", c)
		}
		cols = append(cols, c)
	}
	res := tx.Model(&model.Product{}).
		Where("tenant_id = ? AND id = ?", p.TenantID, p.ID).
		Select(append(cols, "updated_at")).
		Updates(p)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepo) Deactivate(ctx context.Context, tenantID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepo) CountActiveByCategory(ctx context.Context, tenantID, categoryID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("tenant_id = ? AND category_id = ? AND is_active = true", tenantID, categoryID).
		Count(&n).Error
	return n, err
}

func (r *productRepo) ListLowStock(ctx context.Context, tenantID uuid.UUID, threshold, limit int) ([]model.Product, error) {
	var products []model.Product
	q := r.db.WithContext(ctx).Preload("Category").
		Where("tenant_id = ? AND is_active = true AND stock <= ?", tenantID, threshold).
		Order("stock ASC").Order("name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&products).Error
	return products, err
}

func (r *productRepo) CountLowStock(ctx context.Context, tenantID uuid.UUID, threshold int) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("tenant_id = ? AND is_active = true AND stock <= ?", tenantID, threshold).
		Count(&n).Error
	return n, err
}

func (r *productRepo) FindForUpdateTx(tx *gorm.DB, tenantID uuid.UUID, ids []uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id IN ? AND is_active = true", tenantID, ids).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) DecrementStockTx(tx *gorm.DB, tenantID, id uuid.UUID, qty int) error {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND tenant_id = ? AND stock >= ?", id, tenantID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *productRepo) SetStockTx(tx *gorm.DB, tenantID, id uuid.UUID, stock int) error {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("stock", stock)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// pageBounds normalizes page/limit query values.
func pageBounds(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > max {
		limit = def
	}
	return page, limit
}
