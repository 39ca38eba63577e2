package repository

import (
	"context"

	"akppos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryRepository defines tenant-scoped CRUD operations for Category.
type CategoryRepository interface {
	Create(ctx context.Context, c *model.Category) error
	CreateTx(tx *gorm.DB, c *model.Category) error
	List(ctx context.Context, tenantID uuid.UUID) ([]model.Category, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Category, error)
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*model.Category, error)
	Update(ctx context.Context, c *model.Category) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type categoryRepo struct{ db *gorm.DB }

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) Create(ctx context.Context, c *model.Category) error {
	return r.CreateTx(r.db.WithContext(ctx), c)
}

func (r *categoryRepo) CreateTx(tx *gorm.DB, c *model.Category) error {
	return translate(tx.Create(c).Error)
}

func (r *categoryRepo) List(ctx context.Context, tenantID uuid.UUID) ([]model.Category, error) {
	var list []model.Category
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("name asc").Find(&list).Error
	return list, err
}

func (r *categoryRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepo) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*model.Category, error) {
	var c model.Category
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND lower(name) = lower(?)", tenantID, name).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoryRepo) Update(ctx context.Context, c *model.Category) error {
	return translate(r.db.WithContext(ctx).
		Model(&model.Category{}).
		Where("tenant_id = ? AND id = ?", c.TenantID, c.ID).
		Update("name", c.Name).Error)
}

func (r *categoryRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&model.Category{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
