package repository

import (
	"context"

	"akppos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository interface {
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*model.Settings, error)
	// CreateIfMissingTx inserts s unless the tenant already has settings.
	CreateIfMissingTx(tx *gorm.DB, s *model.Settings) error
	Update(ctx context.Context, s *model.Settings) error
}

type settingsRepo struct{ db *gorm.DB }

func NewSettingsRepository(db *gorm.DB) SettingsRepository { return &settingsRepo{db: db} }

func (r *settingsRepo) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*model.Settings, error) {
	var s model.Settings
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepo) CreateIfMissingTx(tx *gorm.DB, s *model.Settings) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		DoNothing: true,
	}).Create(s).Error
}

func (r *settingsRepo) Update(ctx context.Context, s *model.Settings) error {
	return r.db.WithContext(ctx).
		Model(&model.Settings{}).
		Where("tenant_id = ?", s.TenantID).
		Select("company_name", "company_address", "company_phone", "company_email",
			"company_logo", "tax_rate", "currency", "updated_at").
		Updates(s).Error
}
