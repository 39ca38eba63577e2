package model

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products. Name is unique per tenant, case-insensitively
// (enforced by the idx_categories_tenant_lower_name schema patch).
type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name used by the raw schema patches.
func (Category) TableName() string { return "categories" }
