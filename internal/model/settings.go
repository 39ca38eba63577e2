package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Settings holds per-tenant invoicing and display configuration.
type Settings struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CompanyName    string    `gorm:"not null"`
	CompanyAddress string
	CompanyPhone   string
	CompanyEmail   *string
	CompanyLogo    *string
	TaxRate        decimal.Decimal `gorm:"type:decimal(5,4);not null"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName keeps the table singular-per-tenant in name as well.
func (Settings) TableName() string { return "settings" }
