package model

import (
	"time"

	"github.com/google/uuid"
)

// InventoryLogType tags the cause of a stock change.
type InventoryLogType string

const (
	LogInitial    InventoryLogType = "INITIAL"
	LogSale       InventoryLogType = "SALE"
	LogRestock    InventoryLogType = "RESTOCK"
	LogAdjustment InventoryLogType = "ADJUSTMENT"
)

// InventoryLog is an append-only audit row. SALE rows carry a negative
// quantity; RESTOCK and ADJUSTMENT rows carry the absolute difference.
type InventoryLog struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID  uuid.UUID        `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID        `gorm:"type:uuid;not null;index"`
	Type      InventoryLogType `gorm:"type:varchar(20);not null"`
	Quantity  int              `gorm:"not null"`
	Reason    string
	CreatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
