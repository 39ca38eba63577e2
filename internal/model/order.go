package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const OrderStatusCompleted = "COMPLETED"

// Payment methods accepted at checkout.
const (
	PaymentCash = "CASH"
	PaymentCard = "CARD"
	PaymentQR   = "QR"
)

// Order is a completed sale. It is written once by checkout and never updated.
type Order struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	SubTotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Tax           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMethod string          `gorm:"type:varchar(20);not null"`
	CustomerName  *string
	Status        string `gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time

	Items []OrderItem `gorm:"foreignKey:OrderID"`
	User  *User       `gorm:"foreignKey:UserID"`
}

// OrderItem snapshots the unit price at sale time; later product price
// edits never touch it.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}
