package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice states.
const (
	InvoiceGenerated = "generated"
	InvoiceFailed    = "failed"
)

// Email delivery states for an invoice.
const (
	EmailNone    = "none"
	EmailPending = "pending"
	EmailSent    = "sent"
	EmailFailed  = "failed"
)

// Invoice is the rendered receipt for one order. Retry fields drive the
// email retry cron.
type Invoice struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Number      string          `gorm:"type:varchar(40);not null"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status      string          `gorm:"type:varchar(20);not null"`
	PDFPath     *string         `gorm:"column:pdf_path"`

	EmailTo     *string
	EmailStatus string     `gorm:"type:varchar(20);not null"`
	RetryCount  int        `gorm:"not null"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at"`
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
