package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"orderId"`
	Number      string          `json:"number"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      string          `json:"status"`
	EmailTo     *string         `json:"emailTo,omitempty"`
	EmailStatus string          `json:"emailStatus"`
	CreatedAt   string          `json:"createdAt"`
}
