package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CheckoutItemRequest struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	Quantity  int             `json:"quantity"  validate:"gt=0"`
	Price     decimal.Decimal `json:"price"     validate:"gte=0"`
}

// CheckoutRequest is the cart submitted by the register. An empty Items list
// is accepted here and rejected by the order service.
type CheckoutRequest struct {
	Items         []CheckoutItemRequest `json:"items"         validate:"dive"`
	PaymentMethod string                `json:"paymentMethod" validate:"required,oneof=CASH CARD QR"`
	SubTotal      decimal.Decimal       `json:"subTotal"      validate:"gte=0"`
	Tax           decimal.Decimal       `json:"tax"           validate:"gte=0"`
	Discount      decimal.Decimal       `json:"discount"      validate:"gte=0"`
	TotalAmount   decimal.Decimal       `json:"totalAmount"   validate:"gte=0"`
	CustomerName  *string               `json:"customerName"  validate:"omitempty,max=120"`
	CustomerEmail *string               `json:"customerEmail" validate:"omitempty,email"`
}

type OrderFilter struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=50"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	TenantID      uuid.UUID           `json:"tenantId"`
	UserID        uuid.UUID           `json:"userId"`
	CashierName   string              `json:"cashierName,omitempty"`
	SubTotal      decimal.Decimal     `json:"subTotal"`
	Tax           decimal.Decimal     `json:"tax"`
	Discount      decimal.Decimal     `json:"discount"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
	PaymentMethod string              `json:"paymentMethod"`
	CustomerName  *string             `json:"customerName,omitempty"`
	Status        string              `json:"status"`
	CreatedAt     string              `json:"createdAt"`
	Items         []OrderItemResponse `json:"items"`
}

type OrderListResponse struct {
	Data  []OrderResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}
