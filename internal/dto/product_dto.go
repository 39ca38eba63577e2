package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	Name        string          `json:"name"        validate:"required,min=1,max=120"`
	Description *string         `json:"description"`
	CategoryID  uuid.UUID       `json:"categoryId"  validate:"required"`
	Price       decimal.Decimal `json:"price"       validate:"gt=0"`
	Stock       int             `json:"stock"       validate:"min=0"`
	Barcode     *string         `json:"barcode"     validate:"omitempty,max=64"`
}

// UpdateProductRequest is a partial edit. A present Stock goes through the
// restock/adjustment path and is logged.
type UpdateProductRequest struct {
	Name        *string          `json:"name"        validate:"omitempty,min=1,max=120"`
	Description *string          `json:"description"`
	CategoryID  *uuid.UUID       `json:"categoryId"`
	Price       *decimal.Decimal `json:"price"       validate:"omitempty,gt=0"`
	Stock       *int             `json:"stock"       validate:"omitempty,min=0"`
	Barcode     *string          `json:"barcode"     validate:"omitempty,max=64"`
	IsActive    *bool            `json:"isActive"`
}

// SetStockRequest is the restock / manual adjustment entry point.
type SetStockRequest struct {
	Stock  *int   `json:"stock"  validate:"required,min=0"`
	Reason string `json:"reason" validate:"max=200"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductFilter struct {
	CategoryID      string `form:"categoryId"`
	Search          string `form:"search"`
	IncludeInactive bool   `form:"includeInactive"`
	Page            int    `form:"page,default=1"`
	Limit           int    `form:"limit,default=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description,omitempty"`
	Barcode      *string         `json:"barcode,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	IsActive     bool            `json:"isActive"`
	CategoryID   uuid.UUID       `json:"categoryId"`
	CategoryName string          `json:"categoryName,omitempty"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type StockChangeResponse struct {
	ProductID uuid.UUID `json:"productId"`
	OldStock  int       `json:"oldStock"`
	NewStock  int       `json:"newStock"`
	Type      string    `json:"type,omitempty"`
	Quantity  int       `json:"quantity"`
}
