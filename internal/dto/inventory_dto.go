package dto

import (
	"github.com/google/uuid"
)

type InventoryLogFilter struct {
	ProductID string `form:"productId"`
	Type      string `form:"type"`
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=100"`
}

type InventoryLogResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName,omitempty"`
	Type        string    `json:"type"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason"`
	CreatedAt   string    `json:"createdAt"`
}

type InventoryLogListResponse struct {
	Data  []InventoryLogResponse `json:"data"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}

type LowStockResponse struct {
	Threshold int               `json:"threshold"`
	Products  []ProductResponse `json:"products"`
}

type DashboardStatsResponse struct {
	TodaySales        string            `json:"todaySales"`
	TodayOrderCount   int64             `json:"todayOrderCount"`
	LowStockCount     int64             `json:"lowStockCount"`
	LowStockProducts  []ProductResponse `json:"lowStockProducts"`
	TotalOrders       int64             `json:"totalOrders"`
	LowStockThreshold int               `json:"lowStockThreshold"`
}
