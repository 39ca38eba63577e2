package service

import (
	"context"
	"time"

	"akppos/internal/auth"
	"akppos/internal/dto"
	"akppos/internal/repository"
)

const dashboardLowStockTop = 5

type DashboardService interface {
	Stats(ctx context.Context, p auth.Principal) (*dto.DashboardStatsResponse, error)
}

type dashboardService struct {
	orders    repository.OrderRepository
	products  repository.ProductRepository
	threshold int
	now       func() time.Time
}

func NewDashboardService(orders repository.OrderRepository, products repository.ProductRepository, lowStockThreshold int) DashboardService {
	return &dashboardService{orders: orders, products: products, threshold: lowStockThreshold, now: time.Now}
}

func (s *dashboardService) Stats(ctx context.Context, p auth.Principal) (*dto.DashboardStatsResponse, error) {
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	today, err := s.orders.SummarizeCompletedSince(ctx, p.TenantID, startOfDay)
	if err != nil {
		return nil, persistence("summarize sales", err)
	}
	total, err := s.orders.Count(ctx, p.TenantID)
	if err != nil {
		return nil, persistence("count orders", err)
	}
	lowCount, err := s.products.CountLowStock(ctx, p.TenantID, s.threshold)
	if err != nil {
		return nil, persistence("count low stock", err)
	}
	low, err := s.products.ListLowStock(ctx, p.TenantID, s.threshold, dashboardLowStockTop)
	if err != nil {
		return nil, persistence("list low stock", err)
	}

	top := make([]dto.ProductResponse, 0, len(low))
	for i := range low {
		top = append(top, productToResponse(&low[i]))
	}
	return &dto.DashboardStatsResponse{
		TodaySales:        today.Total.StringFixed(2),
		TodayOrderCount:   today.Count,
		LowStockCount:     lowCount,
		LowStockProducts:  top,
		TotalOrders:       total,
		LowStockThreshold: s.threshold,
	}, nil
}
