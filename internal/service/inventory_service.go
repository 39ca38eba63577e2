package service

import (
	"context"
	"errors"
	"time"

	"akppos/internal/auth"
	"akppos/internal/dto"
	"akppos/internal/metrics"
	"akppos/internal/model"
	"akppos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	reasonManualRestock    = "Manual Restock"
	reasonManualAdjustment = "Manual Adjustment"
	reasonInitialStock     = "Initial stock"
)

type InventoryService interface {
	// SetStock moves a product to newStock and records the difference in
	// the ledger. A zero difference writes nothing.
	SetStock(ctx context.Context, p auth.Principal, productID uuid.UUID, req dto.SetStockRequest) (*dto.StockChangeResponse, error)
	ListLogs(ctx context.Context, p auth.Principal, filter dto.InventoryLogFilter) (*dto.InventoryLogListResponse, error)
	LowStock(ctx context.Context, p auth.Principal) (*dto.LowStockResponse, error)
}

type inventoryService struct {
	tx        repository.TxRunner
	products  repository.ProductRepository
	ledger    repository.InventoryLogRepository
	threshold int
	metrics   *metrics.Metrics
}

func NewInventoryService(
	tx repository.TxRunner,
	products repository.ProductRepository,
	ledger repository.InventoryLogRepository,
	lowStockThreshold int,
	m *metrics.Metrics,
) InventoryService {
	return &inventoryService{
		tx:        tx,
		products:  products,
		ledger:    ledger,
		threshold: lowStockThreshold,
		metrics:   m,
	}
}

func (s *inventoryService) SetStock(ctx context.Context, p auth.Principal, productID uuid.UUID, req dto.SetStockRequest) (*dto.StockChangeResponse, error) {
	if req.Stock == nil || *req.Stock < 0 {
		return nil, &ValidationError{Msg: "stock must be a non-negative integer"}
	}

	var change stockChange
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		change, err = applyStockChangeTx(tx, s.products, s.ledger, p.TenantID, productID, *req.Stock, req.Reason)
		return err
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		log.Error().Err(err).
			Str("tenant_id", p.TenantID.String()).
			Str("product_id", productID.String()).
			Msg("set stock failed")
		return nil, persistence("set stock", err)
	}

	if change.Type != "" {
		s.metrics.IncStockAdjustment(string(change.Type))
	}
	return change.response(productID), nil
}

// stockChange describes what applyStockChangeTx did.
type stockChange struct {
	Old, New int
	Type     model.InventoryLogType // empty when nothing changed
	Quantity int
}

func (c stockChange) response(productID uuid.UUID) *dto.StockChangeResponse {
	return &dto.StockChangeResponse{
		ProductID: productID,
		OldStock:  c.Old,
		NewStock:  c.New,
		Type:      string(c.Type),
		Quantity:  c.Quantity,
	}
}

// applyStockChangeTx locks the product row, sets the new stock and appends a
// RESTOCK or ADJUSTMENT entry carrying |diff|. It must run inside tx.
func applyStockChangeTx(
	tx *gorm.DB,
	products repository.ProductRepository,
	ledger repository.InventoryLogRepository,
	tenantID, productID uuid.UUID,
	newStock int,
	reason string,
) (stockChange, error) {
	locked, err := products.FindForUpdateTx(tx, tenantID, []uuid.UUID{productID})
	if err != nil {
		return stockChange{}, err
	}
	if len(locked) == 0 {
		return stockChange{}, ErrProductNotFound
	}

	old := locked[0].Stock
	change := stockChange{Old: old, New: newStock}
	diff := newStock - old
	if diff == 0 {
		return change, nil
	}

	if err := products.SetStockTx(tx, tenantID, productID, newStock); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return stockChange{}, ErrProductNotFound
		}
		return stockChange{}, err
	}

	defaultReason := reasonManualRestock
	change.Type, change.Quantity = model.LogRestock, diff
	if diff < 0 {
		defaultReason = reasonManualAdjustment
		change.Type, change.Quantity = model.LogAdjustment, -diff
	}
	if reason == "" {
		reason = defaultReason
	}

	entry := &model.InventoryLog{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ProductID: productID,
		Type:      change.Type,
		Quantity:  change.Quantity,
		Reason:    reason,
	}
	if err := ledger.AppendTx(tx, entry); err != nil {
		return stockChange{}, err
	}
	return change, nil
}

func (s *inventoryService) ListLogs(ctx context.Context, p auth.Principal, filter dto.InventoryLogFilter) (*dto.InventoryLogListResponse, error) {
	f := repository.InventoryLogFilter{
		Type:  model.InventoryLogType(filter.Type),
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	if filter.ProductID != "" {
		id, err := uuid.Parse(filter.ProductID)
		if err != nil {
			return nil, &ValidationError{Msg: "productId must be a valid UUID"}
		}
		f.ProductID = &id
	}
	switch f.Type {
	case "", model.LogInitial, model.LogSale, model.LogRestock, model.LogAdjustment:
	default:
		return nil, &ValidationError{Msg: "type must be one of INITIAL, SALE, RESTOCK, ADJUSTMENT"}
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 500 {
		f.Limit = 100
	}

	logs, total, err := s.ledger.List(ctx, p.TenantID, f)
	if err != nil {
		return nil, persistence("list inventory logs", err)
	}

	data := make([]dto.InventoryLogResponse, 0, len(logs))
	for _, l := range logs {
		r := dto.InventoryLogResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			Type:      string(l.Type),
			Quantity:  l.Quantity,
			Reason:    l.Reason,
			CreatedAt: l.CreatedAt.UTC().Format(time.RFC3339),
		}
		if l.Product != nil {
			r.ProductName = l.Product.Name
		}
		data = append(data, r)
	}
	return &dto.InventoryLogListResponse{Data: data, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *inventoryService) LowStock(ctx context.Context, p auth.Principal) (*dto.LowStockResponse, error) {
	products, err := s.products.ListLowStock(ctx, p.TenantID, s.threshold, 0)
	if err != nil {
		return nil, persistence("low stock report", err)
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, productToResponse(&products[i]))
	}
	return &dto.LowStockResponse{Threshold: s.threshold, Products: out}, nil
}
