package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"akppos/internal/auth"
	"akppos/internal/dto"
	"akppos/internal/metrics"
	"akppos/internal/model"
	"akppos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceEnqueuer hands a committed order to the async invoice pipeline.
type InvoiceEnqueuer interface {
	EnqueueInvoice(ctx context.Context, tenantID, orderID uuid.UUID, customerEmail string) error
}

type OrderService interface {
	Checkout(ctx context.Context, p auth.Principal, req dto.CheckoutRequest) (*dto.OrderResponse, error)
	Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*dto.OrderResponse, error)
	List(ctx context.Context, p auth.Principal, filter dto.OrderFilter) (*dto.OrderListResponse, error)
}

// OrderOptions toggles optional checkout behaviour.
type OrderOptions struct {
	// VerifyTotals recomputes subTotal from the line prices and checks
	// totalAmount = subTotal + tax - discount before accepting a cart.
	VerifyTotals bool
}

type orderService struct {
	tx       repository.TxRunner
	orders   repository.OrderRepository
	products repository.ProductRepository
	ledger   repository.InventoryLogRepository
	invoices InvoiceEnqueuer
	metrics  *metrics.Metrics
	opts     OrderOptions
}

func NewOrderService(
	tx repository.TxRunner,
	orders repository.OrderRepository,
	products repository.ProductRepository,
	ledger repository.InventoryLogRepository,
	invoices InvoiceEnqueuer,
	m *metrics.Metrics,
	opts OrderOptions,
) OrderService {
	return &orderService{
		tx:       tx,
		orders:   orders,
		products: products,
		ledger:   ledger,
		invoices: invoices,
		metrics:  m,
		opts:     opts,
	}
}

// ── Checkout ──────────────────────────────────────────────────────────────────
// One transaction:
//   1. Lock every product of the cart (SELECT ... FOR UPDATE, id order)
//   2. Validate tenant ownership and stock against the locked rows
//   3. Insert order + items (prices as submitted)
//   4. Conditional decrement per line (stock >= qty guard)
//   5. Append one SALE ledger row per line
// After commit the invoice job is enqueued best-effort.

func (s *orderService) Checkout(ctx context.Context, p auth.Principal, req dto.CheckoutRequest) (*dto.OrderResponse, error) {
	start := time.Now()
	order, err := s.checkout(ctx, p, req)
	s.metrics.ObserveCheckout(checkoutOutcome(err), time.Since(start))
	if err != nil {
		if !isDomainError(err) {
			log.Error().Err(err).
				Str("tenant_id", p.TenantID.String()).
				Str("user_id", p.UserID.String()).
				Int("items", len(req.Items)).
				Msg("checkout failed")
			return nil, persistence("checkout", err)
		}
		return nil, err
	}

	if s.invoices != nil {
		email := ""
		if req.CustomerEmail != nil {
			email = *req.CustomerEmail
		}
		if err := s.invoices.EnqueueInvoice(ctx, p.TenantID, order.ID, email); err != nil {
			log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("checkout: failed to enqueue invoice job")
		}
	}
	return orderToResponse(order), nil
}

func (s *orderService) checkout(ctx context.Context, p auth.Principal, req dto.CheckoutRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	// Request binding enforces the same bounds; the engine does not rely on it.
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &ValidationError{Msg: "Quantity must be greater than 0"}
		}
		if item.Price.IsNegative() {
			return nil, &ValidationError{Msg: "Price must not be negative"}
		}
	}
	if s.opts.VerifyTotals {
		if err := verifyTotals(req); err != nil {
			return nil, err
		}
	}

	// Quantities are summed per product so that a product repeated across
	// lines is checked against its combined demand.
	demand := make(map[uuid.UUID]int, len(req.Items))
	for _, item := range req.Items {
		demand[item.ProductID] += item.Quantity
	}
	ids := make([]uuid.UUID, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var order *model.Order
	err := s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		defer s.metrics.TrackDBOperation("checkout_tx", time.Now())

		locked, err := s.products.FindForUpdateTx(tx, p.TenantID, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]model.Product, len(locked))
		for _, prod := range locked {
			byID[prod.ID] = prod
		}

		// Validation phase: nothing is written until every line passes.
		for _, item := range req.Items {
			prod, ok := byID[item.ProductID]
			if !ok {
				return ErrProductNotFound
			}
			if prod.Stock < demand[item.ProductID] {
				return &InsufficientStockError{
					ProductName: prod.Name,
					Available:   prod.Stock,
					Requested:   demand[item.ProductID],
				}
			}
		}

		o := &model.Order{
			ID:            uuid.New(),
			TenantID:      p.TenantID,
			UserID:        p.UserID,
			SubTotal:      req.SubTotal,
			Tax:           req.Tax,
			Discount:      req.Discount,
			TotalAmount:   req.TotalAmount,
			PaymentMethod: req.PaymentMethod,
			CustomerName:  req.CustomerName,
			Status:        model.OrderStatusCompleted,
		}
		for _, item := range req.Items {
			o.Items = append(o.Items, model.OrderItem{
				ID:        uuid.New(),
				OrderID:   o.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price,
			})
		}
		if err := s.orders.CreateTx(tx, o); err != nil {
			return err
		}

		for _, item := range req.Items {
			if err := s.products.DecrementStockTx(tx, p.TenantID, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					prod := byID[item.ProductID]
					return &InsufficientStockError{
						ProductName: prod.Name,
						Available:   prod.Stock,
						Requested:   demand[item.ProductID],
					}
				}
				return err
			}
		}

		reason := fmt.Sprintf("Order %s", o.ID)
		for _, item := range req.Items {
			entry := &model.InventoryLog{
				ID:        uuid.New(),
				TenantID:  p.TenantID,
				ProductID: item.ProductID,
				Type:      model.LogSale,
				Quantity:  -item.Quantity,
				Reason:    reason,
			}
			if err := s.ledger.AppendTx(tx, entry); err != nil {
				return err
			}
		}

		for i := range o.Items {
			if prod, ok := byID[o.Items[i].ProductID]; ok {
				o.Items[i].Product = &prod
			}
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// verifyTotals recomputes the cart figures from the submitted line prices.
func verifyTotals(req dto.CheckoutRequest) error {
	sub := decimal.Zero
	for _, item := range req.Items {
		sub = sub.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if !sub.Round(2).Equal(req.SubTotal.Round(2)) {
		return &TotalsMismatchError{Field: "subTotal", Expected: sub, Got: req.SubTotal}
	}
	total := req.SubTotal.Add(req.Tax).Sub(req.Discount)
	if !total.Round(2).Equal(req.TotalAmount.Round(2)) {
		return &TotalsMismatchError{Field: "totalAmount", Expected: total, Got: req.TotalAmount}
	}
	return nil
}

func checkoutOutcome(err error) string {
	var (
		stockErr   *InsufficientStockError
		totalsErr  *TotalsMismatchError
		invalidErr *ValidationError
	)
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrEmptyCart):
		return metrics.OutcomeEmptyCart
	case errors.Is(err, ErrProductNotFound):
		return metrics.OutcomeNotFound
	case errors.As(err, &stockErr):
		return metrics.OutcomeInsufficientStock
	case errors.As(err, &totalsErr):
		return metrics.OutcomeTotalsMismatch
	case errors.As(err, &invalidErr):
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *orderService) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*dto.OrderResponse, error) {
	o, err := s.orders.FindByID(ctx, p.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, persistence("get order", err)
	}
	return orderToResponse(o), nil
}

func (s *orderService) List(ctx context.Context, p auth.Principal, filter dto.OrderFilter) (*dto.OrderListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	orders, total, err := s.orders.List(ctx, p.TenantID, filter.Page, filter.Limit)
	if err != nil {
		return nil, persistence("list orders", err)
	}
	data := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		data = append(data, *orderToResponse(&orders[i]))
	}
	return &dto.OrderListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func orderToResponse(o *model.Order) *dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		items = append(items, dto.OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: name,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	cashier := ""
	if o.User != nil {
		cashier = o.User.Name
	}
	return &dto.OrderResponse{
		ID:            o.ID,
		TenantID:      o.TenantID,
		UserID:        o.UserID,
		CashierName:   cashier,
		SubTotal:      o.SubTotal,
		Tax:           o.Tax,
		Discount:      o.Discount,
		TotalAmount:   o.TotalAmount,
		PaymentMethod: o.PaymentMethod,
		CustomerName:  o.CustomerName,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt.UTC().Format(time.RFC3339),
		Items:         items,
	}
}
