package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"akppos/internal/auth"
	"akppos/internal/dto"
	"akppos/internal/metrics"
	"akppos/internal/model"
	"akppos/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const barcodeCacheTTL = 4 * time.Hour

// ProductService defines the business logic contract for the catalog.
type ProductService interface {
	Create(ctx context.Context, p auth.Principal, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*dto.ProductResponse, error)
	GetByBarcode(ctx context.Context, p auth.Principal, barcode string) (*dto.ProductResponse, error)
	List(ctx context.Context, p auth.Principal, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Update(ctx context.Context, p auth.Principal, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Deactivate(ctx context.Context, p auth.Principal, id uuid.UUID) error
}

type productService struct {
	tx         repository.TxRunner
	products   repository.ProductRepository
	categories repository.CategoryRepository
	ledger     repository.InventoryLogRepository
	rdb        *redis.Client
	metrics    *metrics.Metrics
}

// NewProductService builds the catalog service. rdb may be nil, in which case
// barcode lookups always hit the database.
func NewProductService(
	tx repository.TxRunner,
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	ledger repository.InventoryLogRepository,
	rdb *redis.Client,
	m *metrics.Metrics,
) ProductService {
	return &productService{
		tx:         tx,
		products:   products,
		categories: categories,
		ledger:     ledger,
		rdb:        rdb,
		metrics:    m,
	}
}

func (s *productService) Create(ctx context.Context, p auth.Principal, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	cat, err := s.categoryOf(ctx, p.TenantID, req.CategoryID)
	if err != nil {
		return nil, err
	}

	prod := &model.Product{
		ID:          uuid.New(),
		TenantID:    p.TenantID,
		CategoryID:  cat.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Barcode:     normalizeBarcode(req.Barcode),
		Price:       req.Price,
		Stock:       req.Stock,
		IsActive:    true,
	}

	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.products.CreateTx(tx, prod); err != nil {
			return err
		}
		if prod.Stock == 0 {
			return nil
		}
		return s.ledger.AppendTx(tx, &model.InventoryLog{
			ID:        uuid.New(),
			TenantID:  p.TenantID,
			ProductID: prod.ID,
			Type:      model.LogInitial,
			Quantity:  prod.Stock,
			Reason:    reasonInitialStock,
		})
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &ConflictError{Msg: "A product with this barcode already exists"}
		}
		return nil, persistence("create product", err)
	}
	if prod.Stock > 0 {
		s.metrics.IncStockAdjustment(string(model.LogInitial))
	}

	prod.Category = cat
	resp := productToResponse(prod)
	return &resp, nil
}

func (s *productService) Get(ctx context.Context, p auth.Principal, id uuid.UUID) (*dto.ProductResponse, error) {
	prod, err := s.products.FindByID(ctx, p.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, persistence("get product", err)
	}
	resp := productToResponse(prod)
	return &resp, nil
}

// GetByBarcode serves register scans. Hits are cached per tenant for
// barcodeCacheTTL; cache failures fall through to the database.
func (s *productService) GetByBarcode(ctx context.Context, p auth.Principal, barcode string) (*dto.ProductResponse, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, ErrProductNotFound
	}
	key := barcodeCacheKey(p.TenantID, barcode)

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
			var resp dto.ProductResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				return &resp, nil
			}
		}
	}

	prod, err := s.products.FindByBarcode(ctx, p.TenantID, barcode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, persistence("get product by barcode", err)
	}
	resp := productToResponse(prod)

	if s.rdb != nil {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			if err := s.rdb.Set(ctx, key, b, barcodeCacheTTL).Err(); err != nil {
				log.Debug().Err(err).Str("key", key).Msg("barcode cache set failed")
			}
		}
	}
	return &resp, nil
}

func (s *productService) List(ctx context.Context, p auth.Principal, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	f := repository.ProductFilter{
		Search:          strings.TrimSpace(filter.Search),
		IncludeInactive: filter.IncludeInactive,
		Page:            filter.Page,
		Limit:           filter.Limit,
	}
	if filter.CategoryID != "" {
		id, err := uuid.Parse(filter.CategoryID)
		if err != nil {
			return nil, &ValidationError{Msg: "categoryId must be a valid UUID"}
		}
		f.CategoryID = &id
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 500 {
		f.Limit = 100
	}

	products, total, err := s.products.List(ctx, p.TenantID, f)
	if err != nil {
		return nil, persistence("list products", err)
	}
	data := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		data = append(data, productToResponse(&products[i]))
	}
	return &dto.ProductListResponse{Data: data, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// Update applies a partial edit. A present Stock that differs from the
// current value goes through applyStockChangeTx in the same transaction.
func (s *productService) Update(ctx context.Context, p auth.Principal, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	prod, err := s.products.FindByID(ctx, p.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, persistence("get product", err)
	}
	oldBarcode := prod.Barcode

	// Only the columns named by the request are written back, so an edit
	// racing with this one keeps the fields this request did not touch.
	var columns []string
	if req.Name != nil {
		prod.Name = strings.TrimSpace(*req.Name)
		columns = append(columns, "name")
	}
	if req.Description != nil {
		prod.Description = req.Description
		columns = append(columns, "description")
	}
	if req.Price != nil {
		prod.Price = *req.Price
		columns = append(columns, "price")
	}
	if req.Barcode != nil {
		prod.Barcode = normalizeBarcode(req.Barcode)
		columns = append(columns, "barcode")
	}
	if req.IsActive != nil {
		prod.IsActive = *req.IsActive
		columns = append(columns, "is_active")
	}
	if req.CategoryID != nil && *req.CategoryID != prod.CategoryID {
		cat, err := s.categoryOf(ctx, p.TenantID, *req.CategoryID)
		if err != nil {
			return nil, err
		}
		prod.CategoryID = cat.ID
		prod.Category = cat
		columns = append(columns, "category_id")
	}

	var change stockChange
	err = s.tx.Transaction(ctx, func(tx *gorm.DB) error {
		// Stock first: the row lock only matches active products.
		if req.Stock != nil {
			var err error
			change, err = applyStockChangeTx(tx, s.products, s.ledger, p.TenantID, prod.ID, *req.Stock, "")
			if err != nil {
				return err
			}
		}
		if len(columns) == 0 {
			return nil
		}
		return s.products.UpdateTx(tx, prod, columns)
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrProductNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, &ConflictError{Msg: "A product with this barcode already exists"}
		case isDomainError(err):
			return nil, err
		}
		log.Error().Err(err).
			Str("tenant_id", p.TenantID.String()).
			Str("product_id", id.String()).
			Msg("update product failed")
		return nil, persistence("update product", err)
	}

	if change.Type != "" {
		s.metrics.IncStockAdjustment(string(change.Type))
		prod.Stock = change.New
	}
	s.invalidateBarcode(ctx, p.TenantID, oldBarcode, prod.Barcode)

	if fresh, err := s.products.FindByID(ctx, p.TenantID, id); err == nil {
		prod = fresh
	} else {
		log.Warn().Err(err).Str("product_id", id.String()).Msg("update product: re-read failed")
	}
	resp := productToResponse(prod)
	return &resp, nil
}

// Deactivate is a soft delete; historical orders keep their product rows.
func (s *productService) Deactivate(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	prod, err := s.products.FindByID(ctx, p.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return persistence("get product", err)
	}
	if err := s.products.Deactivate(ctx, p.TenantID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return persistence("deactivate product", err)
	}
	s.invalidateBarcode(ctx, p.TenantID, prod.Barcode)
	return nil
}

func (s *productService) categoryOf(ctx context.Context, tenantID, id uuid.UUID) (*model.Category, error) {
	cat, err := s.categories.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, persistence("get category", err)
	}
	return cat, nil
}

func (s *productService) invalidateBarcode(ctx context.Context, tenantID uuid.UUID, barcodes ...*string) {
	if s.rdb == nil {
		return
	}
	var keys []string
	for _, b := range barcodes {
		if b != nil && *b != "" {
			keys = append(keys, barcodeCacheKey(tenantID, *b))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("barcode cache invalidation failed")
	}
}

func barcodeCacheKey(tenantID uuid.UUID, barcode string) string {
	return "product:barcode:" + tenantID.String() + ":" + barcode
}

func normalizeBarcode(b *string) *string {
	if b == nil {
		return nil
	}
	v := strings.TrimSpace(*b)
	if v == "" {
		return nil
	}
	return &v
}

func productToResponse(p *model.Product) dto.ProductResponse {
	resp := dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Barcode:     p.Barcode,
		Price:       p.Price,
		Stock:       p.Stock,
		IsActive:    p.IsActive,
		CategoryID:  p.CategoryID,
	}
	if p.Category != nil {
		resp.CategoryName = p.Category.Name
	}
	return resp
}
