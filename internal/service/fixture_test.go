package service

import (
	"context"
	"sync"
	"testing"

	"akppos/internal/auth"
	"akppos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fixture struct {
	store    *memStore
	tx       *memTxRunner
	products *memProductRepo
	orders   *memOrderRepo
	ledger   *memLedgerRepo
	cats     *memCategoryRepo
	users    *memUserRepo
	tenants  *memTenantRepo
	settings *memSettingsRepo
	invoices *memInvoiceRepo

	admin    auth.Principal
	category model.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	f := &fixture{
		store:    store,
		tx:       &memTxRunner{store: store},
		products: &memProductRepo{store: store},
		orders:   &memOrderRepo{store: store},
		ledger:   &memLedgerRepo{store: store},
		cats:     &memCategoryRepo{store: store},
		users:    &memUserRepo{store: store},
		tenants:  &memTenantRepo{store: store},
		settings: &memSettingsRepo{store: store},
		invoices: &memInvoiceRepo{store: store},
	}

	tenant := model.Tenant{ID: uuid.New(), Name: "Corner Shop"}
	store.tenants[tenant.ID] = tenant
	user := model.User{
		ID:       uuid.New(),
		TenantID: tenant.ID,
		Email:    "admin@example.com",
		Name:     "Admin",
		Role:     model.RoleAdmin,
	}
	store.users[user.ID] = user
	f.admin = auth.PrincipalFor(&user)

	f.category = model.Category{ID: uuid.New(), TenantID: tenant.ID, Name: "Beverages"}
	store.categories[f.category.ID] = f.category
	return f
}

// otherTenant registers a second tenant with its own admin.
func (f *fixture) otherTenant() auth.Principal {
	tenant := model.Tenant{ID: uuid.New(), Name: "Other Shop"}
	user := model.User{ID: uuid.New(), TenantID: tenant.ID, Email: "other@example.com", Name: "Other", Role: model.RoleAdmin}
	f.store.mu.Lock()
	f.store.tenants[tenant.ID] = tenant
	f.store.users[user.ID] = user
	f.store.mu.Unlock()
	return auth.PrincipalFor(&user)
}

func (f *fixture) staff() auth.Principal {
	p := f.admin
	p.UserID = uuid.New()
	p.Role = model.RoleStaff
	return p
}

func (f *fixture) addProduct(tenantID uuid.UUID, name string, price string, stock int) model.Product {
	p := model.Product{
		ID:         uuid.New(),
		TenantID:   tenantID,
		CategoryID: f.category.ID,
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		IsActive:   true,
	}
	f.store.mu.Lock()
	f.store.products[p.ID] = p
	f.store.mu.Unlock()
	return p
}

func (f *fixture) orderService(opts OrderOptions, enq InvoiceEnqueuer) OrderService {
	return NewOrderService(f.tx, f.orders, f.products, f.ledger, enq, nil, opts)
}

func (f *fixture) inventoryService() InventoryService {
	return NewInventoryService(f.tx, f.products, f.ledger, 10, nil)
}

func (f *fixture) productService() ProductService {
	return NewProductService(f.tx, f.products, f.cats, f.ledger, nil, nil)
}

// recordingEnqueuer captures invoice jobs handed over after checkout.
type recordingEnqueuer struct {
	mu   sync.Mutex
	jobs []uuid.UUID
	err  error
}

func (r *recordingEnqueuer) EnqueueInvoice(_ context.Context, _, orderID uuid.UUID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, orderID)
	return r.err
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
