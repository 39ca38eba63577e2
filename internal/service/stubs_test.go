package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"akppos/internal/model"
	"akppos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the database. Transactions are
// serialized and rolled back by restoring a snapshot, which is enough to
// observe atomicity from the service layer.
type memStore struct {
	txMu sync.Mutex // held for the whole of a Transaction
	mu   sync.Mutex // guards the maps

	calls int

	tenants    map[uuid.UUID]model.Tenant
	users      map[uuid.UUID]model.User
	categories map[uuid.UUID]model.Category
	products   map[uuid.UUID]model.Product
	orders     map[uuid.UUID]model.Order
	logs       []model.InventoryLog
	settings   map[uuid.UUID]model.Settings // by tenant
	invoices   map[uuid.UUID]model.Invoice

	// failAppend makes the next ledger append fail.
	failAppend error
	// beforeProductUpdate runs ahead of UpdateTx, standing in for a
	// concurrent writer.
	beforeProductUpdate func()
}

func newMemStore() *memStore {
	return &memStore{
		tenants:    map[uuid.UUID]model.Tenant{},
		users:      map[uuid.UUID]model.User{},
		categories: map[uuid.UUID]model.Category{},
		products:   map[uuid.UUID]model.Product{},
		orders:     map[uuid.UUID]model.Order{},
		settings:   map[uuid.UUID]model.Settings{},
		invoices:   map[uuid.UUID]model.Invoice{},
	}
}

func (s *memStore) touch() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *memStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type memSnapshot struct {
	tenants    map[uuid.UUID]model.Tenant
	users      map[uuid.UUID]model.User
	categories map[uuid.UUID]model.Category
	products   map[uuid.UUID]model.Product
	orders     map[uuid.UUID]model.Order
	logs       []model.InventoryLog
	settings   map[uuid.UUID]model.Settings
	invoices   map[uuid.UUID]model.Invoice
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		tenants:    copyMap(s.tenants),
		users:      copyMap(s.users),
		categories: copyMap(s.categories),
		products:   copyMap(s.products),
		orders:     copyMap(s.orders),
		logs:       append([]model.InventoryLog(nil), s.logs...),
		settings:   copyMap(s.settings),
		invoices:   copyMap(s.invoices),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants = snap.tenants
	s.users = snap.users
	s.categories = snap.categories
	s.products = snap.products
	s.orders = snap.orders
	s.logs = snap.logs
	s.settings = snap.settings
	s.invoices = snap.invoices
}

// ── TxRunner ──────────────────────────────────────────────────────────────────

type memTxRunner struct{ store *memStore }

var _ repository.TxRunner = (*memTxRunner)(nil)

func (r *memTxRunner) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	r.store.touch()
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	snap := r.store.snapshot()
	if err := fn(nil); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

// ── Products ──────────────────────────────────────────────────────────────────

type memProductRepo struct{ store *memStore }

var _ repository.ProductRepository = (*memProductRepo)(nil)

func (r *memProductRepo) withCategory(p model.Product) *model.Product {
	if c, ok := r.store.categories[p.CategoryID]; ok {
		p.Category = &c
	}
	return &p
}

func (r *memProductRepo) CreateTx(_ *gorm.DB, p *model.Product) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if p.Barcode != nil {
		for _, other := range r.store.products {
			if other.TenantID == p.TenantID && other.Barcode != nil && *other.Barcode == *p.Barcode {
				return repository.ErrDuplicate
			}
		}
	}
	cp := *p
	cp.Category = nil
	r.store.products[p.ID] = cp
	return nil
}

func (r *memProductRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.Product, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok || p.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return r.withCategory(p), nil
}

func (r *memProductRepo) FindByBarcode(_ context.Context, tenantID uuid.UUID, barcode string) (*model.Product, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.products {
		if p.TenantID == tenantID && p.IsActive && p.Barcode != nil && *p.Barcode == barcode {
			return r.withCategory(p), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memProductRepo) List(_ context.Context, tenantID uuid.UUID, f repository.ProductFilter) ([]model.Product, int64, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Product
	for _, p := range r.store.products {
		if p.TenantID != tenantID || (!f.IncludeInactive && !p.IsActive) {
			continue
		}
		if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) &&
			(p.Barcode == nil || !strings.Contains(*p.Barcode, f.Search)) {
			continue
		}
		out = append(out, *r.withCategory(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *memProductRepo) UpdateTx(_ *gorm.DB, p *model.Product, columns []string) error {
	r.store.touch()
	if hook := r.store.beforeProductUpdate; hook != nil {
		hook()
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.store.products[p.ID]
	if !ok || cur.TenantID != p.TenantID {
		return gorm.ErrRecordNotFound
	}
	for _, c := range columns {
		switch c {
		case "name":
			cur.Name = p.Name
		case "description":
			cur.Description = p.Description
		case "barcode":
			cur.Barcode = p.Barcode
		case "price":
			cur.Price = p.Price
		case "category_id":
			cur.CategoryID = p.CategoryID
		case "is_active":
			cur.IsActive = p.IsActive
		default:
			return fmt.Errorf("product update: column %q is not editable", c)
		}
	}
	r.store.products[p.ID] = cur
	return nil
}

func (r *memProductRepo) Deactivate(_ context.Context, tenantID, id uuid.UUID) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok || p.TenantID != tenantID {
		return gorm.ErrRecordNotFound
	}
	p.IsActive = false
	r.store.products[id] = p
	return nil
}

func (r *memProductRepo) CountActiveByCategory(_ context.Context, tenantID, categoryID uuid.UUID) (int64, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, p := range r.store.products {
		if p.TenantID == tenantID && p.CategoryID == categoryID && p.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *memProductRepo) lowStock(tenantID uuid.UUID, threshold int) []model.Product {
	var out []model.Product
	for _, p := range r.store.products {
		if p.TenantID == tenantID && p.IsActive && p.Stock <= threshold {
			out = append(out, *r.withCategory(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock != out[j].Stock {
			return out[i].Stock < out[j].Stock
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *memProductRepo) ListLowStock(_ context.Context, tenantID uuid.UUID, threshold, limit int) ([]model.Product, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := r.lowStock(tenantID, threshold)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memProductRepo) CountLowStock(_ context.Context, tenantID uuid.UUID, threshold int) (int64, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.lowStock(tenantID, threshold))), nil
}

func (r *memProductRepo) FindForUpdateTx(_ *gorm.DB, tenantID uuid.UUID, ids []uuid.UUID) ([]model.Product, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Product
	for _, id := range ids {
		if p, ok := r.store.products[id]; ok && p.TenantID == tenantID && p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memProductRepo) DecrementStockTx(_ *gorm.DB, tenantID, id uuid.UUID, qty int) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok || p.TenantID != tenantID || p.Stock < qty {
		return repository.ErrInsufficientStock
	}
	p.Stock -= qty
	r.store.products[id] = p
	return nil
}

func (r *memProductRepo) SetStockTx(_ *gorm.DB, tenantID, id uuid.UUID, stock int) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.products[id]
	if !ok || p.TenantID != tenantID {
		return gorm.ErrRecordNotFound
	}
	p.Stock = stock
	r.store.products[id] = p
	return nil
}

// ── Orders ────────────────────────────────────────────────────────────────────

type memOrderRepo struct{ store *memStore }

var _ repository.OrderRepository = (*memOrderRepo)(nil)

func (r *memOrderRepo) CreateTx(_ *gorm.DB, o *model.Order) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	cp := *o
	cp.Items = make([]model.OrderItem, len(o.Items))
	for i, item := range o.Items {
		item.Product = nil
		cp.Items[i] = item
	}
	cp.User = nil
	r.store.orders[o.ID] = cp
	return nil
}

func (r *memOrderRepo) hydrate(o model.Order) model.Order {
	items := make([]model.OrderItem, len(o.Items))
	for i, item := range o.Items {
		if p, ok := r.store.products[item.ProductID]; ok {
			item.Product = &p
		}
		items[i] = item
	}
	o.Items = items
	if u, ok := r.store.users[o.UserID]; ok {
		o.User = &u
	}
	return o
}

func (r *memOrderRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.Order, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, ok := r.store.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	h := r.hydrate(o)
	return &h, nil
}

func (r *memOrderRepo) List(_ context.Context, tenantID uuid.UUID, page, limit int) ([]model.Order, int64, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Order
	for _, o := range r.store.orders {
		if o.TenantID == tenantID {
			out = append(out, r.hydrate(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	start := (page - 1) * limit
	if start >= len(out) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (r *memOrderRepo) SummarizeCompletedSince(_ context.Context, tenantID uuid.UUID, since time.Time) (repository.SalesSummary, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sum := repository.SalesSummary{Total: decimal.Zero}
	for _, o := range r.store.orders {
		if o.TenantID == tenantID && o.Status == model.OrderStatusCompleted && !o.CreatedAt.Before(since) {
			sum.Total = sum.Total.Add(o.TotalAmount)
			sum.Count++
		}
	}
	return sum, nil
}

func (r *memOrderRepo) Count(_ context.Context, tenantID uuid.UUID) (int64, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, o := range r.store.orders {
		if o.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// ── Inventory ledger ──────────────────────────────────────────────────────────

type memLedgerRepo struct{ store *memStore }

var _ repository.InventoryLogRepository = (*memLedgerRepo)(nil)

func (r *memLedgerRepo) AppendTx(_ *gorm.DB, l *model.InventoryLog) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.failAppend; err != nil {
		r.store.failAppend = nil
		return err
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	r.store.logs = append(r.store.logs, *l)
	return nil
}

func (r *memLedgerRepo) List(_ context.Context, tenantID uuid.UUID, f repository.InventoryLogFilter) ([]model.InventoryLog, int64, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.InventoryLog
	for i := len(r.store.logs) - 1; i >= 0; i-- {
		l := r.store.logs[i]
		if l.TenantID != tenantID {
			continue
		}
		if f.ProductID != nil && l.ProductID != *f.ProductID {
			continue
		}
		if f.Type != "" && l.Type != f.Type {
			continue
		}
		if p, ok := r.store.products[l.ProductID]; ok {
			l.Product = &p
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

// logsFor returns the ledger rows of productID in insertion order.
func (s *memStore) logsFor(productID uuid.UUID) []model.InventoryLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.InventoryLog
	for _, l := range s.logs {
		if l.ProductID == productID {
			out = append(out, l)
		}
	}
	return out
}

func (s *memStore) stockOf(productID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].Stock
}

// ── Categories ────────────────────────────────────────────────────────────────

type memCategoryRepo struct{ store *memStore }

var _ repository.CategoryRepository = (*memCategoryRepo)(nil)

func (r *memCategoryRepo) Create(_ context.Context, c *model.Category) error {
	return r.CreateTx(nil, c)
}

func (r *memCategoryRepo) CreateTx(_ *gorm.DB, c *model.Category) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, other := range r.store.categories {
		if other.TenantID == c.TenantID && strings.EqualFold(other.Name, c.Name) {
			return repository.ErrDuplicate
		}
	}
	r.store.categories[c.ID] = *c
	return nil
}

func (r *memCategoryRepo) List(_ context.Context, tenantID uuid.UUID) ([]model.Category, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Category
	for _, c := range r.store.categories {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memCategoryRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.Category, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.categories[id]
	if !ok || c.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *memCategoryRepo) FindByName(_ context.Context, tenantID uuid.UUID, name string) (*model.Category, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range r.store.categories {
		if c.TenantID == tenantID && strings.EqualFold(c.Name, name) {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memCategoryRepo) Update(_ context.Context, c *model.Category) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cur, ok := r.store.categories[c.ID]
	if !ok || cur.TenantID != c.TenantID {
		return gorm.ErrRecordNotFound
	}
	cur.Name = c.Name
	r.store.categories[c.ID] = cur
	return nil
}

func (r *memCategoryRepo) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.categories[id]
	if !ok || c.TenantID != tenantID {
		return gorm.ErrRecordNotFound
	}
	for _, p := range r.store.products {
		if p.CategoryID == id {
			return repository.ErrReferenced
		}
	}
	delete(r.store.categories, id)
	return nil
}

// ── Users / tenants / settings ────────────────────────────────────────────────

type memUserRepo struct{ store *memStore }

var _ repository.UserRepository = (*memUserRepo)(nil)

func (r *memUserRepo) Create(_ context.Context, u *model.User) error { return r.CreateTx(nil, u) }

func (r *memUserRepo) CreateTx(_ *gorm.DB, u *model.User) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, other := range r.store.users {
		if other.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	r.store.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.User, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *memUserRepo) List(_ context.Context, tenantID uuid.UUID) ([]model.User, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.User
	for _, u := range r.store.users {
		if u.TenantID == tenantID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memUserRepo) Update(_ context.Context, u *model.User) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[u.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.store.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok || u.TenantID != tenantID {
		return gorm.ErrRecordNotFound
	}
	for _, o := range r.store.orders {
		if o.UserID == id {
			return repository.ErrReferenced
		}
	}
	delete(r.store.users, id)
	return nil
}

type memTenantRepo struct{ store *memStore }

var _ repository.TenantRepository = (*memTenantRepo)(nil)

func (r *memTenantRepo) CreateTx(_ *gorm.DB, t *model.Tenant) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.tenants[t.ID] = *t
	return nil
}

func (r *memTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tenants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *memTenantRepo) FindByName(_ context.Context, name string) (*model.Tenant, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, t := range r.store.tenants {
		if t.Name == name {
			return &t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type memSettingsRepo struct{ store *memStore }

var _ repository.SettingsRepository = (*memSettingsRepo)(nil)

func (r *memSettingsRepo) FindByTenant(_ context.Context, tenantID uuid.UUID) (*model.Settings, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.settings[tenantID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *memSettingsRepo) CreateIfMissingTx(_ *gorm.DB, s *model.Settings) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.settings[s.TenantID]; !ok {
		r.store.settings[s.TenantID] = *s
	}
	return nil
}

func (r *memSettingsRepo) Update(_ context.Context, s *model.Settings) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.settings[s.TenantID] = *s
	return nil
}

// ── Invoices ──────────────────────────────────────────────────────────────────

type memInvoiceRepo struct{ store *memStore }

var _ repository.InvoiceRepository = (*memInvoiceRepo)(nil)

func (r *memInvoiceRepo) Upsert(_ context.Context, inv *model.Invoice) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, cur := range r.store.invoices {
		if cur.OrderID == inv.OrderID {
			cur.Number, cur.TotalAmount, cur.Status = inv.Number, inv.TotalAmount, inv.Status
			cur.PDFPath, cur.LastError = inv.PDFPath, inv.LastError
			r.store.invoices[id] = cur
			return nil
		}
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	r.store.invoices[inv.ID] = *inv
	return nil
}

func (r *memInvoiceRepo) FindByOrderID(_ context.Context, tenantID, orderID uuid.UUID) (*model.Invoice, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, inv := range r.store.invoices {
		if inv.TenantID == tenantID && inv.OrderID == orderID {
			return &inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memInvoiceRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.Invoice, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	inv, ok := r.store.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return &inv, nil
}

func (r *memInvoiceRepo) Update(_ context.Context, inv *model.Invoice) error {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.invoices[inv.ID] = *inv
	return nil
}

func (r *memInvoiceRepo) ListPendingEmailRetries(_ context.Context, now time.Time, limit int) ([]model.Invoice, error) {
	r.store.touch()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.Invoice
	for _, inv := range r.store.invoices {
		if inv.EmailStatus == model.EmailFailed && inv.NextRetryAt != nil && !inv.NextRetryAt.After(now) {
			out = append(out, inv)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
