package repository

import (
	"context"
	"time"

	"akppos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository interface {
	// Upsert creates the invoice or refreshes the rendered fields of the
	// existing invoice for the same order.
	Upsert(ctx context.Context, inv *model.Invoice) error
	FindByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) (*model.Invoice, error)
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Invoice, error)
	Update(ctx context.Context, inv *model.Invoice) error
	// ListPendingEmailRetries returns invoices whose email delivery failed
	// and whose next attempt is due.
	ListPendingEmailRetries(ctx context.Context, now time.Time, limit int) ([]model.Invoice, error)
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) Upsert(ctx context.Context, inv *model.Invoice) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"number", "total_amount", "status", "pdf_path", "last_error", "updated_at"}),
	}).Create(inv).Error
}

func (r *invoiceRepo) FindByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND order_id = ?", tenantID, orderID).First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) Update(ctx context.Context, inv *model.Invoice) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

func (r *invoiceRepo) ListPendingEmailRetries(ctx context.Context, now time.Time, limit int) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Where("email_status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", model.EmailFailed, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}
