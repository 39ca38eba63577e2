package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"akppos/internal/auth"
	"akppos/internal/dto"
	"akppos/internal/infra"
	"akppos/internal/model"
	"akppos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// InvoiceRenderer writes the PDF of one invoice and returns its path.
type InvoiceRenderer func(doc infra.InvoiceDocument, storagePath string) (string, error)

type InvoiceService interface {
	// Generate renders (or re-renders) the invoice of an order. A non-empty
	// emailTo marks the invoice for delivery.
	Generate(ctx context.Context, tenantID, orderID uuid.UUID, emailTo string) (*model.Invoice, error)
	Get(ctx context.Context, p auth.Principal, orderID uuid.UUID) (*dto.InvoiceResponse, error)
	// PDFPath returns the rendered file of an order's invoice, generating it
	// synchronously when the async job has not run yet.
	PDFPath(ctx context.Context, p auth.Principal, orderID uuid.UUID) (string, error)
}

type invoiceService struct {
	invoices    repository.InvoiceRepository
	orders      repository.OrderRepository
	settings    SettingsService
	render      InvoiceRenderer
	storagePath string
}

func NewInvoiceService(
	invoices repository.InvoiceRepository,
	orders repository.OrderRepository,
	settings SettingsService,
	render InvoiceRenderer,
	storagePath string,
) InvoiceService {
	if render == nil {
		render = infra.GenerateInvoicePDF
	}
	return &invoiceService{
		invoices:    invoices,
		orders:      orders,
		settings:    settings,
		render:      render,
		storagePath: storagePath,
	}
}

// InvoiceNumber derives the printed number of an order's invoice.
func InvoiceNumber(o *model.Order) string {
	return fmt.Sprintf("INV-%s-%s", o.CreatedAt.UTC().Format("20060102"), strings.ToUpper(o.ID.String()[:8]))
}

func (s *invoiceService) Generate(ctx context.Context, tenantID, orderID uuid.UUID, emailTo string) (*model.Invoice, error) {
	order, err := s.orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, persistence("get order", err)
	}
	st, err := s.settings.ForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	number := InvoiceNumber(order)
	inv := &model.Invoice{
		ID:          uuid.New(),
		TenantID:    tenantID,
		OrderID:     orderID,
		Number:      number,
		TotalAmount: order.TotalAmount,
		Status:      model.InvoiceGenerated,
		EmailStatus: model.EmailNone,
	}

	path, renderErr := s.render(infra.InvoiceDocument{Number: number, Order: order, Settings: st}, s.storagePath)
	if renderErr != nil {
		log.Error().Err(renderErr).Str("order_id", orderID.String()).Msg("invoice: PDF rendering failed")
		inv.Status = model.InvoiceFailed
		msg := renderErr.Error()
		inv.LastError = &msg
	} else {
		inv.PDFPath = &path
	}

	if err := s.invoices.Upsert(ctx, inv); err != nil {
		return nil, persistence("save invoice", err)
	}
	// Read back the canonical row; an earlier run may own the id.
	stored, err := s.invoices.FindByOrderID(ctx, tenantID, orderID)
	if err != nil {
		return nil, persistence("get invoice", err)
	}

	emailTo = strings.TrimSpace(emailTo)
	// A replay for an address that already received the invoice must not
	// queue a second delivery.
	alreadySent := stored.EmailStatus == model.EmailSent && stored.EmailTo != nil && *stored.EmailTo == emailTo
	if emailTo != "" && renderErr == nil && !alreadySent {
		stored.EmailTo = &emailTo
		stored.EmailStatus = model.EmailPending
		stored.RetryCount = 0
		stored.NextRetryAt = nil
		if err := s.invoices.Update(ctx, stored); err != nil {
			return nil, persistence("mark invoice email", err)
		}
	}
	if renderErr != nil {
		return stored, fmt.Errorf("render invoice %s: %w", number, renderErr)
	}
	return stored, nil
}

func (s *invoiceService) Get(ctx context.Context, p auth.Principal, orderID uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.invoices.FindByOrderID(ctx, p.TenantID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, persistence("get invoice", err)
	}
	return invoiceToResponse(inv), nil
}

func (s *invoiceService) PDFPath(ctx context.Context, p auth.Principal, orderID uuid.UUID) (string, error) {
	inv, err := s.invoices.FindByOrderID(ctx, p.TenantID, orderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", persistence("get invoice", err)
	}
	if inv != nil && inv.PDFPath != nil {
		if _, statErr := os.Stat(*inv.PDFPath); statErr == nil {
			return *inv.PDFPath, nil
		}
	}

	inv, err = s.Generate(ctx, p.TenantID, orderID, "")
	if err != nil {
		if isDomainError(err) {
			return "", err
		}
		return "", persistence("generate invoice", err)
	}
	return *inv.PDFPath, nil
}

func invoiceToResponse(inv *model.Invoice) *dto.InvoiceResponse {
	return &dto.InvoiceResponse{
		ID:          inv.ID,
		OrderID:     inv.OrderID,
		Number:      inv.Number,
		TotalAmount: inv.TotalAmount,
		Status:      inv.Status,
		EmailTo:     inv.EmailTo,
		EmailStatus: inv.EmailStatus,
		CreatedAt:   formatTime(inv.CreatedAt),
	}
}
