package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"akppos/internal/model"
	"akppos/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Generator renders and stores the invoice of an order.
type Generator interface {
	Generate(ctx context.Context, tenantID, orderID uuid.UUID, emailTo string) (*model.Invoice, error)
}

// EmailEnqueuer hands a rendered invoice to the email queue.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, tenantID, invoiceID uuid.UUID) error
}

const invoiceAttempts = 3

// retryBaseDelay is the first pause of withRetry; it doubles per attempt.
var retryBaseDelay = time.Second

type InvoiceWorker struct {
	gen    Generator
	emails EmailEnqueuer
}

func NewInvoiceWorker(gen Generator, emails EmailEnqueuer) *InvoiceWorker {
	return &InvoiceWorker{gen: gen, emails: emails}
}

// Process renders the invoice with up to three attempts and, when the
// customer left an email address, queues its delivery.
func (w *InvoiceWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload InvoiceJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invoice_worker: invalid payload: %w", err)
	}
	if payload.TenantID == uuid.Nil || payload.OrderID == uuid.Nil {
		return errors.New("invoice_worker: tenant_id and order_id are required")
	}

	var inv *model.Invoice
	err := withRetry(ctx, invoiceAttempts, func(attempt int) error {
		var genErr error
		inv, genErr = w.gen.Generate(ctx, payload.TenantID, payload.OrderID, payload.CustomerEmail)
		if genErr != nil {
			log.Warn().Err(genErr).
				Str("order_id", payload.OrderID.String()).
				Int("attempt", attempt+1).
				Msg("invoice_worker: generation failed")
		}
		if errors.Is(genErr, service.ErrOrderNotFound) {
			return permanent(genErr)
		}
		return genErr
	})
	if err != nil {
		return fmt.Errorf("invoice_worker: order %s: %w", payload.OrderID, err)
	}

	log.Info().
		Str("order_id", payload.OrderID.String()).
		Str("invoice", inv.Number).
		Msg("invoice_worker: invoice generated")

	if inv.EmailTo != nil && inv.EmailStatus == model.EmailPending && w.emails != nil {
		if err := w.emails.EnqueueEmail(ctx, inv.TenantID, inv.ID); err != nil {
			return fmt.Errorf("invoice_worker: enqueue email: %w", err)
		}
	}
	return nil
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// permanent marks an error that withRetry must not retry.
func permanent(err error) error { return permanentError{err: err} }

// withRetry calls fn up to maxAttempts times, sleeping 1x, 2x, 4x ...
// retryBaseDelay between attempts.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := retryBaseDelay << uint(i-1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		err := fn(i)
		if err == nil {
			return nil
		}
		var pe permanentError
		if errors.As(err, &pe) {
			return pe.err
		}
		lastErr = err
	}
	return fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}
