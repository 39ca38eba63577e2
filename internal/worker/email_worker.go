package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"akppos/internal/infra"
	"akppos/internal/metrics"
	"akppos/internal/model"
	"akppos/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// MaxEmailRetries is the number of failed deliveries after which an invoice
// email goes to the dead-letter queue.
const MaxEmailRetries = 5

// Mailer is the subset of infra.Mailer the worker needs.
type Mailer interface {
	SendInvoice(to, subject, body, pdfPath string) error
}

type EmailWorker struct {
	invoices repository.InvoiceRepository
	mailer   Mailer
	cb       *infra.CircuitBreaker
	rdb      *redis.Client
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewEmailWorker(
	invoices repository.InvoiceRepository,
	mailer Mailer,
	cb *infra.CircuitBreaker,
	rdb *redis.Client,
	m *metrics.Metrics,
) *EmailWorker {
	return &EmailWorker{
		invoices: invoices,
		mailer:   mailer,
		cb:       cb,
		rdb:      rdb,
		metrics:  m,
		now:      time.Now,
	}
}

// Process delivers one invoice email. Delivery failures are recorded on the
// invoice for the retry cron; only unreadable jobs return an error.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	inv, err := w.invoices.FindByID(ctx, payload.TenantID, payload.InvoiceID)
	if err != nil {
		return fmt.Errorf("email_worker: load invoice %s: %w", payload.InvoiceID, err)
	}
	if inv.EmailTo == nil || *inv.EmailTo == "" || inv.EmailStatus == model.EmailSent {
		log.Debug().Str("invoice_id", inv.ID.String()).Msg("email_worker: nothing to send")
		return nil
	}
	return w.deliver(ctx, inv)
}

func (w *EmailWorker) deliver(ctx context.Context, inv *model.Invoice) error {
	pdfPath := ""
	if inv.PDFPath != nil {
		pdfPath = *inv.PDFPath
	}
	subject := fmt.Sprintf("Invoice %s", inv.Number)
	body := fmt.Sprintf("Thank you for your purchase.\n\nYour invoice %s for %s is attached.\n",
		inv.Number, inv.TotalAmount.StringFixed(2))

	var sendErr error
	cbErr := w.cb.Execute(func() error {
		sendErr = w.mailer.SendInvoice(*inv.EmailTo, subject, body, pdfPath)
		// A missing configuration says nothing about the relay's health.
		if errors.Is(sendErr, infra.ErrMailerNotConfigured) {
			return nil
		}
		return sendErr
	})
	if cbErr != nil {
		sendErr = cbErr
	}

	switch {
	case sendErr == nil:
		inv.EmailStatus = model.EmailSent
		inv.LastError = nil
		inv.NextRetryAt = nil
		w.metrics.IncInvoiceJob(JobEmail, "sent")
		log.Info().Str("invoice", inv.Number).Str("to", *inv.EmailTo).Msg("email_worker: invoice sent")

	case errors.Is(sendErr, infra.ErrMailerNotConfigured):
		w.markFailed(inv, sendErr)
		inv.NextRetryAt = nil
		w.metrics.IncInvoiceJob(JobEmail, "skipped")
		log.Warn().Str("invoice", inv.Number).Msg("email_worker: SMTP not configured, email not sent")

	default:
		w.markFailed(inv, sendErr)
		inv.RetryCount++
		if inv.RetryCount >= MaxEmailRetries {
			inv.NextRetryAt = nil
			w.metrics.IncInvoiceJob(JobEmail, "dlq")
			payload, _ := json.Marshal(EmailJobPayload{TenantID: inv.TenantID, InvoiceID: inv.ID})
			SendToDLQ(ctx, w.rdb, QueueEmail, JobEmail, payload,
				fmt.Sprintf("max retries (%d) exceeded: %s", MaxEmailRetries, sendErr), inv.RetryCount)
		} else {
			next := w.now().Add(computeRetryBackoff(inv.RetryCount))
			inv.NextRetryAt = &next
			w.metrics.IncInvoiceJob(JobEmail, "retry")
			log.Warn().Err(sendErr).
				Str("invoice", inv.Number).
				Int("retry_count", inv.RetryCount).
				Time("next_retry_at", next).
				Msg("email_worker: delivery failed, retry scheduled")
		}
	}

	if err := w.invoices.Update(ctx, inv); err != nil {
		log.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("email_worker: failed to save delivery state")
		return err
	}
	return nil
}

func (w *EmailWorker) markFailed(inv *model.Invoice, err error) {
	msg := err.Error()
	inv.EmailStatus = model.EmailFailed
	inv.LastError = &msg
}

// computeRetryBackoff is 30s doubled per previous failure, capped at 30m.
func computeRetryBackoff(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	d := 30 * time.Second
	for i := 1; i < retryCount; i++ {
		d *= 2
		if d >= 30*time.Minute {
			return 30 * time.Minute
		}
	}
	return d
}
