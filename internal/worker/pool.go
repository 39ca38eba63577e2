package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"akppos/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueInvoice = "jobs:invoice"
	QueueEmail   = "jobs:email"

	JobInvoice = "invoice"
	JobEmail   = "email"
)

// Job is the envelope pushed onto the Redis lists.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// InvoiceJobPayload asks for the invoice of one committed order.
type InvoiceJobPayload struct {
	TenantID      uuid.UUID `json:"tenant_id"`
	OrderID       uuid.UUID `json:"order_id"`
	CustomerEmail string    `json:"customer_email,omitempty"`
}

// EmailJobPayload asks for delivery of an already rendered invoice.
type EmailJobPayload struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	InvoiceID uuid.UUID `json:"invoice_id"`
}

// Dispatcher enqueues jobs into Redis lists; the pool drains them with BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

func (d *Dispatcher) EnqueueInvoice(ctx context.Context, tenantID, orderID uuid.UUID, customerEmail string) error {
	return d.enqueue(ctx, QueueInvoice, JobInvoice, InvoiceJobPayload{
		TenantID:      tenantID,
		OrderID:       orderID,
		CustomerEmail: customerEmail,
	})
}

func (d *Dispatcher) EnqueueEmail(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, EmailJobPayload{TenantID: tenantID, InvoiceID: invoiceID})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	if d == nil || d.rdb == nil {
		return errors.New("dispatcher: redis not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Processor handles the payload of one job type. A returned error moves the
// job to the dead-letter queue.
type Processor interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// WorkerHandlers routes job types to their processors.
type WorkerHandlers struct {
	Invoice Processor
	Email   Processor
	Metrics *metrics.Metrics
}

// StartWorkerPool launches numWorkers goroutines consuming both queues. The
// returned WaitGroup completes once every worker has seen ctx cancelled.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, rdb, handlers, id)
		}(i)
	}
	log.Info().Int("workers", numWorkers).Msg("worker pool started")
	return &wg
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	queues := []string{QueueInvoice, QueueEmail}
	for {
		if ctx.Err() != nil {
			log.Debug().Int("worker", id).Msg("worker shutting down")
			return
		}
		// Wakes up every 5s to notice cancellation.
		result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Warn().Err(err).Int("worker", id).Msg("worker: BRPOP failed")
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		processJob(ctx, rdb, handlers, result[0], result[1])
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("worker: malformed job")
		SendToDLQ(ctx, rdb, queue, "unknown", json.RawMessage(fmt.Sprintf("%q", raw)), err.Error(), 0)
		return
	}

	var p Processor
	switch job.Type {
	case JobInvoice:
		p = handlers.Invoice
	case JobEmail:
		p = handlers.Email
	}
	if p == nil {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "no handler for job type", 0)
		return
	}

	if err := p.Process(ctx, job.Payload); err != nil {
		log.Error().Err(err).Str("queue", queue).Str("type", job.Type).Msg("worker: job failed")
		handlers.Metrics.IncInvoiceJob(job.Type, "dlq")
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), 1)
		return
	}
	handlers.Metrics.IncInvoiceJob(job.Type, "success")
}
