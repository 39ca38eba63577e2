package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"akppos/internal/infra"
	"akppos/internal/model"
	"akppos/internal/repository"
	"akppos/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() { retryBaseDelay = time.Millisecond }

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// ── fakes ─────────────────────────────────────────────────────────────────────

type memInvoices struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Invoice
}

var _ repository.InvoiceRepository = (*memInvoices)(nil)

func newMemInvoices(invs ...model.Invoice) *memInvoices {
	m := &memInvoices{rows: map[uuid.UUID]model.Invoice{}}
	for _, inv := range invs {
		m.rows[inv.ID] = inv
	}
	return m
}

func (m *memInvoices) Upsert(_ context.Context, inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[inv.ID] = *inv
	return nil
}

func (m *memInvoices) FindByOrderID(_ context.Context, tenantID, orderID uuid.UUID) (*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.rows {
		if inv.TenantID == tenantID && inv.OrderID == orderID {
			return &inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memInvoices) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.rows[id]
	if !ok || inv.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	return &inv, nil
}

func (m *memInvoices) Update(_ context.Context, inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[inv.ID] = *inv
	return nil
}

func (m *memInvoices) ListPendingEmailRetries(_ context.Context, now time.Time, limit int) ([]model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Invoice
	for _, inv := range m.rows {
		if inv.EmailStatus == model.EmailFailed && inv.NextRetryAt != nil && !inv.NextRetryAt.After(now) {
			out = append(out, inv)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memInvoices) get(id uuid.UUID) model.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

type fakeMailer struct {
	mu    sync.Mutex
	err   error
	sent  []string
	calls int
}

func (f *fakeMailer) SendInvoice(to, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type recordingProcessor struct {
	mu    sync.Mutex
	err   error
	calls []json.RawMessage
}

func (p *recordingProcessor) Process(_ context.Context, raw json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, raw)
	return p.err
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type scriptedGenerator struct {
	errs  []error
	calls int
	inv   *model.Invoice
}

func (g *scriptedGenerator) Generate(_ context.Context, _, _ uuid.UUID, _ string) (*model.Invoice, error) {
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return nil, g.errs[i]
	}
	return g.inv, nil
}

type recordingEmails struct{ ids []uuid.UUID }

func (r *recordingEmails) EnqueueEmail(_ context.Context, _, invoiceID uuid.UUID) error {
	r.ids = append(r.ids, invoiceID)
	return nil
}

func pendingInvoice() model.Invoice {
	to := "buyer@example.com"
	path := "/tmp/invoice.pdf"
	return model.Invoice{
		ID:          uuid.New(),
		TenantID:    uuid.New(),
		OrderID:     uuid.New(),
		Number:      "INV-20260101-AAAA0000",
		TotalAmount: decimal.RequireFromString("6.60"),
		Status:      model.InvoiceGenerated,
		PDFPath:     &path,
		EmailTo:     &to,
		EmailStatus: model.EmailPending,
	}
}

func emailJob(inv model.Invoice) json.RawMessage {
	raw, _ := json.Marshal(EmailJobPayload{TenantID: inv.TenantID, InvoiceID: inv.ID})
	return raw
}

// ── dispatcher & pool ─────────────────────────────────────────────────────────

func TestDispatcher_EnqueueAndRoute(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	d := NewDispatcher(rdb)

	tenantID, orderID := uuid.New(), uuid.New()
	require.NoError(t, d.EnqueueInvoice(ctx, tenantID, orderID, "buyer@example.com"))

	raw, err := rdb.RPop(ctx, QueueInvoice).Result()
	require.NoError(t, err)

	invoices := &recordingProcessor{}
	processJob(ctx, rdb, &WorkerHandlers{Invoice: invoices}, QueueInvoice, raw)
	require.Equal(t, 1, invoices.count())

	var payload InvoiceJobPayload
	require.NoError(t, json.Unmarshal(invoices.calls[0], &payload))
	assert.Equal(t, tenantID, payload.TenantID)
	assert.Equal(t, orderID, payload.OrderID)
	assert.Equal(t, "buyer@example.com", payload.CustomerEmail)
}

func TestProcessJob_FailuresGoToDLQ(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	handlers := &WorkerHandlers{Email: &recordingProcessor{err: errors.New("boom")}}

	job, _ := json.Marshal(Job{Type: JobEmail, Payload: json.RawMessage(`{}`)})
	processJob(ctx, rdb, handlers, QueueEmail, string(job))

	unknown, _ := json.Marshal(Job{Type: "fax", Payload: json.RawMessage(`{}`)})
	processJob(ctx, rdb, handlers, QueueEmail, string(unknown))

	processJob(ctx, rdb, handlers, QueueEmail, "not json")

	n, err := DLQLength(ctx, rdb, QueueEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	entries, err := DLQPeek(ctx, rdb, QueueEmail, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "boom", entries[2].Reason)
	assert.Equal(t, "fax", entries[1].JobType)
}

func TestDLQRequeue_MovesOldestBack(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()

	SendToDLQ(ctx, rdb, QueueInvoice, JobInvoice, json.RawMessage(`{"n":1}`), "first", 3)
	SendToDLQ(ctx, rdb, QueueInvoice, JobInvoice, json.RawMessage(`{"n":2}`), "second", 3)

	moved, err := DLQRequeue(ctx, rdb, QueueInvoice, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	raw, err := rdb.RPop(ctx, QueueInvoice).Result()
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, JobInvoice, job.Type)
	assert.JSONEq(t, `{"n":1}`, string(job.Payload))

	moved, err = DLQRequeue(ctx, rdb, QueueInvoice, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	n, err := DLQLength(ctx, rdb, QueueInvoice)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStartWorkerPool_DrainsQueue(t *testing.T) {
	_, rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	emails := &recordingProcessor{}
	StartWorkerPool(ctx, rdb, &WorkerHandlers{Email: emails}, 2)

	require.NoError(t, NewDispatcher(rdb).EnqueueEmail(ctx, uuid.New(), uuid.New()))
	assert.Eventually(t, func() bool { return emails.count() == 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestDispatcher_WithoutRedisFails(t *testing.T) {
	var d *Dispatcher
	assert.Error(t, d.EnqueueInvoice(context.Background(), uuid.New(), uuid.New(), ""))
}

// ── invoice worker ────────────────────────────────────────────────────────────

func invoiceJob(email string) json.RawMessage {
	raw, _ := json.Marshal(InvoiceJobPayload{TenantID: uuid.New(), OrderID: uuid.New(), CustomerEmail: email})
	return raw
}

func TestInvoiceWorker_RetriesThenQueuesEmail(t *testing.T) {
	inv := pendingInvoice()
	gen := &scriptedGenerator{errs: []error{errors.New("disk busy"), errors.New("disk busy")}, inv: &inv}
	emails := &recordingEmails{}

	err := NewInvoiceWorker(gen, emails).Process(context.Background(), invoiceJob("buyer@example.com"))
	require.NoError(t, err)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, []uuid.UUID{inv.ID}, emails.ids)
}

func TestInvoiceWorker_NoEmailWhenNotRequested(t *testing.T) {
	inv := pendingInvoice()
	inv.EmailTo = nil
	inv.EmailStatus = model.EmailNone
	emails := &recordingEmails{}

	err := NewInvoiceWorker(&scriptedGenerator{inv: &inv}, emails).Process(context.Background(), invoiceJob(""))
	require.NoError(t, err)
	assert.Empty(t, emails.ids)
}

func TestInvoiceWorker_GivesUp(t *testing.T) {
	fail := errors.New("disk full")
	gen := &scriptedGenerator{errs: []error{fail, fail, fail}}

	err := NewInvoiceWorker(gen, nil).Process(context.Background(), invoiceJob(""))
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, invoiceAttempts, gen.calls)
}

func TestInvoiceWorker_MissingOrderIsNotRetried(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{service.ErrOrderNotFound}}

	err := NewInvoiceWorker(gen, nil).Process(context.Background(), invoiceJob(""))
	assert.ErrorIs(t, err, service.ErrOrderNotFound)
	assert.Equal(t, 1, gen.calls)
}

func TestInvoiceWorker_InvalidPayload(t *testing.T) {
	w := NewInvoiceWorker(&scriptedGenerator{}, nil)
	assert.Error(t, w.Process(context.Background(), json.RawMessage(`{"order_id":"nope"}`)))
	assert.Error(t, w.Process(context.Background(), json.RawMessage(`{}`)))
}

// ── email worker ──────────────────────────────────────────────────────────────

func newEmailWorker(repo *memInvoices, mailer Mailer, rdb *redis.Client, now time.Time) (*EmailWorker, *infra.CircuitBreaker) {
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "smtp", FailureThreshold: 3, OpenTimeout: time.Hour})
	w := NewEmailWorker(repo, mailer, cb, rdb, nil)
	w.now = func() time.Time { return now }
	return w, cb
}

func TestEmailWorker_Sends(t *testing.T) {
	inv := pendingInvoice()
	repo := newMemInvoices(inv)
	mailer := &fakeMailer{}
	w, _ := newEmailWorker(repo, mailer, nil, time.Now())

	require.NoError(t, w.Process(context.Background(), emailJob(inv)))
	assert.Equal(t, []string{"buyer@example.com"}, mailer.sent)
	assert.Equal(t, model.EmailSent, repo.get(inv.ID).EmailStatus)

	// Already sent: no second delivery.
	require.NoError(t, w.Process(context.Background(), emailJob(inv)))
	assert.Equal(t, 1, mailer.calls)
}

func TestEmailWorker_FailureSchedulesRetry(t *testing.T) {
	inv := pendingInvoice()
	repo := newMemInvoices(inv)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w, _ := newEmailWorker(repo, &fakeMailer{err: errors.New("421 try later")}, nil, now)

	require.NoError(t, w.Process(context.Background(), emailJob(inv)))

	got := repo.get(inv.ID)
	assert.Equal(t, model.EmailFailed, got.EmailStatus)
	assert.Equal(t, 1, got.RetryCount)
	require.NotNil(t, got.NextRetryAt)
	assert.Equal(t, now.Add(30*time.Second), *got.NextRetryAt)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, "421")
}

func TestEmailWorker_UnconfiguredMailerIsTerminal(t *testing.T) {
	inv := pendingInvoice()
	repo := newMemInvoices(inv)
	w, cb := newEmailWorker(repo, &fakeMailer{err: infra.ErrMailerNotConfigured}, nil, time.Now())

	for i := 0; i < 5; i++ {
		require.NoError(t, w.deliver(context.Background(), &inv))
	}
	got := repo.get(inv.ID)
	assert.Equal(t, model.EmailFailed, got.EmailStatus)
	assert.Nil(t, got.NextRetryAt)
	assert.Zero(t, got.RetryCount)
	assert.Equal(t, infra.CBClosed, cb.State())
}

func TestEmailWorker_MaxRetriesGoesToDLQ(t *testing.T) {
	_, rdb := newRedis(t)
	inv := pendingInvoice()
	inv.RetryCount = MaxEmailRetries - 1
	repo := newMemInvoices(inv)
	w, _ := newEmailWorker(repo, &fakeMailer{err: errors.New("550 mailbox unavailable")}, rdb, time.Now())

	require.NoError(t, w.deliver(context.Background(), &inv))

	got := repo.get(inv.ID)
	assert.Equal(t, MaxEmailRetries, got.RetryCount)
	assert.Nil(t, got.NextRetryAt)

	n, err := DLQLength(context.Background(), rdb, QueueEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestComputeRetryBackoff(t *testing.T) {
	assert.Equal(t, 30*time.Second, computeRetryBackoff(0))
	assert.Equal(t, 30*time.Second, computeRetryBackoff(1))
	assert.Equal(t, time.Minute, computeRetryBackoff(2))
	assert.Equal(t, 4*time.Minute, computeRetryBackoff(4))
	assert.Equal(t, 30*time.Minute, computeRetryBackoff(20))
}

// ── retry cron ────────────────────────────────────────────────────────────────

func failedInvoice(nextRetry time.Time) model.Invoice {
	inv := pendingInvoice()
	inv.EmailStatus = model.EmailFailed
	inv.RetryCount = 1
	inv.NextRetryAt = &nextRetry
	return inv
}

func TestProcessRetries_ResendsDueInvoices(t *testing.T) {
	now := time.Now()
	due := failedInvoice(now.Add(-time.Minute))
	later := failedInvoice(now.Add(time.Hour))
	repo := newMemInvoices(due, later)
	mailer := &fakeMailer{}
	w, cb := newEmailWorker(repo, mailer, nil, now)

	processRetries(context.Background(), RetryCronConfig{Invoices: repo, Email: w, CB: cb}, now)

	assert.Equal(t, 1, mailer.calls)
	assert.Equal(t, model.EmailSent, repo.get(due.ID).EmailStatus)
	assert.Equal(t, model.EmailFailed, repo.get(later.ID).EmailStatus)
}

func TestProcessRetries_SkipsWhileBreakerOpen(t *testing.T) {
	now := time.Now()
	due := failedInvoice(now.Add(-time.Minute))
	repo := newMemInvoices(due)
	mailer := &fakeMailer{}
	w, cb := newEmailWorker(repo, mailer, nil, now)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errors.New("down") })
	}
	require.Equal(t, infra.CBOpen, cb.State())

	processRetries(context.Background(), RetryCronConfig{Invoices: repo, Email: w, CB: cb}, now)

	assert.Zero(t, mailer.calls)
	assert.Equal(t, 1, repo.get(due.ID).RetryCount)
}
