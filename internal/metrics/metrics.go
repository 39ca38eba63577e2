// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checkout outcomes used as the "outcome" label.
const (
	OutcomeSuccess           = "success"
	OutcomeEmptyCart         = "empty_cart"
	OutcomeNotFound          = "not_found"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeTotalsMismatch    = "totals_mismatch"
	OutcomeInvalid           = "invalid"
	OutcomeError             = "error"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Request metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Checkout metrics
	Checkouts        *prometheus.CounterVec
	CheckoutDuration prometheus.Histogram

	// Inventory metrics
	StockAdjustments *prometheus.CounterVec

	// Async job metrics
	InvoiceJobs *prometheus.CounterVec

	// Database operation metrics
	DBOperation *prometheus.HistogramVec
}

// New registers all collectors on reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		Checkouts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkouts_total",
				Help:      "Total number of checkout attempts by outcome",
			},
			[]string{"outcome"},
		),
		CheckoutDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_seconds",
			Help:      "Duration of the checkout transaction in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		StockAdjustments: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_adjustments_total",
				Help:      "Total number of ledger entries written outside checkout",
			},
			[]string{"type"},
		),
		InvoiceJobs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invoice_jobs_total",
				Help:      "Total number of processed invoice and email jobs",
			},
			[]string{"job", "result"},
		),
		DBOperation: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_operation_duration_seconds",
				Help:      "Duration of database operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// ObserveCheckout records one checkout attempt.
func (m *Metrics) ObserveCheckout(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(outcome).Inc()
	m.CheckoutDuration.Observe(d.Seconds())
}

// IncStockAdjustment counts a RESTOCK / ADJUSTMENT / INITIAL entry.
func (m *Metrics) IncStockAdjustment(logType string) {
	if m == nil {
		return
	}
	m.StockAdjustments.WithLabelValues(logType).Inc()
}

// IncInvoiceJob counts a processed async job.
func (m *Metrics) IncInvoiceJob(job, result string) {
	if m == nil {
		return
	}
	m.InvoiceJobs.WithLabelValues(job, result).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

// TrackDBOperation is a helper to time database operations:
//
//	defer m.TrackDBOperation("checkout_tx", time.Now())
func (m *Metrics) TrackDBOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.DBOperation.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler serves the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
