package worker

// The retry cron re-sends invoice emails whose delivery failed and whose
// next_retry_at has passed. It stays idle while the SMTP breaker is open.

import (
	"context"
	"time"

	"akppos/internal/infra"
	"akppos/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
)

type RetryCronConfig struct {
	Invoices repository.InvoiceRepository
	Email    *EmailWorker
	CB       *infra.CircuitBreaker
	Interval time.Duration // defaults to 30s
}

// StartRetryCron ticks until ctx is cancelled.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = retryTickInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.Info().Dur("interval", interval).Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg, time.Now())
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig, now time.Time) {
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker open, skipping tick")
		return
	}

	due, err := cfg.Invoices.ListPendingEmailRetries(ctx, now, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending retries")
		return
	}
	if len(due) == 0 {
		return
	}
	log.Info().Int("count", len(due)).Msg("retry_cron: retrying invoice emails")

	for i := range due {
		// The breaker may trip mid-batch.
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}
		if err := cfg.Email.deliver(ctx, &due[i]); err != nil {
			log.Error().Err(err).Str("invoice_id", due[i].ID.String()).Msg("retry_cron: retry failed")
		}
	}
}
