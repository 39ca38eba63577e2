// @title           akppos API
// @version         1.0
// @description     Multi-tenant point of sale: catalog, checkout, inventory ledger and invoicing.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"akppos/internal/auth"
	"akppos/internal/config"
	"akppos/internal/infra"
	"akppos/internal/metrics"
	"akppos/internal/repository"
	"akppos/internal/router"
	"akppos/internal/service"
	"akppos/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in development, JSON in production
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infra.NewDatabase(cfg.DatabaseURL, cfg.AutoMigrate)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, cfg.MetricsPrefix)

	// Invoice pipeline shared by the API (on-demand PDF) and the workers.
	tx := repository.NewTxRunner(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	settingsSvc := service.NewSettingsService(tx, repository.NewSettingsRepository(db), repository.NewTenantRepository(db))
	invoiceSvc := service.NewInvoiceService(invoiceRepo, repository.NewOrderRepository(db), settingsSvc, nil, cfg.InvoiceStoragePath)

	dispatcher := worker.NewDispatcher(rdb)
	emailCB := infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp"))
	mailer := infra.NewMailer(cfg)
	if !mailer.Configured() {
		log.Warn().Msg("SMTP_HOST not set: invoice emails will be marked failed")
	}
	emailWorker := worker.NewEmailWorker(invoiceRepo, mailer, emailCB, rdb, m)

	pool := worker.StartWorkerPool(ctx, rdb, &worker.WorkerHandlers{
		Invoice: worker.NewInvoiceWorker(invoiceSvc, dispatcher),
		Email:   emailWorker,
		Metrics: m,
	}, cfg.WorkerPoolSize)
	worker.StartRetryCron(ctx, worker.RetryCronConfig{
		Invoices: invoiceRepo,
		Email:    emailWorker,
		CB:       emailCB,
	})

	r := router.New(cfg, router.Deps{
		DB:       db,
		Redis:    rdb,
		Metrics:  m,
		Gatherer: reg,
		Tokens:   auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour),
		Invoices: invoiceSvc,
		Enqueuer: dispatcher,
		EmailCB:  emailCB,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("akppos listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	pool.Wait()
	_ = rdb.Close()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}
