package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian/internal/activity"
	activityhttp "github.com/meridian-erp/meridian/internal/activity/http"
	"github.com/meridian-erp/meridian/internal/app"
	"github.com/meridian-erp/meridian/internal/checklist"
	checklisthttp "github.com/meridian-erp/meridian/internal/checklist/http"
	"github.com/meridian-erp/meridian/internal/entries"
	entrieshttp "github.com/meridian-erp/meridian/internal/entries/http"
	"github.com/meridian-erp/meridian/internal/ledger"
	"github.com/meridian-erp/meridian/internal/observability"
	"github.com/meridian-erp/meridian/internal/periods"
	periodshttp "github.com/meridian-erp/meridian/internal/periods/http"
	"github.com/meridian-erp/meridian/internal/platform/cache"
	"github.com/meridian-erp/meridian/internal/platform/db"
	"github.com/meridian-erp/meridian/internal/recon"
	reconhttp "github.com/meridian-erp/meridian/internal/recon/http"
	"github.com/meridian-erp/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Redis is a soft dependency: without it the reconciliation projection
	// recomputes on every request instead of being cached.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, reconciliation cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	activityRepo := activity.NewRepository(dbpool)
	activityService := activity.NewService(activityRepo)
	activityHandler := activityhttp.NewHandler(logger, activityService)

	reconProvider := recon.NewDBProvider(dbpool)
	reconCache := recon.NewCache(redisClient, cfg.ReconCacheTTL)
	reconService := recon.NewService(reconProvider, recon.Thresholds{
		Invoices:     cfg.ReconInvoiceThreshold,
		Payslips:     cfg.ReconPayslipThreshold,
		Transactions: cfg.ReconTxnThreshold,
	},
		recon.WithCache(reconCache),
		recon.WithTimeout(cfg.CollaboratorTimeout),
	)

	checklistRepo := checklist.NewRepository(dbpool)
	checklistService := checklist.NewService(checklistRepo, reconService,
		checklist.WithCheckConcurrency(cfg.AutoCheckConcurrency))
	checklistHandler := checklisthttp.NewHandler(logger, checklistService)
	reconHandler := reconhttp.NewHandler(logger, reconService, checklistRepo)

	ledgerClient := ledger.NewClient(cfg.LedgerURL)
	if err := ledgerClient.Ping(ctx); err != nil {
		logger.Warn("ledger ping", slog.Any("error", err))
	}

	entriesRepo := entries.NewRepository(dbpool)
	entriesService := entries.NewService(entriesRepo, ledgerClient,
		entries.WithPosterTimeout(cfg.CollaboratorTimeout))
	entriesHandler := entrieshttp.NewHandler(logger, entriesService)

	templateStore := periods.NewTemplateStore(dbpool)
	periodsRepo := periods.NewRepository(dbpool)
	periodsService := periods.NewService(periodsRepo, templateStore,
		periods.WithObserver(metrics),
		periods.WithTemplateTimeout(cfg.CollaboratorTimeout))
	periodsHandler := periodshttp.NewHandler(logger, periodsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		PeriodsHandler:   periodsHandler,
		ChecklistHandler: checklistHandler,
		ReconHandler:     reconHandler,
		EntriesHandler:   entriesHandler,
		ActivityHandler:  activityHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
