package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian/internal/app"
	"github.com/meridian-erp/meridian/internal/checklist"
	"github.com/meridian-erp/meridian/internal/recon"
	"github.com/meridian-erp/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	reconProvider := recon.NewDBProvider(pool)
	reconCache := recon.NewCache(redisClient, cfg.ReconCacheTTL)
	reconService := recon.NewService(reconProvider, recon.Thresholds{
		Invoices:     cfg.ReconInvoiceThreshold,
		Payslips:     cfg.ReconPayslipThreshold,
		Transactions: cfg.ReconTxnThreshold,
	},
		recon.WithCache(reconCache),
		recon.WithTimeout(cfg.CollaboratorTimeout),
	)

	checklistRepo := checklist.NewRepository(pool)
	checklistService := checklist.NewService(checklistRepo, reconService,
		checklist.WithCheckConcurrency(cfg.AutoCheckConcurrency))

	sweepJob := jobs.NewAutoCheckSweepJob(checklistService, pool, logger)

	sweepTask, err := jobs.NewAutoCheckSweepTask(jobs.AutoCheckSweepPayload{ScheduledFor: time.Now().UTC()})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAutoCheckSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
