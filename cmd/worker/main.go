// Maintenance worker: runs periodic score and counter reconciliation and
// drains pending view hits from Redis into Postgres.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/lokmanch/lokmanch/internal/app/worker"
	"github.com/lokmanch/lokmanch/internal/platform/config"
	"github.com/lokmanch/lokmanch/internal/platform/health"
	"github.com/lokmanch/lokmanch/internal/platform/logger"
	"github.com/lokmanch/lokmanch/internal/platform/migrations"
	postgresstorage "github.com/lokmanch/lokmanch/internal/platform/storage/postgres"
	redisstorage "github.com/lokmanch/lokmanch/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	// Same GORM connection setup as the API so migrations and models never
	// diverge between the two binaries.
	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("postgres connection failed", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("sql.DB unwrap failed", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			logger.Fatal("auto migration failed", "err", err)
		}
	}

	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis connection failed", "err", err)
	}
	defer redisClient.Close()

	checker := health.NewChecker(sqlDB, redisClient)

	if cfg.WorkerMetricsAddress != "" {
		go func() {
			// Metrics stay up while the scheduler runs on the main goroutine.
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/readyz", checker.ReadyHandler())
			logger.Info("worker metrics listening", "addr", cfg.WorkerMetricsAddress)
			if err := http.ListenAndServe(cfg.WorkerMetricsAddress, mux); err != nil {
				logger.Error("worker metrics server error", "err", err)
			}
		}()
	}

	pollStore := postgresstorage.NewPollStore(db)
	commentRepo := postgresstorage.NewCommentRepository(db)
	postRepo := postgresstorage.NewPostRepository(db)
	viewCounter := redisstorage.NewViewCounter(redisClient, cfg.ViewsKeyPrefix)

	reconciler := worker.NewReconciler(pollStore, commentRepo, viewCounter, postRepo, logger.L())

	runOnce := func() {
		fixed, err := reconciler.Run(ctx)
		if err != nil {
			logger.Error("reconcile pass failed", "err", err)
			return
		}
		if fixed > 0 {
			logger.Info("reconcile pass repaired rows", "fixed", fixed)
		}
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ReconcileCron, runOnce); err != nil {
		logger.Fatal("invalid reconcile schedule", "schedule", cfg.ReconcileCron, "err", err)
	}

	// One pass up front so a freshly deployed worker repairs drift immediately
	// instead of waiting for the first tick.
	runOnce()

	logger.Info("worker started", "schedule", cfg.ReconcileCron)
	scheduler.Start()

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	logger.Info("worker stopped")
}
