// API entry point: loads configuration, wires dependencies and starts the
// HTTP server.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lokmanch/lokmanch/internal/app/directory"
	"github.com/lokmanch/lokmanch/internal/app/forum"
	"github.com/lokmanch/lokmanch/internal/app/httpapi"
	"github.com/lokmanch/lokmanch/internal/app/polls"
	"github.com/lokmanch/lokmanch/internal/domain"
	"github.com/lokmanch/lokmanch/internal/platform/clock"
	"github.com/lokmanch/lokmanch/internal/platform/config"
	"github.com/lokmanch/lokmanch/internal/platform/health"
	"github.com/lokmanch/lokmanch/internal/platform/ids"
	"github.com/lokmanch/lokmanch/internal/platform/logger"
	"github.com/lokmanch/lokmanch/internal/platform/migrations"
	"github.com/lokmanch/lokmanch/internal/platform/ratelimit"
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

	// The connection is shared across the whole lifecycle so readiness checks
	// probe the same pool the handlers use.
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

	// Redis backs the view counter and the rate limiter.
	redisClient, err := redisstorage.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis connection failed", "err", err)
	}
	defer redisClient.Close()

	constituencyRepo := postgresstorage.NewConstituencyRepository(db)
	pollStore := postgresstorage.NewPollStore(db)
	postRepo := postgresstorage.NewPostRepository(db)
	commentRepo := postgresstorage.NewCommentRepository(db)
	viewCounter := redisstorage.NewViewCounter(redisClient, cfg.ViewsKeyPrefix)
	clockSystem := clock.NewSystemClock()
	idGen := ids.NewGenerator()

	var limiter domain.RateLimiter = ratelimit.NewNoop()
	if cfg.RateLimitEnabled {
		window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimitMaxActions, window, cfg.RateLimitKeyPrefix)
	}

	pollService := polls.NewService(constituencyRepo, pollStore, limiter, clockSystem, idGen)
	forumService := forum.NewService(postRepo, commentRepo, viewCounter, clockSystem, idGen, logger.L())
	directoryService := directory.NewService(constituencyRepo, idGen, logger.L())

	mux := http.NewServeMux()
	checker := health.NewChecker(sqlDB, redisClient)

	api := httpapi.New(pollService, forumService, directoryService, logger.L(), cfg.AdminToken)
	api.Register(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", checker.ReadyHandler())
	mux.Handle("GET /metrics", promhttp.Handler())

	if cfg.AdminToken == "" {
		logger.Warn("admin token not set, admin routes are open")
	}

	logger.Info("api listening", "addr", cfg.HTTPAddress)
	if err := http.ListenAndServe(cfg.HTTPAddress, mux); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
