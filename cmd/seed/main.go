// Seed replaces the constituency dataset with the standard bundled one.
// Meant for local development and fresh environments; it wipes every
// constituency along with its questions and departments.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/lokmanch/lokmanch/internal/platform/config"
	"github.com/lokmanch/lokmanch/internal/platform/ids"
	"github.com/lokmanch/lokmanch/internal/platform/logger"
	"github.com/lokmanch/lokmanch/internal/platform/migrations"
	"github.com/lokmanch/lokmanch/internal/platform/seed"
	postgresstorage "github.com/lokmanch/lokmanch/internal/platform/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("postgres connection failed", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("sql.DB unwrap failed", "err", err)
	}
	defer sqlDB.Close()

	if err := migrations.Run(db); err != nil {
		logger.Fatal("migration failed", "err", err)
	}

	repo := postgresstorage.NewConstituencyRepository(db)
	dataset := seed.Constituencies(ids.NewGenerator())
	if err := repo.ReplaceAll(ctx, dataset); err != nil {
		logger.Fatal("seed failed", "err", err)
	}

	logger.Info("seed complete", "constituencies", len(dataset))
}
