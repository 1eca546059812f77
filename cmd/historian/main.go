// cmd/historian is an asynchronous service that pops activity records from a Redis
// queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/circle/internal/cache"
	"github.com/jason-s-yu/circle/internal/config"
	"github.com/jason-s-yu/circle/internal/database"
	"github.com/jason-s-yu/circle/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()
	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer pg.Close()
	if err := pg.EnsureSchema(ctx); err != nil {
		logger.Fatalf("schema: %v", err)
	}

	rc, err := cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB, ActivityQueue: cfg.ActivityQueueName})
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rc.Close()

	svc := historian.New(rc.Redis(), pg, logger, historian.Options{
		Queue:      rc.ActivityQueue(),
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlush,
	})
	if err := svc.Run(ctx); err != nil {
		logger.Errorf("historian: %v", err)
	}
	logger.Info("Historian shutdown complete.")
}
