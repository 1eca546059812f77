// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/circle/internal/auth"
	"github.com/jason-s-yu/circle/internal/cache"
	"github.com/jason-s-yu/circle/internal/config"
	"github.com/jason-s-yu/circle/internal/database"
	"github.com/jason-s-yu/circle/internal/friendship"
	"github.com/jason-s-yu/circle/internal/handlers"
	"github.com/jason-s-yu/circle/internal/notify"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()

	if err := initAuth(cfg, logger); err != nil {
		logger.Fatalf("auth: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	defer store.Close()
	logger.Infof("using %s store", cfg.StoreDriver)

	var redisClient *cache.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.Connect(ctx, cache.Options{
			Addr:          cfg.RedisAddr,
			DB:            cfg.RedisDB,
			ActivityQueue: cfg.ActivityQueueName,
			MailQueue:     cfg.MailQueueName,
			SuggestionTTL: cfg.SuggestionTTL,
		})
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn("REDIS_ADDR is empty: suggestion cache, activity log and password reset mail are disabled")
	}

	hub := notify.NewHub(logger)
	friends := friendship.NewService(store, redisClient, hub, logger)
	api := handlers.NewAPIServer(store, friends, redisClient, hub, logger, handlers.Options{
		PublicURL:     cfg.PublicURL,
		ResetTokenTTL: cfg.ResetTokenTTL,
		TokenTTL:      cfg.TokenExpire,
		SecureCookies: cfg.Env == "prod",
		CORSOrigins:   cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}()

	logger.Infof("Running on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}

// initAuth loads the signing keys from disk, or generates an ephemeral pair.
func initAuth(cfg *config.Config, logger *logrus.Logger) error {
	if cfg.AuthPrivateKeyPath != "" {
		return auth.InitFromPath(cfg.AuthPrivateKeyPath, cfg.AuthPublicKeyPath, cfg.TokenExpire)
	}
	if cfg.Env == "prod" {
		logger.Warn("no AUTH_*_KEY_PATH set: tokens will not survive a restart")
	}
	return auth.Init(cfg.TokenExpire)
}

func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pg, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	case config.DriverMongo:
		return database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.DriverMemory:
		return database.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
