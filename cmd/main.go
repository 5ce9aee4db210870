package main

import (
	"auctionhouse/backend/internal/api/handler"
	"auctionhouse/backend/internal/config"
	"auctionhouse/backend/internal/localization"
	"auctionhouse/backend/internal/logger"
	"auctionhouse/backend/internal/notification"
	"auctionhouse/backend/internal/scheduler"
	"auctionhouse/backend/internal/settlement"
	"auctionhouse/backend/internal/storage"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.CallTimeout)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	if err := storage.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Info("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log.Info("Starting auction settlement service...")

	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	localizer, err := localization.NewLocalizer(cfg.LocalesDir)
	if err != nil {
		log.Fatalf("Failed to load localization: %v", err)
	}

	notifier, err := notification.FromConfig(cfg, s, s, localizer)
	if err != nil {
		log.Fatalf("Failed to set up notification channels: %v", err)
	}

	settler := settlement.NewService(s, s, notifier, cfg.CallTimeout)

	jobs := scheduler.New()
	err = jobs.Initialize(
		scheduler.Job{
			Name:     "check-expired-auctions",
			Interval: cfg.SettlementInterval,
			Run: func(ctx context.Context) error {
				_, err := settler.CheckExpiredAuctions(ctx)
				return err
			},
		},
		scheduler.Job{
			Name:     "notify-pending-winners",
			Interval: cfg.NotifyRetryInterval,
			Run: func(ctx context.Context) error {
				_, err := settler.NotifyPendingWinners(ctx)
				return err
			},
		},
	)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	if err := jobs.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	if cfg.AdminJWTSecret == "" {
		log.Warn("ADMIN_JWT_SECRET is empty; the /api operational routes will reject every request")
	}
	router := handler.SetupRouter(handler.NewHandler(settler, jobs), []byte(cfg.AdminJWTSecret))
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Infof("Server is running on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	jobs.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	if err := rdb.Close(); err != nil {
		log.WithError(err).Warn("Redis close failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
