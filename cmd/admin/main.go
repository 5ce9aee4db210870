package main

import (
	"auctionhouse/backend/internal/api/handler"
	"auctionhouse/backend/internal/config"
	"auctionhouse/backend/internal/localization"
	"auctionhouse/backend/internal/logger"
	"auctionhouse/backend/internal/notification"
	"auctionhouse/backend/internal/settlement"
	"auctionhouse/backend/internal/storage"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

Commands:
  migrate                 create or update the database tables
  settle                  settle every expired auction now
  notify <room_id>        retry the winner notification for one ended room
  notify-pending          retry every pending winner notification
  live <room_id>          print the live snapshot of a room
  token [ttl_hours]       issue an admin token for the operational API`

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger.Setup(cfg.LogLevel, "text", os.Stderr)

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "token":
		ttl := config.DefaultTokenTTL
		if len(os.Args) > 2 {
			hours, err := strconv.Atoi(os.Args[2])
			if err != nil || hours <= 0 {
				fmt.Println("Invalid ttl. Please provide a positive number of hours.")
				os.Exit(1)
			}
			ttl = time.Duration(hours) * time.Hour
		}
		token, err := handler.IssueAdminToken([]byte(cfg.AdminJWTSecret), "admin-cli", ttl)
		if err != nil {
			log.Fatalf("Error issuing token: %v", err)
		}
		fmt.Println(token)

	case "migrate":
		db := openDB(cfg)
		if err := storage.AutoMigrate(db); err != nil {
			log.Fatalf("Error running migrations: %v", err)
		}
		fmt.Println("Migrations complete.")

	case "live":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin live <room_id>")
			os.Exit(1)
		}
		s := storage.NewStorageService(nil, openRedis(cfg))
		snap, err := s.FetchLiveAuctionSnapshot(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Error reading live snapshot: %v", err)
		}
		printJSON(snap)

	case "settle", "notify", "notify-pending":
		settler := buildSettler(cfg)
		switch command {
		case "settle":
			batch, err := settler.CheckExpiredAuctions(ctx)
			if err != nil {
				log.Fatalf("Error settling auctions: %v", err)
			}
			printJSON(batch)
		case "notify":
			if len(os.Args) != 3 {
				fmt.Println("Usage: admin notify <room_id>")
				os.Exit(1)
			}
			res, err := settler.NotifyRoomWinner(ctx, os.Args[2])
			if res != nil {
				printJSON(res)
			}
			if err != nil {
				log.Fatalf("Error notifying winner: %v", err)
			}
		case "notify-pending":
			sweep, err := settler.NotifyPendingWinners(ctx)
			if err != nil {
				log.Fatalf("Error processing pending notifications: %v", err)
			}
			printJSON(sweep)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n%s\n", command, usage)
		os.Exit(1)
	}
}

func openDB(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	return db
}

func openRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func buildSettler(cfg *config.Config) *settlement.Service {
	s := storage.NewStorageService(openDB(cfg), openRedis(cfg))

	localizer, err := localization.NewLocalizer(cfg.LocalesDir)
	if err != nil {
		log.Fatalf("failed to load localization: %v", err)
	}
	notifier, err := notification.FromConfig(cfg, s, s, localizer)
	if err != nil {
		log.Fatalf("failed to set up notification channels: %v", err)
	}
	return settlement.NewService(s, s, notifier, cfg.CallTimeout)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("failed to encode output: %v", err)
	}
}
