package main

import (
	"civicgo/backend/internal/activity"
	"civicgo/backend/internal/api/handler"
	"civicgo/backend/internal/complaint"
	"civicgo/backend/internal/lifecycle"
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/storage"
	"civicgo/backend/internal/telegram"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		envOr("DB_HOST", "localhost"),
		envOr("DB_USER", "user"),
		envOr("DB_PASSWORD", "password"),
		envOr("DB_NAME", "civicgodb"),
		envOr("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	if err := db.AutoMigrate(&models.Complaint{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	log.Println("Starting CivicGo Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	// 1. Dependencies
	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	// 2. Optional Telegram admin notifier
	var notifier activity.Notifier
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_ADMIN_CHAT_ID"), 10, 64)
		if err != nil {
			log.Fatalf("TELEGRAM_ADMIN_CHAT_ID must be a numeric chat id: %v", err)
		}
		notifyService, err := telegram.NewNotifyService(token, chatID)
		if err != nil {
			log.Fatalf("Failed to start Telegram notifier: %v", err)
		}
		notifier = notifyService
	} else {
		log.Println("TELEGRAM_BOT_TOKEN not set, admin notifications disabled")
	}
	activityLog := activity.NewLogService(s, notifier)

	// 3. Lifecycle engine and command surface
	engine := lifecycle.NewEngineService(s)
	complaintSvc := complaint.NewService(s, activityLog)

	go engine.Run(context.Background())

	// 4. Gin routing
	r := gin.Default()
	h := handler.NewHandler(engine, complaintSvc, s)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           ":" + envOr("PORT", "8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
