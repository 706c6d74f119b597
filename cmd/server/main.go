package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VtGoodgame/Chat-service/internal/config"
	"github.com/VtGoodgame/Chat-service/internal/database"
	"github.com/VtGoodgame/Chat-service/internal/handler"
	"github.com/VtGoodgame/Chat-service/internal/middleware"
	"github.com/VtGoodgame/Chat-service/internal/repository"
	"github.com/VtGoodgame/Chat-service/internal/service"
	"github.com/VtGoodgame/Chat-service/internal/upstream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Database
	db, err := database.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(context.Background(), db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations applied successfully")

	// Optional WhoAmI cache
	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := cache.Ping(context.Background()).Err(); err != nil {
			log.Printf("Redis unreachable, identity cache disabled: %v", err)
			cache = nil
		}
	}

	// Repositories
	chatRepo := repository.NewChatRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	// Upstream clients
	authClient := upstream.NewAuthClient(cfg.BackendURL, cfg.AuthPrefix, cfg.CookieName, cfg.JWTSecret, cfg.UpstreamTimeout, cache)
	userClient := upstream.NewUserClient(cfg.BackendURL, cfg.UserPrefix, cfg.UpstreamTimeout)

	// Services
	registry := service.NewRegistry()
	chatSvc := service.NewChatService(chatRepo, userClient)
	session := service.NewSession(registry, authClient, chatSvc, userClient, msgRepo, cfg.UpstreamTimeout)

	// Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB
	})

	app.Use(recover.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health
	healthH := handler.NewHealthHandler(db, registry)
	app.Get("/health", healthH.Health)
	app.Get("/ready", healthH.Ready)

	// Chat service API
	api := app.Group(cfg.PathPrefix)

	chatH := handler.NewChatHandler(authClient, chatSvc, msgRepo)
	api.Get("/wss/chats", chatH.GetChats)
	api.Post("/wss/create_chat", middleware.RateLimit(10, time.Minute), chatH.CreateChat)
	api.Get("/wss/chat_messages/:chat_id", chatH.GetMessages)

	// WebSocket relay
	wsH := handler.NewWSHandler(session)
	api.Get("/wss/chat", wsH.Upgrade)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Printf("Chat service running on :%s (%s)", cfg.Port, cfg.Env)

	<-quit
	log.Println("Shutting down...")
	_ = app.ShutdownWithTimeout(5 * time.Second)
	registry.Shutdown()
	log.Println("Server stopped")
}
