package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kos_chat/internal/config"
	"kos_chat/internal/handler"
	"kos_chat/internal/middleware"
	"kos_chat/internal/repository"
	"kos_chat/internal/service"
	"kos_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)

	// Redis: сессии шлюза и лимиты запросов
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	repos := repository.NewRepositories(cfg.Backend.URL, cfg.Backend.Timeout, appLogger)
	sessions := repository.NewRedisSessionStore(rdb, cfg.Session.TTL, appLogger)
	rateLimitRepo := repository.NewRateLimitRepository(rdb, appLogger)

	services := service.NewServices(repos, cfg, service.NewLogNotifier(appLogger), appLogger)
	rateLimitService := service.NewRateLimitService(rateLimitRepo, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(sessions, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(rateLimitService, cfg.RateLimit, appLogger)

	checks := map[string]handler.HealthCheck{
		"redis": func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}
	handlers := handler.NewHandlers(services, sessions, cfg, checks, appLogger)

	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port, "backend", cfg.Backend.URL, "realtime", cfg.Realtime.URL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Ожидание сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)
	router.GET("/server-info", handlers.Health.ServerInfo)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		// учетные данные выдает бэкенд; шлюз только запоминает их
		v1.POST("/session", handlers.Auth.CreateSession)

		protected := v1.Group("")
		protected.Use(authMiddleware.RequireSession(), rateLimitMiddleware.Limit())
		{
			protected.DELETE("/session", handlers.Auth.DeleteSession)

			rooms := protected.Group("/rooms")
			{
				rooms.GET("", handlers.Room.List)
				rooms.POST("", handlers.Room.Create)
				rooms.GET("/:id/messages", handlers.Chat.GetMessages)
				rooms.POST("/:id/messages", handlers.Chat.SendMessage)
			}

			protected.POST("/broadcast", handlers.Room.Broadcast)

			messages := protected.Group("/messages")
			{
				messages.PUT("/:messageId", handlers.Chat.EditMessage)
				messages.DELETE("/:messageId", handlers.Chat.DeleteMessage)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", handlers.Notification.List)
				notifications.GET("/:id", handlers.Notification.Get)
				notifications.PATCH("/:id/read", handlers.Notification.MarkRead)
			}
		}
	}

	// WebSocket: сессия приходит в ?sid=, браузер не ставит заголовки на upgrade
	ws := router.Group("/ws")
	ws.Use(authMiddleware.RequireSession())
	{
		ws.GET("/rooms/:id", handlers.WebSocket.HandleRoom)
		ws.GET("/notifications", handlers.WebSocket.HandleNotifications)
	}

	return router
}
