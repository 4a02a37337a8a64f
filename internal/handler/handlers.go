package handler

import (
	"errors"

	"kos_chat/internal/config"
	"kos_chat/internal/repository"
	"kos_chat/internal/service"
	"kos_chat/pkg/logger"
)

var errUnknownCommand = errors.New("unknown command")

type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	Room         *RoomHandler
	Chat         *ChatHandler
	Notification *NotificationHandler
	WebSocket    *WebSocketHandler
}

func NewHandlers(services *service.Services, sessions repository.SessionStore, cfg *config.Config, checks map[string]HealthCheck, log logger.Logger) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(cfg, checks),
		Auth:         NewAuthHandler(sessions, log),
		Room:         NewRoomHandler(services.Room, log),
		Chat:         NewChatHandler(services.Chat, log),
		Notification: NewNotificationHandler(services.Notification, log),
		WebSocket:    NewWebSocketHandler(services.Chat, services.Notification, cfg.CORS.AllowedOrigins, log),
	}
}
