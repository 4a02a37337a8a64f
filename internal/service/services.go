package service

import (
	"kos_chat/internal/config"
	"kos_chat/internal/repository"
	"kos_chat/pkg/logger"
)

type Services struct {
	Chat         ChatService
	Room         RoomService
	Notification NotificationService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, notifier Notifier, log logger.Logger) *Services {
	live := NewRealtimeFactory(cfg.Realtime, log)

	return &Services{
		Chat:         NewChatService(repos.Message, live, cfg.Chat.DedupLive, log),
		Room:         NewRoomService(repos.Room, repos.Message, notifier, log),
		Notification: NewNotificationService(repos.Notification, live, log),
	}
}
