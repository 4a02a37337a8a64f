package repository

import (
	"time"

	"kos_chat/pkg/logger"
)

type Repositories struct {
	Message      MessageRepository
	Room         RoomRepository
	Notification NotificationRepository
}

func NewRepositories(baseURL string, timeout time.Duration, log logger.Logger) *Repositories {
	api := newAPIClient(baseURL, timeout, log)

	repos := &Repositories{
		Message:      NewMessageRepository(api, log),
		Room:         NewRoomRepository(api, log),
		Notification: NewNotificationRepository(api, log),
	}

	log.Debug("Backend repositories initialized", "base_url", baseURL)

	return repos
}
