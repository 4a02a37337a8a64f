package domain

// Message - сообщение комнаты в том виде, в котором его отдает бэкенд
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	SenderEmail string    `json:"senderEmail"`
	Content     string    `json:"content"`
	Timestamp   Timestamp `json:"timestamp"`
	IsEdited    bool      `json:"isEdited"`
}

type SendType string

const (
	SendTypeToOne SendType = "TO_ONE"
	SendTypeToAll SendType = "TO_ALL"
)

// SendMessageRequest - тело POST /messages. RoomChatID равен nil для рассылки TO_ALL.
type SendMessageRequest struct {
	RoomChatID *string  `json:"roomChatId"`
	SenderID   string   `json:"senderId"`
	Content    string   `json:"content"`
	SendType   SendType `json:"sendType"`
	Role       Role     `json:"role,omitempty"`
}

// OutboundMessage - тело STOMP SEND на /app/chat.send
type OutboundMessage struct {
	RoomChatID string   `json:"roomChatId"`
	SenderID   string   `json:"senderId"`
	Content    string   `json:"content"`
	SendType   SendType `json:"sendType"`
	Role       Role     `json:"role"`
}

type EditMessageRequest struct {
	NewContent string `json:"newContent"`
}

const (
	ChatSendDestination      = "/app/chat.send"
	NotificationsDestination = "/user/queue/notifications"
	roomDestinationPrefix    = "/queue/room."
)

// RoomDestination возвращает топик комнаты для подписки
func RoomDestination(roomID string) string {
	return roomDestinationPrefix + roomID
}
