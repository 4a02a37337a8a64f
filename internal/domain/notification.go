package domain

type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt Timestamp `json:"createdAt"`
	Type      string    `json:"type,omitempty"`
}

type NotificationFilter string

const (
	NotificationFilterAll    NotificationFilter = "all"
	NotificationFilterRead   NotificationFilter = "read"
	NotificationFilterUnread NotificationFilter = "unread"
)

// ParseNotificationFilter возвращает all для пустого или неизвестного значения
func ParseNotificationFilter(s string) NotificationFilter {
	switch NotificationFilter(s) {
	case NotificationFilterRead, NotificationFilterUnread:
		return NotificationFilter(s)
	}
	return NotificationFilterAll
}

// Match проверяет, проходит ли уведомление фильтр
func (f NotificationFilter) Match(n Notification) bool {
	switch f {
	case NotificationFilterRead:
		return n.Read
	case NotificationFilterUnread:
		return !n.Read
	}
	return true
}
