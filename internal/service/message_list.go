package service

import (
	"sync"

	"kos_chat/internal/domain"
)

// MessageList - упорядоченный список сообщений комнаты. Порядок добавления равен
// порядку отображения, пересортировки нет.
type MessageList struct {
	mu    sync.RWMutex
	items []domain.Message
	dedup bool
	seen  map[string]struct{}
}

// NewMessageList создает пустой список. С dedup=true живые сообщения с уже
// известным id отбрасываются.
func NewMessageList(dedup bool) *MessageList {
	return &MessageList{
		items: []domain.Message{},
		dedup: dedup,
		seen:  make(map[string]struct{}),
	}
}

// Replace заменяет содержимое результатом загрузки истории
func (l *MessageList) Replace(messages []domain.Message) {
	items := make([]domain.Message, len(messages))
	copy(items, messages)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = items
	l.seen = make(map[string]struct{}, len(items))
	for _, m := range items {
		if m.ID != "" {
			l.seen[m.ID] = struct{}{}
		}
	}
}

// Append добавляет сообщение в конец и сообщает, было ли оно добавлено
func (l *MessageList) Append(m domain.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dedup && m.ID != "" {
		if _, ok := l.seen[m.ID]; ok {
			return false
		}
	}
	if m.ID != "" {
		l.seen[m.ID] = struct{}{}
	}
	l.items = append(l.items, m)
	return true
}

func (l *MessageList) Snapshot() []domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Message, len(l.items))
	copy(out, l.items)
	return out
}

func (l *MessageList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}
