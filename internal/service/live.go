package service

import (
	"context"

	"kos_chat/internal/config"
	"kos_chat/internal/domain"
	"kos_chat/internal/realtime"
	"kos_chat/pkg/logger"
)

// LiveSession - часть realtime.Session, которая нужна сервисам
type LiveSession interface {
	Activate(ctx context.Context)
	Deactivate()
	Connected() bool
	Subscribe(destination string, handler realtime.MessageHandler) (*realtime.Subscription, error)
	Publish(destination string, body []byte) error
}

// LiveFactory создает по одной живой сессии на комнату или ленту уведомлений.
// onConnect выполняется после каждого подключения.
type LiveFactory interface {
	New(sess domain.Session, onConnect func(LiveSession)) LiveSession
}

type realtimeFactory struct {
	cfg config.RealtimeConfig
	log logger.Logger
}

func NewRealtimeFactory(cfg config.RealtimeConfig, log logger.Logger) LiveFactory {
	return &realtimeFactory{cfg: cfg, log: log}
}

func (f *realtimeFactory) New(sess domain.Session, onConnect func(LiveSession)) LiveSession {
	cfg := realtime.Config{
		URL:               f.cfg.URL,
		Transport:         f.cfg.Transport,
		ReconnectDelay:    f.cfg.ReconnectDelay,
		HeartbeatOutgoing: f.cfg.HeartbeatOutgoing,
		HeartbeatIncoming: f.cfg.HeartbeatIncoming,
		ConnectHeaders: map[string]string{
			"Authorization": sess.BearerHeader(),
		},
	}
	return realtime.NewSession(cfg, func(s *realtime.Session) {
		onConnect(s)
	}, f.log.With("user_id", sess.UserID))
}

// Notifier показывает пользователю короткие уведомления (тосты)
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type logNotifier struct {
	log logger.Logger
}

// NewLogNotifier пишет тосты в лог; для шлюза, у которого нет экрана
func NewLogNotifier(log logger.Logger) Notifier {
	return &logNotifier{log: log}
}

func (n *logNotifier) Success(msg string) {
	n.log.Info("Toast", "level", "success", "message", msg)
}

func (n *logNotifier) Error(msg string) {
	n.log.Warn("Toast", "level", "error", "message", msg)
}
