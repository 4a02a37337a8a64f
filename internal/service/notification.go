package service

import (
	"context"
	"encoding/json"

	"kos_chat/internal/domain"
	"kos_chat/internal/realtime"
	"kos_chat/internal/repository"
	apperrors "kos_chat/pkg/errors"
	"kos_chat/pkg/logger"
)

type NotificationService interface {
	List(ctx context.Context, sess domain.Session, filter domain.NotificationFilter) ([]domain.Notification, error)
	// Get читает уведомление и отмечает его прочитанным
	Get(ctx context.Context, sess domain.Session, notificationID string) (*domain.Notification, error)
	MarkRead(ctx context.Context, sess domain.Session, notificationID string) error
	// Watch блокируется до отмены ctx и передает в handler новые уведомления
	Watch(ctx context.Context, sess domain.Session, handler func(domain.Notification)) error
}

type notificationService struct {
	repo repository.NotificationRepository
	live LiveFactory
	log  logger.Logger
}

func NewNotificationService(repo repository.NotificationRepository, live LiveFactory, log logger.Logger) NotificationService {
	return &notificationService{
		repo: repo,
		live: live,
		log:  log,
	}
}

func (s *notificationService) List(ctx context.Context, sess domain.Session, filter domain.NotificationFilter) ([]domain.Notification, error) {
	all, err := s.repo.ListForUser(ctx, sess)
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.Notification, 0, len(all))
	for _, n := range all {
		if filter.Match(n) {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}

func (s *notificationService) Get(ctx context.Context, sess domain.Session, notificationID string) (*domain.Notification, error) {
	if notificationID == "" {
		return nil, apperrors.ErrBadRequest
	}

	n, err := s.repo.Get(ctx, sess, notificationID)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}

	if err := s.repo.MarkRead(ctx, sess, notificationID); err != nil {
		s.log.Warn("Failed to mark notification as read", "error", err, "notification_id", notificationID)
		return n, nil
	}
	n.Read = true
	return n, nil
}

func (s *notificationService) MarkRead(ctx context.Context, sess domain.Session, notificationID string) error {
	if notificationID == "" {
		return apperrors.ErrBadRequest
	}
	return s.repo.MarkRead(ctx, sess, notificationID)
}

func (s *notificationService) Watch(ctx context.Context, sess domain.Session, handler func(domain.Notification)) error {
	if err := repository.CheckSession(sess); err != nil {
		return err
	}

	live := s.live.New(sess, func(l LiveSession) {
		_, err := l.Subscribe(domain.NotificationsDestination, func(f *realtime.Frame) {
			var n domain.Notification
			if err := json.Unmarshal(f.Body, &n); err != nil {
				s.log.Warn("Dropping malformed notification", "error", err)
				return
			}
			handler(n)
		})
		if err != nil {
			s.log.Error("Failed to subscribe to notifications", "error", err)
		}
	})

	live.Activate(ctx)
	<-ctx.Done()
	live.Deactivate()
	return nil
}
