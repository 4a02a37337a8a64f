package repository

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"kos_chat/internal/domain"
	"kos_chat/pkg/logger"
)

type NotificationRepository interface {
	ListForUser(ctx context.Context, sess domain.Session) ([]domain.Notification, error)
	Get(ctx context.Context, sess domain.Session, notificationID string) (*domain.Notification, error)
	MarkRead(ctx context.Context, sess domain.Session, notificationID string) error
}

type notificationRepository struct {
	api *apiClient
	log logger.Logger
}

func NewNotificationRepository(api *apiClient, log logger.Logger) NotificationRepository {
	return &notificationRepository{api: api, log: log}
}

func (r *notificationRepository) ListForUser(ctx context.Context, sess domain.Session) ([]domain.Notification, error) {
	path := "/notifications/user/" + url.PathEscape(sess.UserID)

	data, err := r.api.do(ctx, sess, http.MethodGet, path, "/notifications/user/{userId}", nil)
	if err != nil {
		if errors.Is(err, ErrNoContent) {
			return []domain.Notification{}, nil
		}
		r.log.Error("Failed to list notifications", "error", err, "user_id", sess.UserID)
		return nil, err
	}

	notifications := []domain.Notification{}
	if err := decode(data, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) Get(ctx context.Context, sess domain.Session, notificationID string) (*domain.Notification, error) {
	path := "/notifications/" + url.PathEscape(notificationID)

	data, err := r.api.do(ctx, sess, http.MethodGet, path, "/notifications/{id}", nil)
	if err != nil {
		r.log.Error("Failed to get notification", "error", err, "notification_id", notificationID)
		return nil, err
	}

	var notification domain.Notification
	if err := decode(data, &notification); err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, sess domain.Session, notificationID string) error {
	path := "/notifications/" + url.PathEscape(notificationID) + "/read"

	if _, err := r.api.do(ctx, sess, http.MethodPatch, path, "/notifications/{id}/read", nil); err != nil && !errors.Is(err, ErrNoContent) {
		r.log.Error("Failed to mark notification as read", "error", err, "notification_id", notificationID)
		return err
	}
	return nil
}
