package repository

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"kos_chat/internal/domain"
	"kos_chat/pkg/logger"
)

type MessageRepository interface {
	List(ctx context.Context, sess domain.Session, roomID string) ([]domain.Message, error)
	Send(ctx context.Context, sess domain.Session, req domain.SendMessageRequest) error
	Edit(ctx context.Context, sess domain.Session, messageID, newContent string) error
	Delete(ctx context.Context, sess domain.Session, messageID string) error
}

type messageRepository struct {
	api *apiClient
	log logger.Logger
}

func NewMessageRepository(api *apiClient, log logger.Logger) MessageRepository {
	return &messageRepository{api: api, log: log}
}

func (r *messageRepository) List(ctx context.Context, sess domain.Session, roomID string) ([]domain.Message, error) {
	path := "/messages?roomId=" + url.QueryEscape(roomID)

	data, err := r.api.do(ctx, sess, http.MethodGet, path, "/messages", nil)
	if err != nil {
		if errors.Is(err, ErrNoContent) {
			return []domain.Message{}, nil
		}
		r.log.Error("Failed to list messages", "error", err, "room_id", roomID)
		return nil, err
	}

	messages := []domain.Message{}
	if err := decode(data, &messages); err != nil {
		r.log.Error("Failed to decode messages", "error", err, "room_id", roomID)
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) Send(ctx context.Context, sess domain.Session, req domain.SendMessageRequest) error {
	if _, err := r.api.do(ctx, sess, http.MethodPost, "/messages", "/messages", req); err != nil && !errors.Is(err, ErrNoContent) {
		r.log.Error("Failed to send message", "error", err, "send_type", req.SendType)
		return err
	}
	return nil
}

func (r *messageRepository) Edit(ctx context.Context, sess domain.Session, messageID, newContent string) error {
	path := "/messages/" + url.PathEscape(messageID)
	body := domain.EditMessageRequest{NewContent: newContent}

	if _, err := r.api.do(ctx, sess, http.MethodPut, path, "/messages/{id}", body); err != nil && !errors.Is(err, ErrNoContent) {
		r.log.Error("Failed to edit message", "error", err, "message_id", messageID)
		return err
	}
	return nil
}

func (r *messageRepository) Delete(ctx context.Context, sess domain.Session, messageID string) error {
	path := "/messages/" + url.PathEscape(messageID)

	if _, err := r.api.do(ctx, sess, http.MethodDelete, path, "/messages/{id}", nil); err != nil && !errors.Is(err, ErrNoContent) {
		r.log.Error("Failed to delete message", "error", err, "message_id", messageID)
		return err
	}
	return nil
}
