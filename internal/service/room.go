package service

import (
	"context"
	"errors"
	"strings"

	"kos_chat/internal/domain"
	"kos_chat/internal/repository"
	apperrors "kos_chat/pkg/errors"
	"kos_chat/pkg/logger"
)

const (
	toastRoomsFailed     = "failed to load chats"
	toastNoRooms         = "no chats yet"
	toastBroadcastSent   = "broadcast sent"
	toastBroadcastFailed = "failed to send broadcast"
	toastRoomCreateError = "failed to create chat"
)

type RoomService interface {
	ListForUser(ctx context.Context, sess domain.Session) ([]domain.Room, error)
	Create(ctx context.Context, sess domain.Session, tenantID, ownerID string) (string, error)
	Broadcast(ctx context.Context, sess domain.Session, content string) error
}

type roomService struct {
	roomRepo    repository.RoomRepository
	messageRepo repository.MessageRepository
	notifier    Notifier
	log         logger.Logger
}

func NewRoomService(roomRepo repository.RoomRepository, messageRepo repository.MessageRepository, notifier Notifier, log logger.Logger) RoomService {
	return &roomService{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		notifier:    notifier,
		log:         log,
	}
}

// ListForUser отдает комнаты пользователя. Ответ вне 2xx и 204 дают пустой список
// с тостом; ошибкой возвращается только отсутствие учетных данных.
func (s *roomService) ListForUser(ctx context.Context, sess domain.Session) ([]domain.Room, error) {
	rooms, err := s.roomRepo.ListForUser(ctx, sess)
	switch {
	case err == nil:
		return rooms, nil
	case errors.Is(err, apperrors.ErrUnauthorized), errors.Is(err, apperrors.ErrTokenExpired):
		return nil, err
	case errors.Is(err, repository.ErrNoContent):
		s.notifier.Error(toastNoRooms)
	default:
		s.log.Error("Failed to load rooms", "error", err, "user_id", sess.UserID)
		s.notifier.Error(toastRoomsFailed)
	}
	return []domain.Room{}, nil
}

// Create открывает канал между арендатором и владельцем и возвращает id комнаты
func (s *roomService) Create(ctx context.Context, sess domain.Session, tenantID, ownerID string) (string, error) {
	tenantID, ownerID = strings.TrimSpace(tenantID), strings.TrimSpace(ownerID)
	if tenantID == "" || ownerID == "" {
		return "", apperrors.ErrBadRequest
	}

	roomID, err := s.roomRepo.Create(ctx, sess, domain.CreateRoomRequest{
		PenyewaID:    tenantID,
		PemilikKosID: ownerID,
	})
	if err != nil {
		s.notifier.Error(toastRoomCreateError)
		return "", err
	}

	s.log.Info("Room created", "room_id", roomID, "tenant_id", tenantID, "owner_id", ownerID)
	return roomID, nil
}

// Broadcast рассылает сообщение всем арендаторам владельца (TO_ALL, без комнаты)
func (s *roomService) Broadcast(ctx context.Context, sess domain.Session, content string) error {
	if sess.Missing() {
		return apperrors.ErrUnauthorized
	}
	if sess.Role != domain.RoleOwner {
		return apperrors.ErrForbidden
	}
	if strings.TrimSpace(content) == "" {
		return apperrors.ErrEmptyContent
	}

	err := s.messageRepo.Send(ctx, sess, domain.SendMessageRequest{
		RoomChatID: nil,
		SenderID:   sess.UserID,
		Content:    content,
		SendType:   domain.SendTypeToAll,
		Role:       sess.Role,
	})
	if err != nil {
		s.notifier.Error(toastBroadcastFailed)
		return err
	}

	s.notifier.Success(toastBroadcastSent)
	return nil
}
