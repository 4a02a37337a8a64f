package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"kos_chat/internal/domain"
	"kos_chat/pkg/logger"
)

type RoomRepository interface {
	// ListForUser возвращает ErrNoContent, если бэкенд ответил 204
	ListForUser(ctx context.Context, sess domain.Session) ([]domain.Room, error)
	Create(ctx context.Context, sess domain.Session, req domain.CreateRoomRequest) (string, error)
}

type roomRepository struct {
	api *apiClient
	log logger.Logger
}

func NewRoomRepository(api *apiClient, log logger.Logger) RoomRepository {
	return &roomRepository{api: api, log: log}
}

func (r *roomRepository) ListForUser(ctx context.Context, sess domain.Session) ([]domain.Room, error) {
	path := "/roomchats/user/" + url.PathEscape(sess.UserID)

	data, err := r.api.do(ctx, sess, http.MethodGet, path, "/roomchats/user/{userId}", nil)
	if err != nil {
		if !errors.Is(err, ErrNoContent) {
			r.log.Error("Failed to list rooms", "error", err, "user_id", sess.UserID)
		}
		return nil, err
	}

	rooms := []domain.Room{}
	if err := decode(data, &rooms); err != nil {
		r.log.Error("Failed to decode rooms", "error", err)
		return nil, err
	}
	return rooms, nil
}

// Create отдает id комнаты, который бэкенд возвращает сырым текстом
func (r *roomRepository) Create(ctx context.Context, sess domain.Session, req domain.CreateRoomRequest) (string, error) {
	data, err := r.api.do(ctx, sess, http.MethodPost, "/roomchats", "/roomchats", req)
	if err != nil {
		r.log.Error("Failed to create room", "error", err, "penyewa_id", req.PenyewaID, "pemilik_kos_id", req.PemilikKosID)
		return "", err
	}

	roomID := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if roomID == "" {
		return "", fmt.Errorf("backend returned empty room id")
	}
	return roomID, nil
}
