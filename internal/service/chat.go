package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"kos_chat/internal/domain"
	"kos_chat/internal/metrics"
	"kos_chat/internal/realtime"
	"kos_chat/internal/repository"
	apperrors "kos_chat/pkg/errors"
	"kos_chat/pkg/logger"
)

const (
	toastNotConnected = "not connected"
	toastLoadFailed   = "failed to load messages"
	toastEditFailed   = "failed to edit message"
	toastEdited       = "message updated"
	toastDeleteFailed = "failed to delete message"
	toastDeleted      = "message deleted"
	toastSendFailed   = "failed to send message"
)

// ViewListener получает события открытой комнаты. Вызовы приходят из горутины
// вызывающего (загрузка) и из горутины транспорта (живые сообщения).
type ViewListener interface {
	Notifier
	OnLoaded(messages []domain.Message)
	OnAppended(message domain.Message)
}

type ChatService interface {
	// Open загружает историю и подключает живую подписку комнаты.
	// Вызывающий обязан закрыть RoomView.
	Open(ctx context.Context, sess domain.Session, roomID string, listener ViewListener) (*RoomView, error)
	// WithRoom открывает комнату на время fn и закрывает ее на любом выходе
	WithRoom(ctx context.Context, sess domain.Session, roomID string, listener ViewListener, fn func(v *RoomView) error) error

	// Операции без открытой комнаты, для REST-шлюза
	History(ctx context.Context, sess domain.Session, roomID string) ([]domain.Message, error)
	Post(ctx context.Context, sess domain.Session, roomID, content string) error
	EditMessage(ctx context.Context, sess domain.Session, messageID, content string) error
	DeleteMessage(ctx context.Context, sess domain.Session, messageID string) error
}

type chatService struct {
	messageRepo repository.MessageRepository
	live        LiveFactory
	dedup       bool
	log         logger.Logger
}

func NewChatService(messageRepo repository.MessageRepository, live LiveFactory, dedup bool, log logger.Logger) ChatService {
	return &chatService{
		messageRepo: messageRepo,
		live:        live,
		dedup:       dedup,
		log:         log,
	}
}

func (s *chatService) Open(ctx context.Context, sess domain.Session, roomID string, listener ViewListener) (*RoomView, error) {
	if sess.Missing() {
		return nil, apperrors.ErrUnauthorized
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, apperrors.ErrMissingRoom
	}
	if err := repository.CheckSession(sess); err != nil {
		return nil, err
	}

	v := &RoomView{
		roomID:      roomID,
		sess:        sess,
		messageRepo: s.messageRepo,
		list:        NewMessageList(s.dedup),
		listener:    listener,
		log:         s.log.With("room_id", roomID, "user_id", sess.UserID),
	}

	// ошибка загрузки уже показана тостом, комната открывается с пустым списком
	_ = v.LoadInitial(ctx)

	v.live = s.live.New(sess, v.subscribe)
	v.live.Activate(ctx)
	metrics.OpenRoomViews.Inc()

	v.log.Info("Room view opened")
	return v, nil
}

func (s *chatService) WithRoom(ctx context.Context, sess domain.Session, roomID string, listener ViewListener, fn func(v *RoomView) error) error {
	v, err := s.Open(ctx, sess, roomID, listener)
	if err != nil {
		return err
	}
	defer v.Close()
	return fn(v)
}

func (s *chatService) History(ctx context.Context, sess domain.Session, roomID string) ([]domain.Message, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, apperrors.ErrMissingRoom
	}
	return s.messageRepo.List(ctx, sess, roomID)
}

// Post отправляет сообщение в комнату через REST, без живой сессии
func (s *chatService) Post(ctx context.Context, sess domain.Session, roomID, content string) error {
	if strings.TrimSpace(roomID) == "" {
		return apperrors.ErrMissingRoom
	}
	if strings.TrimSpace(content) == "" {
		return apperrors.ErrEmptyContent
	}

	return s.messageRepo.Send(ctx, sess, domain.SendMessageRequest{
		RoomChatID: &roomID,
		SenderID:   sess.UserID,
		Content:    content,
		SendType:   domain.SendTypeToOne,
		Role:       sess.Role,
	})
}

func (s *chatService) EditMessage(ctx context.Context, sess domain.Session, messageID, content string) error {
	if strings.TrimSpace(messageID) == "" {
		return apperrors.ErrBadRequest
	}
	if strings.TrimSpace(content) == "" {
		return apperrors.ErrEmptyContent
	}
	return s.messageRepo.Edit(ctx, sess, messageID, content)
}

func (s *chatService) DeleteMessage(ctx context.Context, sess domain.Session, messageID string) error {
	if strings.TrimSpace(messageID) == "" {
		return apperrors.ErrBadRequest
	}
	return s.messageRepo.Delete(ctx, sess, messageID)
}

// RoomView - одна открытая комната: список сообщений и собственная живая сессия
type RoomView struct {
	roomID      string
	sess        domain.Session
	messageRepo repository.MessageRepository
	live        LiveSession
	list        *MessageList
	listener    ViewListener
	log         logger.Logger

	mu     sync.Mutex
	closed bool
}

func (v *RoomView) RoomID() string {
	return v.roomID
}

// Messages возвращает копию текущего списка
func (v *RoomView) Messages() []domain.Message {
	return v.list.Snapshot()
}

func (v *RoomView) Connected() bool {
	return v.live != nil && v.live.Connected()
}

func (v *RoomView) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// subscribe выполняется после каждого подключения транспорта
func (v *RoomView) subscribe(live LiveSession) {
	if v.isClosed() {
		return
	}
	if _, err := live.Subscribe(domain.RoomDestination(v.roomID), v.handleFrame); err != nil {
		v.log.Error("Failed to subscribe to room", "error", err)
	}
}

func (v *RoomView) handleFrame(f *realtime.Frame) {
	var msg domain.Message
	if err := json.Unmarshal(f.Body, &msg); err != nil {
		v.log.Warn("Dropping malformed live message", "error", err)
		return
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	appended := v.list.Append(msg)
	v.mu.Unlock()

	if !appended {
		v.log.Debug("Duplicate live message skipped", "message_id", msg.ID)
		return
	}
	metrics.MessagesAppended.Inc()
	v.listener.OnAppended(msg)
}

// LoadInitial заменяет список историей с бэкенда. При ошибке список становится
// пустым, показывается тост, ошибка возвращается.
func (v *RoomView) LoadInitial(ctx context.Context) error {
	messages, err := v.messageRepo.List(ctx, v.sess, v.roomID)
	if err != nil {
		v.log.Error("Failed to load messages", "error", err)
		messages = []domain.Message{}
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return err
	}
	v.list.Replace(messages)
	// снимок под тем же замком: кадр, пришедший позже, попадет только в OnAppended
	loaded := v.list.Snapshot()
	v.mu.Unlock()

	if err != nil {
		v.listener.Error(toastLoadFailed)
	}
	v.listener.OnLoaded(loaded)
	return err
}

// Send публикует сообщение в комнату. Список не меняется: сообщение появится,
// когда брокер пришлет его обратно.
func (v *RoomView) Send(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		metrics.SendRejected.WithLabelValues("empty").Inc()
		return apperrors.ErrEmptyContent
	}
	if v.isClosed() {
		return apperrors.ErrNotConnected
	}
	if !v.Connected() {
		metrics.SendRejected.WithLabelValues("not_connected").Inc()
		v.listener.Error(toastNotConnected)
		return apperrors.ErrNotConnected
	}

	body, err := json.Marshal(domain.OutboundMessage{
		RoomChatID: v.roomID,
		SenderID:   v.sess.UserID,
		Content:    content,
		SendType:   domain.SendTypeToOne,
		Role:       v.sess.Role,
	})
	if err != nil {
		return err
	}

	if err := v.live.Publish(domain.ChatSendDestination, body); err != nil {
		v.log.Error("Failed to publish message", "error", err)
		if errors.Is(err, apperrors.ErrNotConnected) {
			metrics.SendRejected.WithLabelValues("not_connected").Inc()
			v.listener.Error(toastNotConnected)
		} else {
			v.listener.Error(toastSendFailed)
		}
		return err
	}

	metrics.MessagesPublished.Inc()
	return nil
}

// Edit меняет текст сообщения и перечитывает историю
func (v *RoomView) Edit(ctx context.Context, messageID, content string) error {
	if strings.TrimSpace(messageID) == "" {
		return apperrors.ErrBadRequest
	}
	if strings.TrimSpace(content) == "" {
		return apperrors.ErrEmptyContent
	}

	if err := v.messageRepo.Edit(ctx, v.sess, messageID, content); err != nil {
		v.listener.Error(toastEditFailed)
		return err
	}
	v.listener.Success(toastEdited)
	return v.refresh(ctx)
}

// Delete удаляет сообщение и перечитывает историю
func (v *RoomView) Delete(ctx context.Context, messageID string) error {
	if strings.TrimSpace(messageID) == "" {
		return apperrors.ErrBadRequest
	}

	if err := v.messageRepo.Delete(ctx, v.sess, messageID); err != nil {
		v.listener.Error(toastDeleteFailed)
		return err
	}
	v.listener.Success(toastDeleted)
	return v.refresh(ctx)
}

func (v *RoomView) refresh(ctx context.Context) error {
	if v.isClosed() {
		return nil
	}
	return v.LoadInitial(ctx)
}

// Close отключает транспорт. После возврата список не меняется и слушатель
// не вызывается. Повторный вызов ничего не делает.
func (v *RoomView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	if v.live != nil {
		v.live.Deactivate()
	}
	metrics.OpenRoomViews.Dec()
	v.log.Info("Room view closed")
}
