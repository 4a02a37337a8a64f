package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"kos_chat/internal/domain"
	"kos_chat/internal/realtime"
)

var (
	tenantSession = domain.Session{Token: "tenant-token", UserID: "u1", Role: domain.RoleTenant}
	ownerSession  = domain.Session{Token: "owner-token", UserID: "o1", Role: domain.RoleOwner}
)

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) List(ctx context.Context, sess domain.Session, roomID string) ([]domain.Message, error) {
	args := m.Called(ctx, sess, roomID)
	messages, _ := args.Get(0).([]domain.Message)
	return messages, args.Error(1)
}

func (m *MockMessageRepository) Send(ctx context.Context, sess domain.Session, req domain.SendMessageRequest) error {
	args := m.Called(ctx, sess, req)
	return args.Error(0)
}

func (m *MockMessageRepository) Edit(ctx context.Context, sess domain.Session, messageID, newContent string) error {
	args := m.Called(ctx, sess, messageID, newContent)
	return args.Error(0)
}

func (m *MockMessageRepository) Delete(ctx context.Context, sess domain.Session, messageID string) error {
	args := m.Called(ctx, sess, messageID)
	return args.Error(0)
}

type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) ListForUser(ctx context.Context, sess domain.Session) ([]domain.Room, error) {
	args := m.Called(ctx, sess)
	rooms, _ := args.Get(0).([]domain.Room)
	return rooms, args.Error(1)
}

func (m *MockRoomRepository) Create(ctx context.Context, sess domain.Session, req domain.CreateRoomRequest) (string, error) {
	args := m.Called(ctx, sess, req)
	return args.String(0), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) ListForUser(ctx context.Context, sess domain.Session) ([]domain.Notification, error) {
	args := m.Called(ctx, sess)
	list, _ := args.Get(0).([]domain.Notification)
	return list, args.Error(1)
}

func (m *MockNotificationRepository) Get(ctx context.Context, sess domain.Session, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, sess, notificationID)
	n, _ := args.Get(0).(*domain.Notification)
	return n, args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, sess domain.Session, notificationID string) error {
	args := m.Called(ctx, sess, notificationID)
	return args.Error(0)
}

// fakeLive - управляемая из теста живая сессия
type fakeLive struct {
	mu          sync.Mutex
	connected   bool
	activated   bool
	deactivated bool
	onConnect   func(LiveSession)
	handlers    map[string]realtime.MessageHandler
	published   []publishedFrame
	publishErr  error
	// connectOnActivate имитирует успешный CONNECTED сразу при Activate
	connectOnActivate bool
}

type publishedFrame struct {
	Destination string
	Body        []byte
}

func (f *fakeLive) Activate(ctx context.Context) {
	f.mu.Lock()
	f.activated = true
	connect := f.connectOnActivate
	f.mu.Unlock()
	if connect {
		f.connect()
	}
}

func (f *fakeLive) connect() {
	f.mu.Lock()
	f.connected = true
	onConnect := f.onConnect
	f.mu.Unlock()
	if onConnect != nil {
		onConnect(f)
	}
}

func (f *fakeLive) Deactivate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.deactivated = true
}

func (f *fakeLive) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeLive) Subscribe(destination string, handler realtime.MessageHandler) (*realtime.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[string]realtime.MessageHandler)
	}
	f.handlers[destination] = handler
	return &realtime.Subscription{ID: "sub-0", Destination: destination}, nil
}

func (f *fakeLive) Publish(destination string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedFrame{Destination: destination, Body: body})
	return nil
}

// deliver передает кадр обработчику подписки, как это делает цикл чтения
func (f *fakeLive) deliver(destination string, body string) bool {
	f.mu.Lock()
	handler, ok := f.handlers[destination]
	f.mu.Unlock()
	if !ok {
		return false
	}
	handler(&realtime.Frame{Command: realtime.CmdMessage, Body: []byte(body)})
	return true
}

func (f *fakeLive) publishedFrames() []publishedFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedFrame(nil), f.published...)
}

type fakeFactory struct {
	live     *fakeLive
	sessions []domain.Session
}

func (f *fakeFactory) New(sess domain.Session, onConnect func(LiveSession)) LiveSession {
	f.sessions = append(f.sessions, sess)
	f.live.mu.Lock()
	f.live.onConnect = onConnect
	f.live.mu.Unlock()
	return f.live
}

type recordingListener struct {
	mu        sync.Mutex
	successes []string
	errors    []string
	loaded    [][]domain.Message
	appended  []domain.Message
}

func (l *recordingListener) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.successes = append(l.successes, msg)
}

func (l *recordingListener) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingListener) OnLoaded(messages []domain.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = append(l.loaded, messages)
}

func (l *recordingListener) OnAppended(message domain.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appended = append(l.appended, message)
}

func (l *recordingListener) errorToasts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

func (l *recordingListener) appendedIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.appended))
	for _, m := range l.appended {
		ids = append(ids, m.ID)
	}
	return ids
}

func messageIDs(messages []domain.Message) []string {
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	return ids
}
