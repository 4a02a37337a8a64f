package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"kos_chat/internal/domain"
	"kos_chat/internal/middleware"
	"kos_chat/internal/service"
	"kos_chat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxCommandSize = 64 * 1024
	sendBuffer     = 64
)

// Event - сообщение шлюза браузеру
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

const (
	EventLoaded       = "loaded"
	EventAppended     = "appended"
	EventToast        = "toast"
	EventError        = "error"
	EventNotification = "notification"
)

type Toast struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Command - действие браузера в открытой комнате
type Command struct {
	Type      string `json:"type"` // send, edit, delete, reload
	MessageID string `json:"messageId,omitempty"`
	Content   string `json:"content,omitempty"`
}

type WebSocketHandler struct {
	chatService         service.ChatService
	notificationService service.NotificationService
	upgrader            websocket.Upgrader
	log                 logger.Logger
}

func NewWebSocketHandler(chatService service.ChatService, notificationService service.NotificationService, allowedOrigins []string, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		chatService:         chatService,
		notificationService: notificationService,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		log: log,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// HandleRoom открывает одну комнату на время жизни сокета
func (h *WebSocketHandler) HandleRoom(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	roomID := c.Param("id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := newWSClient(conn, h.log.With("room_id", roomID, "user_id", sess.UserID))
	go client.writeLoop()
	defer client.close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	view, err := h.chatService.Open(ctx, sess, roomID, client)
	if err != nil {
		client.push(Event{Type: EventError, Data: gin.H{"error": err.Error()}})
		return
	}
	defer view.Close()

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("Room socket closed unexpectedly", "error", err)
			}
			return
		}
		if err := h.dispatch(ctx, view, cmd); err != nil {
			client.push(Event{Type: EventError, Data: gin.H{"error": err.Error(), "command": cmd.Type}})
		}
	}
}

func (h *WebSocketHandler) dispatch(ctx context.Context, view *service.RoomView, cmd Command) error {
	switch cmd.Type {
	case "send":
		return view.Send(ctx, cmd.Content)
	case "edit":
		return view.Edit(ctx, cmd.MessageID, cmd.Content)
	case "delete":
		return view.Delete(ctx, cmd.MessageID)
	case "reload":
		return view.LoadInitial(ctx)
	}
	return errUnknownCommand
}

// HandleNotifications пересылает живые уведомления пользователя до закрытия сокета
func (h *WebSocketHandler) HandleNotifications(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := newWSClient(conn, h.log.With("user_id", sess.UserID))
	go client.writeLoop()
	defer client.close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// входящие кадры не нужны, но чтение обрабатывает close и pong
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = h.notificationService.Watch(ctx, sess, func(n domain.Notification) {
		client.push(Event{Type: EventNotification, Data: n})
	})
	if err != nil {
		client.push(Event{Type: EventError, Data: gin.H{"error": err.Error()}})
	}
}

// wsClient - сокет браузера; он же слушатель открытой комнаты
type wsClient struct {
	conn *websocket.Conn
	send chan Event
	log  logger.Logger

	done      chan struct{}
	closeOnce sync.Once
	writeDone chan struct{}
}

func newWSClient(conn *websocket.Conn, log logger.Logger) *wsClient {
	conn.SetReadLimit(maxCommandSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	return &wsClient{
		conn:      conn,
		send:      make(chan Event, sendBuffer),
		log:       log,
		done:      make(chan struct{}),
		writeDone: make(chan struct{}),
	}
}

func (c *wsClient) push(ev Event) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- ev:
	default:
		c.log.Warn("Client send buffer full, dropping event", "type", ev.Type)
	}
}

func (c *wsClient) writeLoop() {
	defer close(c.writeDone)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.log.Debug("Failed to write event", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			// дописываем то, что уже в буфере
			for {
				select {
				case ev := <-c.send:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteJSON(ev); err != nil {
						return
					}
				default:
					_ = c.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
					return
				}
			}
		}
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		<-c.writeDone
		c.conn.Close()
	})
}

func (c *wsClient) Success(msg string) {
	c.push(Event{Type: EventToast, Data: Toast{Level: "success", Message: msg}})
}

func (c *wsClient) Error(msg string) {
	c.push(Event{Type: EventToast, Data: Toast{Level: "error", Message: msg}})
}

func (c *wsClient) OnLoaded(messages []domain.Message) {
	c.push(Event{Type: EventLoaded, Data: messages})
}

func (c *wsClient) OnAppended(message domain.Message) {
	c.push(Event{Type: EventAppended, Data: message})
}
