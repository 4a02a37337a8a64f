package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"kos_chat/internal/metrics"
	apperrors "kos_chat/pkg/errors"
	"kos_chat/pkg/logger"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSubscribed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateSubscribed:
		return "SUBSCRIBED"
	}
	return "DISCONNECTED"
}

type Config struct {
	URL               string
	Transport         string
	ReconnectDelay    time.Duration // 0 - не переподключаться
	HeartbeatOutgoing time.Duration
	HeartbeatIncoming time.Duration
	HandshakeTimeout  time.Duration
	// ConnectHeaders уходят и в CONNECT, и в HTTP-заголовки рукопожатия
	ConnectHeaders map[string]string
}

// MessageHandler вызывается на горутине чтения сессии
type MessageHandler func(f *Frame)

// Session - STOMP-сессия поверх одного сокета. Владелец сессии ровно один.
type Session struct {
	cfg       Config
	log       logger.Logger
	dialer    *websocket.Dialer
	onConnect func(*Session)

	mu      sync.Mutex
	state   State
	conn    conn
	subs    map[string]*Subscription
	nextSub int
	active  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type Subscription struct {
	ID          string
	Destination string
	handler     MessageHandler
	session     *Session
}

// NewSession создает неактивную сессию; onConnect выполняется после каждого CONNECTED,
// в том числе после переподключения
func NewSession(cfg Config, onConnect func(*Session), log logger.Logger) *Session {
	if cfg.Transport == "" {
		cfg.Transport = TransportSockJS
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Session{
		cfg:       cfg,
		log:       log.With("component", "realtime"),
		dialer:    &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout, Proxy: http.ProxyFromEnvironment},
		onConnect: onConnect,
		subs:      make(map[string]*Subscription),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected отражает только флаг соединения, без проверки живости сокета
func (s *Session) Connected() bool {
	return s.State() >= StateConnected
}

// Activate запускает цикл подключения; повторный вызов на активной сессии ничего не делает
func (s *Session) Activate(ctx context.Context) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.active = true
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.run(ctx, done)
}

// Deactivate закрывает сокет и ждет выхода из цикла чтения: после возврата
// ни один обработчик подписки не будет вызван. Нельзя вызывать из обработчика.
func (s *Session) Deactivate() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	c := s.conn
	connected := s.state >= StateConnected
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if connected && c != nil {
		disconnect := NewFrame(CmdDisconnect, "receipt", "disconnect-"+uuid.NewString())
		if err := writeFrame(c, disconnect); err != nil {
			s.log.Debug("Failed to send DISCONNECT", "error", err)
		}
	}

	cancel()
	<-done
	s.log.Debug("Realtime session deactivated")
}

// Subscribe отправляет SUBSCRIBE; требует подключенной сессии
func (s *Session) Subscribe(destination string, handler MessageHandler) (*Subscription, error) {
	s.mu.Lock()
	if s.conn == nil || s.state < StateConnected {
		s.mu.Unlock()
		return nil, apperrors.ErrNotConnected
	}
	id := "sub-" + strconv.Itoa(s.nextSub)
	s.nextSub++
	sub := &Subscription{ID: id, Destination: destination, handler: handler, session: s}
	s.subs[id] = sub
	s.state = StateSubscribed
	c := s.conn
	s.mu.Unlock()

	subscribe := NewFrame(CmdSubscribe, "id", id, "destination", destination, "ack", "auto")
	if err := writeFrame(c, subscribe); err != nil {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: %w", destination, err)
	}

	s.log.Info("Subscribed", "destination", destination, "subscription", id)
	return sub, nil
}

func (sub *Subscription) Unsubscribe() error {
	s := sub.session
	s.mu.Lock()
	if _, ok := s.subs[sub.ID]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.subs, sub.ID)
	if len(s.subs) == 0 && s.state == StateSubscribed {
		s.state = StateConnected
	}
	c := s.conn
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	return writeFrame(c, NewFrame(CmdUnsubscribe, "id", sub.ID))
}

// Publish отправляет SEND только при подключенной сессии; без очереди и повторов
func (s *Session) Publish(destination string, body []byte) error {
	s.mu.Lock()
	c := s.conn
	connected := s.state >= StateConnected
	s.mu.Unlock()

	if !connected || c == nil {
		return apperrors.ErrNotConnected
	}

	send := NewFrame(CmdSend, "destination", destination, "content-type", "application/json")
	send.Body = body
	if err := writeFrame(c, send); err != nil {
		return fmt.Errorf("publish to %s: %w", destination, err)
	}
	return nil
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		err := s.connectAndServe(ctx)
		s.markDisconnected()

		if ctx.Err() != nil {
			return
		}

		metrics.RealtimeConnectErrors.Inc()
		s.log.Error("Realtime connection lost", "error", err, "url", s.cfg.URL)

		if s.cfg.ReconnectDelay <= 0 {
			s.log.Warn("Reconnect disabled, session stays disconnected")
			return
		}

		timer := time.NewTimer(s.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		metrics.RealtimeReconnects.Inc()
		s.log.Info("Reconnecting", "delay", s.cfg.ReconnectDelay.String())
	}
}

func (s *Session) connectAndServe(ctx context.Context) error {
	s.setState(StateConnecting)

	header := http.Header{}
	for k, v := range s.cfg.ConnectHeaders {
		header.Set(k, v)
	}

	c, err := dial(ctx, s.dialer, s.cfg.URL, s.cfg.Transport, header)
	if err != nil {
		return err
	}
	defer c.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-stop:
		}
	}()

	// idle - сколько ждать следующего фрагмента; любой фрагмент, включая
	// heart-beat SockJS, продлевает срок
	idle := s.cfg.HandshakeTimeout
	reader := NewFrameReader(func() ([]byte, error) {
		if idle > 0 {
			_ = c.SetReadDeadline(time.Now().Add(idle))
		} else {
			_ = c.SetReadDeadline(time.Time{})
		}
		return c.Read()
	})

	if err := writeFrame(c, s.connectFrame()); err != nil {
		return fmt.Errorf("send CONNECT: %w", err)
	}

	connected, err := s.awaitConnected(reader)
	if err != nil {
		return err
	}

	outgoing, incoming := negotiateHeartbeat(s.cfg.HeartbeatOutgoing, s.cfg.HeartbeatIncoming, connected.Header.Get("heart-beat"))
	idle = 2 * incoming

	s.mu.Lock()
	s.conn = c
	s.state = StateConnected
	s.mu.Unlock()
	metrics.RealtimeSessions.Inc()
	s.log.Info("Connected to realtime broker", "server", connected.Header.Get("server"), "version", connected.Header.Get("version"))

	if outgoing > 0 {
		go s.heartbeat(c, outgoing, stop)
	}

	if s.onConnect != nil {
		s.onConnect(s)
	}

	for {
		f, err := reader.Read()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if f == nil {
			continue
		}
		if err := s.handleFrame(f); err != nil {
			return err
		}
	}
}

func (s *Session) connectFrame() *Frame {
	host := ""
	if u, err := url.Parse(s.cfg.URL); err == nil {
		host = u.Hostname()
	}

	connect := NewFrame(CmdConnect,
		"accept-version", "1.2,1.1,1.0",
		"heart-beat", fmt.Sprintf("%d,%d", s.cfg.HeartbeatOutgoing.Milliseconds(), s.cfg.HeartbeatIncoming.Milliseconds()),
	)
	if host != "" {
		connect.Header.Set("host", host)
	}
	for k, v := range s.cfg.ConnectHeaders {
		connect.Header.Set(k, v)
	}
	return connect
}

func (s *Session) awaitConnected(reader *frame.Reader) (*Frame, error) {
	for {
		f, err := reader.Read()
		if err != nil {
			return nil, fmt.Errorf("await CONNECTED: %w", err)
		}
		if f == nil {
			continue
		}

		metrics.RealtimeFramesReceived.WithLabelValues(f.Command).Inc()
		switch f.Command {
		case CmdConnected:
			return f, nil
		case CmdError:
			return nil, fmt.Errorf("broker rejected CONNECT: %s %s", f.Header.Get("message"), strings.TrimSpace(string(f.Body)))
		default:
			return nil, fmt.Errorf("unexpected %s frame before CONNECTED", f.Command)
		}
	}
}

func (s *Session) handleFrame(f *Frame) error {
	metrics.RealtimeFramesReceived.WithLabelValues(f.Command).Inc()

	switch f.Command {
	case CmdMessage:
		id := f.Header.Get("subscription")
		s.mu.Lock()
		sub := s.subs[id]
		s.mu.Unlock()
		if sub == nil {
			s.log.Debug("Dropping frame for unknown subscription", "subscription", id, "destination", f.Header.Get("destination"))
			return nil
		}
		sub.handler(f)
	case CmdError:
		return fmt.Errorf("broker error: %s %s", f.Header.Get("message"), strings.TrimSpace(string(f.Body)))
	case CmdReceipt:
		s.log.Debug("Receipt", "receipt_id", f.Header.Get("receipt-id"))
	default:
		s.log.Debug("Ignoring frame", "command", f.Command)
	}
	return nil
}

func (s *Session) heartbeat(c conn, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.Write([]byte("\n")); err != nil {
				s.log.Debug("Failed to send heart-beat", "error", err)
				return
			}
		}
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) markDisconnected() {
	s.mu.Lock()
	wasConnected := s.conn != nil
	s.conn = nil
	s.state = StateDisconnected
	s.subs = make(map[string]*Subscription)
	s.mu.Unlock()

	if wasConnected {
		metrics.RealtimeSessions.Dec()
	}
}

// negotiateHeartbeat: каждая сторона шлет не чаще, чем другая готова принимать
func negotiateHeartbeat(clientOut, clientIn time.Duration, serverHeader string) (time.Duration, time.Duration) {
	serverOut, serverIn, err := frame.ParseHeartBeat(serverHeader)
	if err != nil {
		return 0, 0
	}

	var outgoing, incoming time.Duration
	if clientOut > 0 && serverIn > 0 {
		outgoing = maxDuration(clientOut, serverIn)
	}
	if clientIn > 0 && serverOut > 0 {
		incoming = maxDuration(clientIn, serverOut)
	}
	return outgoing, incoming
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// writeFrame отправляет кадр одним фрагментом
func writeFrame(c conn, f *Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return err
	}
	return c.Write(data)
}
