// Package realtimetest - STOMP-брокер в процессе теста поверх gorilla/websocket,
// по образцу net/http/httptest
package realtimetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"kos_chat/internal/realtime"
)

// Handshake - что брокер увидел при подключении клиента
type Handshake struct {
	Header  http.Header
	Connect *realtime.Frame
}

type Broker struct {
	Server *httptest.Server
	SockJS bool

	// OnSend вызывается на каждый полученный SEND
	OnSend func(b *Broker, f *realtime.Frame)
	// RejectConnect - отвечать на CONNECT кадром ERROR
	RejectConnect bool

	upgrader websocket.Upgrader

	mu         sync.Mutex
	conns      []*brokerConn
	handshakes []Handshake
	frames     []*realtime.Frame
}

type brokerConn struct {
	ws     *websocket.Conn
	sockjs bool
	wmu    sync.Mutex
	subs   map[string]string // destination -> id подписки
	closed bool
}

// NewBroker запускает брокер. С sockjs=true он говорит кадрами SockJS
// на /ws/<server>/<session>/websocket, иначе голым STOMP на /ws.
func NewBroker(sockjs bool) *Broker {
	b := &Broker{
		SockJS:   sockjs,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	return b
}

// URL - http:// адрес для конфигурации realtime.Session
func (b *Broker) URL() string {
	return b.Server.URL + "/ws"
}

func (b *Broker) Close() {
	b.DropConnections()
	b.Server.Close()
}

func (b *Broker) serve(w http.ResponseWriter, r *http.Request) {
	if b.SockJS && !strings.HasSuffix(r.URL.Path, "/websocket") {
		http.NotFound(w, r)
		return
	}

	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &brokerConn{ws: ws, sockjs: b.SockJS, subs: make(map[string]string)}
	b.mu.Lock()
	b.conns = append(b.conns, c)
	b.mu.Unlock()

	if c.sockjs {
		c.writeRaw([]byte("o"))
	}

	reader := realtime.NewFrameReader(func() ([]byte, error) {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil || !c.sockjs {
				return data, err
			}
			var parts []string
			if err := json.Unmarshal(data, &parts); err != nil {
				continue
			}
			return []byte(strings.Join(parts, "")), nil
		}
	})

	for {
		f, err := reader.Read()
		if err != nil {
			b.markClosed(c)
			ws.Close()
			return
		}
		if f == nil {
			continue
		}
		b.handle(c, r.Header, f)
	}
}

func (b *Broker) handle(c *brokerConn, header http.Header, f *realtime.Frame) {
	b.mu.Lock()
	b.frames = append(b.frames, f)
	if f.Command == realtime.CmdConnect {
		b.handshakes = append(b.handshakes, Handshake{Header: header.Clone(), Connect: f})
	}
	b.mu.Unlock()

	switch f.Command {
	case realtime.CmdConnect:
		if b.RejectConnect {
			c.write(realtime.NewFrame(realtime.CmdError, "message", "access denied"))
			return
		}
		c.write(realtime.NewFrame(realtime.CmdConnected, "version", "1.2", "heart-beat", "0,0", "server", "realtimetest"))
	case realtime.CmdSubscribe:
		b.mu.Lock()
		c.subs[f.Header.Get("destination")] = f.Header.Get("id")
		b.mu.Unlock()
	case realtime.CmdUnsubscribe:
		b.mu.Lock()
		for dest, id := range c.subs {
			if id == f.Header.Get("id") {
				delete(c.subs, dest)
			}
		}
		b.mu.Unlock()
	case realtime.CmdSend:
		if b.OnSend != nil {
			b.OnSend(b, f)
		}
	case realtime.CmdDisconnect:
		if receipt := f.Header.Get("receipt"); receipt != "" {
			c.write(realtime.NewFrame(realtime.CmdReceipt, "receipt-id", receipt))
		}
	}
}

// Deliver рассылает MESSAGE всем подписчикам destination и возвращает,
// скольким он ушел
func (b *Broker) Deliver(destination string, body []byte) int {
	b.mu.Lock()
	var targets []*brokerConn
	var ids []string
	for _, c := range b.conns {
		if c.closed {
			continue
		}
		if id, ok := c.subs[destination]; ok {
			targets = append(targets, c)
			ids = append(ids, id)
		}
	}
	b.mu.Unlock()

	delivered := 0
	for i, c := range targets {
		f := realtime.NewFrame(realtime.CmdMessage,
			"destination", destination,
			"subscription", ids[i],
			"message-id", time.Now().Format(time.RFC3339Nano),
			"content-type", "application/json",
		)
		f.Body = body
		if c.write(f) == nil {
			delivered++
		}
	}
	return delivered
}

// SendError шлет ERROR во все открытые соединения
func (b *Broker) SendError(message string) {
	for _, c := range b.openConns() {
		c.write(realtime.NewFrame(realtime.CmdError, "message", message))
	}
}

// DropConnections закрывает сокеты клиентов со стороны сервера
func (b *Broker) DropConnections() {
	for _, c := range b.openConns() {
		c.ws.Close()
		b.markClosed(c)
	}
}

// Subscribers - сколько открытых соединений подписано на destination
func (b *Broker) Subscribers(destination string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.conns {
		if _, ok := c.subs[destination]; ok && !c.closed {
			n++
		}
	}
	return n
}

func (b *Broker) Handshakes() []Handshake {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Handshake(nil), b.handshakes...)
}

// Frames возвращает полученные кадры с данной командой
func (b *Broker) Frames(command string) []*realtime.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*realtime.Frame
	for _, f := range b.frames {
		if f.Command == command {
			out = append(out, f)
		}
	}
	return out
}

func (b *Broker) openConns() []*brokerConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*brokerConn
	for _, c := range b.conns {
		if !c.closed {
			out = append(out, c)
		}
	}
	return out
}

func (b *Broker) markClosed(c *brokerConn) {
	b.mu.Lock()
	c.closed = true
	b.mu.Unlock()
}

func (c *brokerConn) write(f *realtime.Frame) error {
	stompFrame, err := realtime.EncodeFrame(f)
	if err != nil {
		return err
	}
	if !c.sockjs {
		return c.writeRaw(stompFrame)
	}
	payload, err := json.Marshal([]string{string(stompFrame)})
	if err != nil {
		return err
	}
	return c.writeRaw(append([]byte("a"), payload...))
}

func (c *brokerConn) writeRaw(p []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, p)
}
