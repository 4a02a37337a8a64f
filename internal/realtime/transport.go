package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	TransportWebSocket = "websocket"
	TransportSockJS    = "sockjs"
)

// conn - сокет, по которому ходят STOMP-фрагменты
type conn interface {
	// Read возвращает очередной фрагмент; пустой фрагмент - heart-beat транспорта
	Read() ([]byte, error)
	Write(p []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// SockJSCloseError - сервер SockJS закрыл сессию кадром c[code,"reason"]
type SockJSCloseError struct {
	Code   int
	Reason string
}

func (e *SockJSCloseError) Error() string {
	return fmt.Sprintf("sockjs session closed: %d %s", e.Code, e.Reason)
}

func dial(ctx context.Context, dialer *websocket.Dialer, rawURL, transport string, header http.Header) (conn, error) {
	target, err := websocketURL(rawURL, transport)
	if err != nil {
		return nil, err
	}

	ws, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	if transport != TransportSockJS {
		return &rawConn{ws: ws}, nil
	}

	sc := &sockJSConn{rawConn: rawConn{ws: ws}}
	if err := sc.awaitOpen(); err != nil {
		ws.Close()
		return nil, err
	}
	return sc, nil
}

// websocketURL переводит http(s) адрес в ws(s) и для SockJS добавляет
// /<server>/<session>/websocket
func websocketURL(rawURL, transport string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", u.Scheme)
	}

	if transport == TransportSockJS {
		server := fmt.Sprintf("%03d", rand.Intn(1000))
		session := strings.ReplaceAll(uuid.NewString(), "-", "")
		u.Path = strings.TrimRight(u.Path, "/") + "/" + server + "/" + session + "/websocket"
	}
	return u.String(), nil
}

type rawConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *rawConn) Read() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *rawConn) Write(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, p)
}

func (c *rawConn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

func (c *rawConn) Close() error {
	return c.ws.Close()
}

// sockJSConn разворачивает кадры SockJS: o, h, a[...], m"...", c[...]
type sockJSConn struct {
	rawConn
}

func (c *sockJSConn) awaitOpen() error {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return fmt.Errorf("sockjs open: %w", err)
	}
	if len(data) == 0 || data[0] != 'o' {
		if len(data) > 0 && data[0] == 'c' {
			return parseSockJSClose(data[1:])
		}
		return fmt.Errorf("sockjs open: unexpected frame %q", data)
	}
	return nil
}

func (c *sockJSConn) Read() ([]byte, error) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}

		switch data[0] {
		case 'o':
			continue
		case 'h':
			return []byte{}, nil
		case 'a':
			var messages []string
			if err := json.Unmarshal(data[1:], &messages); err != nil {
				return nil, fmt.Errorf("sockjs: malformed array frame: %w", err)
			}
			return []byte(strings.Join(messages, "")), nil
		case 'm':
			var message string
			if err := json.Unmarshal(data[1:], &message); err != nil {
				return nil, fmt.Errorf("sockjs: malformed message frame: %w", err)
			}
			return []byte(message), nil
		case 'c':
			return nil, parseSockJSClose(data[1:])
		default:
			return nil, fmt.Errorf("sockjs: unknown frame type %q", data[0])
		}
	}
}

func (c *sockJSConn) Write(p []byte) error {
	payload, err := json.Marshal([]string{string(p)})
	if err != nil {
		return err
	}
	return c.rawConn.Write(payload)
}

func parseSockJSClose(data []byte) error {
	var parts []interface{}
	if err := json.Unmarshal(data, &parts); err != nil || len(parts) < 2 {
		return &SockJSCloseError{Code: 0, Reason: string(data)}
	}
	code, _ := parts[0].(float64)
	reason, _ := parts[1].(string)
	return &SockJSCloseError{Code: int(code), Reason: reason}
}

// IsSockJSClose проверяет, что ошибка - закрытие сессии сервером
func IsSockJSClose(err error) bool {
	var closeErr *SockJSCloseError
	return errors.As(err, &closeErr)
}
