package realtime

import (
	"bytes"
	"strconv"

	"github.com/go-stomp/stomp/v3/frame"
)

// Команды STOMP 1.2, которые использует клиент
const (
	CmdConnect     = "CONNECT"
	CmdConnected   = "CONNECTED"
	CmdSend        = "SEND"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdDisconnect  = "DISCONNECT"
	CmdMessage     = "MESSAGE"
	CmdReceipt     = "RECEIPT"
	CmdError       = "ERROR"
)

// Frame - кадр STOMP из go-stomp; заголовки в f.Header
type Frame = frame.Frame

// NewFrame собирает кадр из пар ключ/значение
func NewFrame(command string, keysAndValues ...string) *Frame {
	return frame.New(command, keysAndValues...)
}

// EncodeFrame сериализует кадр в один фрагмент сокета: SockJS отправляет
// каждый Write отдельным сообщением, поэтому кадр не должен дробиться
func EncodeFrame(f *Frame) ([]byte, error) {
	if len(f.Body) > 0 {
		if _, ok := f.Header.Contains("content-length"); !ok {
			f.Header.Set("content-length", strconv.Itoa(len(f.Body)))
		}
	}

	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewFrameReader читает кадры из последовательности фрагментов сокета.
// Кадр может прийти по частям, один фрагмент может нести несколько кадров.
// Read возвращает nil-кадр на heart-beat.
func NewFrameReader(next func() ([]byte, error)) *frame.Reader {
	return frame.NewReader(&chunkReader{next: next})
}

// chunkReader склеивает фрагменты в поток для frame.Reader
type chunkReader struct {
	next func() ([]byte, error)
	buf  []byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		chunk, err := r.next()
		if err != nil {
			return 0, err
		}
		r.buf = chunk
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
