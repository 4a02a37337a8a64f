package realtime

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsocketURL(t *testing.T) {
	raw, err := websocketURL("http://localhost:8080/ws", TransportWebSocket)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", raw)

	secure, err := websocketURL("https://kos.example.com/ws/", TransportWebSocket)
	require.NoError(t, err)
	assert.Equal(t, "wss://kos.example.com/ws/", secure)

	sockjs, err := websocketURL("http://localhost:8080/ws/", TransportSockJS)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^ws://localhost:8080/ws/\d{3}/[0-9a-f]{32}/websocket$`), sockjs)

	_, err = websocketURL("ftp://localhost/ws", TransportWebSocket)
	assert.Error(t, err)
}

func TestParseSockJSClose(t *testing.T) {
	err := parseSockJSClose([]byte(`[3000,"Go away!"]`))

	var closeErr *SockJSCloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, 3000, closeErr.Code)
	assert.Equal(t, "Go away!", closeErr.Reason)
	assert.True(t, IsSockJSClose(err))
}

func TestNegotiateHeartbeat(t *testing.T) {
	ts := []struct {
		name             string
		clientOut        time.Duration
		clientIn         time.Duration
		server           string
		expectedOutgoing time.Duration
		expectedIncoming time.Duration
	}{
		{name: "server slower", clientOut: 10 * time.Second, clientIn: 10 * time.Second, server: "20000,30000", expectedOutgoing: 30 * time.Second, expectedIncoming: 20 * time.Second},
		{name: "server disables", clientOut: 10 * time.Second, clientIn: 10 * time.Second, server: "0,0"},
		{name: "client disables", server: "10000,10000"},
		{name: "missing header", clientOut: time.Second, clientIn: time.Second, server: ""},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			out, in := negotiateHeartbeat(tt.clientOut, tt.clientIn, tt.server)
			assert.Equal(t, tt.expectedOutgoing, out)
			assert.Equal(t, tt.expectedIncoming, in)
		})
	}
}
