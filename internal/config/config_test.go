package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_URL", "")
	t.Setenv("WS_TRANSPORT", "")
	t.Setenv("WS_RECONNECT_DELAY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.Backend.URL)
	assert.Equal(t, TransportSockJS, cfg.Realtime.Transport)
	assert.Equal(t, 5*time.Second, cfg.Realtime.ReconnectDelay)
	assert.False(t, cfg.Chat.DedupLive)
	assert.Equal(t, 120, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_URL", "https://kos.example.com/api/")
	t.Setenv("WS_TRANSPORT", "WebSocket")
	t.Setenv("WS_RECONNECT_DELAY", "250ms")
	t.Setenv("CHAT_DEDUP_LIVE", "true")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://kos.example.com, https://admin.kos.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://kos.example.com/api", cfg.Backend.URL)
	assert.Equal(t, TransportWebSocket, cfg.Realtime.Transport)
	assert.Equal(t, 250*time.Millisecond, cfg.Realtime.ReconnectDelay)
	assert.True(t, cfg.Chat.DedupLive)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://kos.example.com", "https://admin.kos.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_RejectsUnknownTransport(t *testing.T) {
	t.Setenv("WS_TRANSPORT", "long-polling")

	_, err := Load()
	assert.ErrorContains(t, err, "WS_TRANSPORT")
}
