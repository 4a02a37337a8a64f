package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	TransportSockJS    = "sockjs"
	TransportWebSocket = "websocket"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Backend     BackendConfig
	Realtime    RealtimeConfig
	Chat        ChatConfig
	Redis       RedisConfig
	Session     SessionConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// BackendConfig - REST API маркетплейса
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

type RealtimeConfig struct {
	URL               string // эндпоинт SockJS/WebSocket брокера
	Transport         string // sockjs или websocket
	ReconnectDelay    time.Duration
	HeartbeatOutgoing time.Duration
	HeartbeatIncoming time.Duration
}

type ChatConfig struct {
	DedupLive bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SessionConfig struct {
	TTL time.Duration
	Dir string // каталог локальной сессии терминального клиента
}

// RateLimitConfig - лимит запросов к шлюзу на пользователя; 0 отключает лимит
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	// Загрузка .env файла (если существует)
	_ = godotenv.Load()

	apiURL := strings.TrimRight(getEnv("API_URL", "http://localhost:8080/api"), "/")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnvAsInt("SERVER_PORT", 3000),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Backend: BackendConfig{
			URL:     apiURL,
			Timeout: getEnvAsDuration("HTTP_TIMEOUT", 10*time.Second),
		},
		Realtime: RealtimeConfig{
			URL:               getEnv("WS_URL", "http://localhost:8080/ws"),
			Transport:         strings.ToLower(getEnv("WS_TRANSPORT", TransportSockJS)),
			ReconnectDelay:    getEnvAsDuration("WS_RECONNECT_DELAY", 5*time.Second),
			HeartbeatOutgoing: getEnvAsDuration("WS_HEARTBEAT_OUTGOING", 10*time.Second),
			HeartbeatIncoming: getEnvAsDuration("WS_HEARTBEAT_INCOMING", 10*time.Second),
		},
		Chat: ChatConfig{
			DedupLive: getEnvAsBool("CHAT_DEDUP_LIVE", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			TTL: getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			Dir: getEnv("SESSION_DIR", defaultSessionDir()),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 120),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("API_URL must be set")
	}
	if c.Realtime.URL == "" {
		return fmt.Errorf("WS_URL must be set")
	}
	if c.Realtime.Transport != TransportSockJS && c.Realtime.Transport != TransportWebSocket {
		return fmt.Errorf("WS_TRANSPORT must be %q or %q, got %q", TransportSockJS, TransportWebSocket, c.Realtime.Transport)
	}
	if c.Realtime.ReconnectDelay < 0 {
		return fmt.Errorf("WS_RECONNECT_DELAY must not be negative")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func defaultSessionDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kos-chat"
	}
	return filepath.Join(home, ".kos-chat")
}
