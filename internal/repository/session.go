package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"kos_chat/internal/domain"
	apperrors "kos_chat/pkg/errors"
	"kos_chat/pkg/logger"
)

const (
	SessionKeyPrefix  = "kos_chat:session:%s"
	currentSessionID  = "current"
	sessionFileName   = "session.json"
	tokenExpiryLeeway = 5 * time.Second
)

// SessionClaims - поля, которые бэкенд кладет в токен
type SessionClaims struct {
	UserID    string `json:"userId"`
	AccountID string `json:"id"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// CheckSession отсекает вызовы без учетных данных и с истекшим JWT.
// Подпись здесь не проверяется: ее проверяет бэкенд.
func CheckSession(sess domain.Session) error {
	if sess.Missing() {
		return apperrors.ErrUnauthorized
	}

	claims, err := ParseClaims(sess.Token)
	if err != nil {
		// непрозрачный токен: решает бэкенд
		return nil
	}
	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Add(tokenExpiryLeeway)) {
		return apperrors.ErrTokenExpired
	}
	return nil
}

// ParseClaims читает claims без проверки подписи
func ParseClaims(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// SessionFromToken собирает сессию из claims токена; пустые поля остаются пустыми
func SessionFromToken(token string) domain.Session {
	sess := domain.Session{Token: token}
	claims, err := ParseClaims(token)
	if err != nil {
		return sess
	}

	sess.UserID = firstNonEmpty(claims.UserID, claims.AccountID, claims.Subject)
	sess.Role = domain.ParseRole(claims.Role)
	sess.Email = claims.Email
	return sess
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// SessionStore хранит явный контекст учетных данных. Load вызывается на каждую
// операцию, поэтому смена токена видна следующему вызову.
type SessionStore interface {
	Save(ctx context.Context, sess domain.Session) (string, error)
	Load(ctx context.Context, sessionID string) (domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

type memorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{sessions: make(map[string]domain.Session)}
}

func (s *memorySessionStore) Save(ctx context.Context, sess domain.Session) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	return id, nil
}

func (s *memorySessionStore) Load(ctx context.Context, sessionID string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, apperrors.ErrSessionNotFound
	}
	return sess, nil
}

func (s *memorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// fileSessionStore - одна текущая сессия терминального клиента в <dir>/session.json
type fileSessionStore struct {
	dir string
}

func NewFileSessionStore(dir string) SessionStore {
	return &fileSessionStore{dir: dir}
}

func (s *fileSessionStore) Save(ctx context.Context, sess domain.Session) (string, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create session dir: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, sessionFileName), data, 0600); err != nil {
		return "", fmt.Errorf("failed to write session: %w", err)
	}
	return currentSessionID, nil
}

func (s *fileSessionStore) Load(ctx context.Context, sessionID string) (domain.Session, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, sessionFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Session{}, apperrors.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("failed to read session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return sess, nil
}

func (s *fileSessionStore) Delete(ctx context.Context, sessionID string) error {
	err := os.Remove(filepath.Join(s.dir, sessionFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// redisSessionStore - сессии шлюза, общие для всех его инстансов
type redisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
	log logger.Logger
}

func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration, log logger.Logger) SessionStore {
	return &redisSessionStore{rdb: rdb, ttl: ttl, log: log}
}

func (s *redisSessionStore) key(sessionID string) string {
	return fmt.Sprintf(SessionKeyPrefix, sessionID)
}

func (s *redisSessionStore) Save(ctx context.Context, sess domain.Session) (string, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	id := uuid.NewString()
	if err := s.rdb.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		s.log.Error("Failed to save session to Redis", "error", err)
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return id, nil
}

func (s *redisSessionStore) Load(ctx context.Context, sessionID string) (domain.Session, error) {
	data, err := s.rdb.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Session{}, apperrors.ErrSessionNotFound
		}
		s.log.Error("Failed to load session from Redis", "error", err)
		return domain.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return sess, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, s.key(sessionID)).Err(); err != nil {
		s.log.Error("Failed to delete session from Redis", "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
