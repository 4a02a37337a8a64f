package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"kos_chat/internal/domain"
	"kos_chat/internal/repository"
	apperrors "kos_chat/pkg/errors"
	"kos_chat/pkg/logger"
)

const (
	SessionKey   = "session"
	SessionIDKey = "session_id"

	HeaderSessionID = "X-Session-ID"
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	QuerySessionID  = "sid"

	loginRedirect = "/login"
)

// AuthMiddleware находит учетные данные запроса и кладет domain.Session в контекст
type AuthMiddleware struct {
	store repository.SessionStore
	log   logger.Logger
}

func NewAuthMiddleware(store repository.SessionStore, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		store: store,
		log:   log,
	}
}

// RequireSession ищет сессию в X-Session-ID, в ?sid= (браузер не умеет ставить
// заголовки на WebSocket) или в Authorization: Bearer с X-User-ID/X-User-Role.
// Без учетных данных отвечает 401 с redirect на логин.
func (m *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, sessionID, err := m.resolve(c)
		if err == nil {
			err = repository.CheckSession(sess)
		}
		if err != nil {
			if !errors.Is(err, apperrors.ErrSessionNotFound) && !errors.Is(err, apperrors.ErrUnauthorized) && !errors.Is(err, apperrors.ErrTokenExpired) {
				m.log.Error("Failed to resolve session", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				c.Abort()
				return
			}
			m.log.Debug("Request without valid session", "path", c.FullPath(), "reason", err.Error())
			Unauthorized(c, err)
			return
		}

		c.Set(SessionKey, sess)
		if sessionID != "" {
			c.Set(SessionIDKey, sessionID)
		}
		c.Next()
	}
}

func (m *AuthMiddleware) resolve(c *gin.Context) (domain.Session, string, error) {
	sessionID := c.GetHeader(HeaderSessionID)
	if sessionID == "" {
		sessionID = c.Query(QuerySessionID)
	}
	if sessionID != "" {
		sess, err := m.store.Load(c.Request.Context(), sessionID)
		return sess, sessionID, err
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return domain.Session{}, "", apperrors.ErrUnauthorized
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return domain.Session{}, "", apperrors.ErrUnauthorized
	}

	sess := repository.SessionFromToken(parts[1])
	if userID := c.GetHeader(HeaderUserID); userID != "" {
		sess.UserID = userID
	}
	if role := c.GetHeader(HeaderUserRole); role != "" {
		sess.Role = domain.ParseRole(role)
	}
	return sess, "", nil
}

// Unauthorized прерывает запрос и отправляет клиента на логин
func Unauthorized(c *gin.Context, err error) {
	msg := "Authentication required"
	if errors.Is(err, apperrors.ErrTokenExpired) {
		msg = "Session expired"
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": msg, "redirect": loginRedirect})
	c.Abort()
}

// GetSession достает сессию, положенную RequireSession
func GetSession(c *gin.Context) (domain.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return domain.Session{}, false
	}
	sess, ok := v.(domain.Session)
	return sess, ok
}
