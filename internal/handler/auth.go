package handler

import (
	"net/http"
	"strings"

	"kos_chat/internal/domain"
	"kos_chat/internal/middleware"
	"kos_chat/internal/repository"
	"kos_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthHandler хранит учетные данные, выданные бэкендом при логине, под id сессии шлюза.
// Логин и регистрация остаются на стороне бэкенда.
type AuthHandler struct {
	store repository.SessionStore
	log   logger.Logger
}

func NewAuthHandler(store repository.SessionStore, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		store: store,
		log:   log,
	}
}

type CreateSessionRequest struct {
	Token  string `json:"token" binding:"required"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Email  string `json:"email"`
}

// CreateSession сохраняет сессию; пустые userId, role и email берутся из claims токена
func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid session request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	sess := repository.SessionFromToken(strings.TrimSpace(req.Token))
	if req.UserID != "" {
		sess.UserID = req.UserID
	}
	if req.Role != "" {
		sess.Role = domain.ParseRole(req.Role)
	}
	if req.Email != "" {
		sess.Email = req.Email
	}

	if err := repository.CheckSession(sess); err != nil {
		h.log.Warn("Rejected session", "error", err)
		middleware.Unauthorized(c, err)
		return
	}

	sessionID, err := h.store.Save(c.Request.Context(), sess)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.log.Info("Session created", "user_id", sess.UserID, "role", sess.Role)
	c.JSON(http.StatusCreated, gin.H{
		"sessionId": sessionID,
		"userId":    sess.UserID,
		"role":      sess.Role,
	})
}

func (h *AuthHandler) DeleteSession(c *gin.Context) {
	sessionID := c.GetString(middleware.SessionIDKey)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id required"})
		return
	}

	if err := h.store.Delete(c.Request.Context(), sessionID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
