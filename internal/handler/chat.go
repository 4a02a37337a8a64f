package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"kos_chat/internal/middleware"
	"kos_chat/internal/service"
	"kos_chat/pkg/logger"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	messages, err := h.chatService.History(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.chatService.Post(c.Request.Context(), sess, c.Param("id"), req.Content); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusAccepted)
}

type EditMessageRequest struct {
	NewContent string `json:"newContent" binding:"required"`
}

func (h *ChatHandler) EditMessage(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.chatService.EditMessage(c.Request.Context(), sess, c.Param("messageId"), req.NewContent); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	if err := h.chatService.DeleteMessage(c.Request.Context(), sess, c.Param("messageId")); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
