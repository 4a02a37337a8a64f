package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"kos_chat/internal/domain"
	"kos_chat/internal/middleware"
	"kos_chat/internal/service"
	"kos_chat/pkg/logger"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	log                 logger.Logger
}

func NewNotificationHandler(notificationService service.NotificationService, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		log:                 log,
	}
}

// List принимает ?filter=all|read|unread
func (h *NotificationHandler) List(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	filter := domain.ParseNotificationFilter(c.Query("filter"))

	notifications, err := h.notificationService.List(c.Request.Context(), sess, filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) Get(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	notification, err := h.notificationService.Get(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, notification)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	if err := h.notificationService.MarkRead(c.Request.Context(), sess, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
