package handler

import (
	"net/http"

	"kos_chat/internal/middleware"
	"kos_chat/internal/service"
	"kos_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	roomService service.RoomService
	log         logger.Logger
}

func NewRoomHandler(roomService service.RoomService, log logger.Logger) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		log:         log,
	}
}

type CreateRoomRequest struct {
	TenantID string `json:"penyewaId" binding:"required"`
	OwnerID  string `json:"pemilikKosId" binding:"required"`
}

type BroadcastRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *RoomHandler) List(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	rooms, err := h.roomService.ListForUser(c.Request.Context(), sess)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, rooms)
}

func (h *RoomHandler) Create(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	roomID, err := h.roomService.Create(c.Request.Context(), sess, req.TenantID, req.OwnerID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"roomChatId": roomID})
}

func (h *RoomHandler) Broadcast(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.roomService.Broadcast(c.Request.Context(), sess, req.Content); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusAccepted)
}
