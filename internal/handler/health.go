package handler

import (
	"context"
	"net/http"
	"time"

	"kos_chat/internal/config"

	"github.com/gin-gonic/gin"
)

// HealthCheck проверяет одну зависимость шлюза
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	cfg    *config.Config
	checks map[string]HealthCheck
}

func NewHealthHandler(cfg *config.Config, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		cfg:    cfg,
		checks: checks,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":       state,
		"service":      "kos-chat-gateway",
		"dependencies": deps,
	})
}

// ServerInfo сообщает клиенту, куда ходит шлюз
func (h *HealthHandler) ServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"api_base":     "/api/v1",
		"ws_base":      "/ws",
		"backend_url":  h.cfg.Backend.URL,
		"realtime_url": h.cfg.Realtime.URL,
		"transport":    h.cfg.Realtime.Transport,
		"environment":  h.cfg.Environment,
	})
}
