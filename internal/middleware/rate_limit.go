package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"kos_chat/internal/config"
	"kos_chat/internal/domain"
	"kos_chat/internal/metrics"
	"kos_chat/internal/service"
	"kos_chat/pkg/logger"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	cfg              config.RateLimitConfig
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, cfg config.RateLimitConfig, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		cfg:              cfg,
		log:              log,
	}
}

// Limit считает запросы пользователя сессии, без сессии - IP клиента
func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.cfg.Requests <= 0 {
			c.Next()
			return
		}

		key := domain.RateLimitKey(domain.RateLimitScopeIP, c.ClientIP())
		if sess, ok := GetSession(c); ok && sess.UserID != "" {
			key = domain.RateLimitKey(domain.RateLimitScopeUser, sess.UserID)
		}

		allowed, remaining, err := m.rateLimitService.Allow(c.Request.Context(), key, m.cfg.Requests, m.cfg.Window)
		if err != nil {
			m.log.Error("Rate limit check failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(m.cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			metrics.RateLimitedTotal.Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
