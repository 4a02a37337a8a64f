package service

import (
	"context"
	"time"

	"kos_chat/internal/repository"
	"kos_chat/pkg/logger"
)

type RateLimitService interface {
	// Allow учитывает запрос subject и сообщает, укладывается ли он в лимит,
	// и сколько запросов осталось в текущем окне
	Allow(ctx context.Context, subject string, limit int, window time.Duration) (bool, int, error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, subject string, limit int, window time.Duration) (bool, int, error) {
	count, err := s.rateLimitRepo.Increment(ctx, subject, window)
	if err != nil {
		return false, 0, err
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return int(count) <= limit, remaining, nil
}
