package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/academy-bot/internal/domain/repository"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests — максимальное количество запросов за Window
	MaxRequests int
	// Window — временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix — префикс для ключей счётчиков
	KeyPrefix string
}

// DefaultAPIRateLimitConfig возвращает лимит по умолчанию для публичного API
func DefaultAPIRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 60,
		Window:      time.Minute,
		KeyPrefix:   "rl:api",
	}
}

// RateLimiter ограничивает частоту запросов по IP.
// Счётчики хранятся в кеше: в Redis или в памяти процесса, если Redis не настроен.
type RateLimiter struct {
	counters repository.CacheRepository
	log      *logger.Logger
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(counters repository.CacheRepository, log *logger.Logger) *RateLimiter {
	return &RateLimiter{counters: counters, log: log}
}

// Limit возвращает Gin middleware с заданной конфигурацией.
// Ключ формируется из IP + маршрута.
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		path := c.FullPath() // шаблон маршрута Gin, например "/api/leaderboard"
		if path == "" {
			path = c.Request.URL.Path
		}
		key := fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, clientIP, path)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := rl.counters.IncrementWindow(ctx, key, cfg.Window)
		if err != nil {
			// При ошибке хранилища пропускаем запрос (fail-open)
			rl.log.Warn("[RateLimiter] Ошибка счётчика, запрос пропущен", "key", key, "error", err)
			c.Next()
			return
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		retryAfter := int(cfg.Window.Seconds())

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > cfg.MaxRequests {
			rl.log.Info("[RateLimiter] Превышен лимит запросов",
				"ip", clientIP, "path", path, "count", count, "limit", cfg.MaxRequests)

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"error_type":  "rate_limited",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
