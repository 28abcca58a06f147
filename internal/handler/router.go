package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/academy-bot/internal/config"
	"github.com/yourusername/academy-bot/internal/middleware"
)

// NewRouter собирает служебный HTTP API: проверку живости и публичный лидерборд
func NewRouter(cfg config.HTTPConfig, leaderboard *LeaderboardHandler, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	if err := router.SetTrustedProxies(nil); err != nil {
		leaderboard.log.Warn("[HTTP] Не удалось сбросить доверенные прокси", "error", err)
	}

	if len(cfg.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.AllowOrigins,
			AllowMethods:  []string{"GET", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length", "X-RateLimit-Remaining"},
			MaxAge:        12 * time.Hour,
		}))
	}

	router.GET("/healthz", leaderboard.Health)

	api := router.Group("/api")
	api.Use(limiter.Limit(middleware.DefaultAPIRateLimitConfig()))
	{
		api.GET("/leaderboard", leaderboard.GetLeaderboard)
	}
	return router
}
