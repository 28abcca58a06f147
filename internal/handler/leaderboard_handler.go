package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/academy-bot/internal/handler/helper"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
	"github.com/yourusername/academy-bot/internal/service"
)

// LeaderboardProvider отдаёт страницы лидерборда (реализуется RatingService)
type LeaderboardProvider interface {
	Leaderboard(ctx context.Context, page, pageSize int) (*service.LeaderboardPage, error)
}

// LeaderboardHandler обрабатывает запросы к публичному лидерборду
type LeaderboardHandler struct {
	rating LeaderboardProvider
	log    *logger.Logger
}

// NewLeaderboardHandler создает новый обработчик лидерборда
func NewLeaderboardHandler(rating LeaderboardProvider, log *logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		rating: rating,
		log:    log,
	}
}

// GetLeaderboard обрабатывает запрос на получение лидерборда
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if err != nil || pageSize < 1 {
		pageSize = 10
	} else if pageSize > 100 {
		pageSize = 100
	}

	leaderboard, err := h.rating.Leaderboard(c.Request.Context(), page, pageSize)
	if err != nil {
		h.log.Error("[LeaderboardHandler] Ошибка получения лидерборда", "page", page, "page_size", pageSize, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error getting leaderboard"})
		return
	}

	c.JSON(http.StatusOK, helper.ConvertLeaderboard(leaderboard))
}

// Health отвечает на проверку живости процесса
func (h *LeaderboardHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
