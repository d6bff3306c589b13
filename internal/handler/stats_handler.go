package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
	"github.com/yourusername/testcenter-api/internal/service"
)

// StatsHandler обрабатывает запросы статистики прохождений
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler создает новый обработчик статистики
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// MyStats возвращает статистику текущего пользователя. Попутно
// вычищаются его попытки за пределами окна статистики.
func (h *StatsHandler) MyStats(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	if deleted, err := h.statsService.PurgeUserAttempts(userID); err != nil {
		log.Printf("[StatsHandler] Ошибка очистки попыток user=%d: %v", userID, err)
	} else if deleted > 0 {
		log.Printf("[StatsHandler] Удалено устаревших попыток user=%d: %d", userID, deleted)
	}

	stats, err := h.statsService.GetUserStats(userID, userID)
	if err != nil {
		h.handleStatsError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// UserStats возвращает статистику другого пользователя, если он
// входит в зону видимости запрашивающего
func (h *StatsHandler) UserStats(c *gin.Context) {
	requesterID := c.MustGet("user_id").(uint)
	targetID := c.MustGet("target_user_id").(uint)

	stats, err := h.statsService.GetUserStats(requesterID, targetID)
	if err != nil {
		h.handleStatsError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) handleStatsError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in StatsHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
