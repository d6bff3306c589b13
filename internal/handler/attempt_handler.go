package handler

import (
	"errors"
	"log"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/testcenter-api/internal/domain/repository"
	"github.com/yourusername/testcenter-api/internal/handler/dto"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
	"github.com/yourusername/testcenter-api/internal/service"
)

// AttemptHandler обрабатывает запросы прохождения тестов
type AttemptHandler struct {
	attemptService *service.AttemptService
	statsService   *service.StatsService
}

// NewAttemptHandler создает новый обработчик попыток
func NewAttemptHandler(attemptService *service.AttemptService, statsService *service.StatsService) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		statsService:   statsService,
	}
}

// StartNormalRequest представляет запрос на обычное прохождение
type StartNormalRequest struct {
	TestID        uint `json:"test_id" binding:"required"`
	StartQuestion *int `json:"start_question" binding:"omitempty,min=1"`
	EndQuestion   *int `json:"end_question" binding:"omitempty,min=1"`
}

// StartExpressRequest представляет запрос на экспресс-тест
type StartExpressRequest struct {
	TestID        uint `json:"test_id" binding:"required"`
	QuestionCount int  `json:"question_count" binding:"required,min=1"`
}

// AnswerRequest представляет ответ на текущий вопрос
type AnswerRequest struct {
	QuestionID uint  `json:"question_id" binding:"required"`
	Selected   []int `json:"selected" binding:"required"`
}

// StartNormal начинает обычное прохождение, опционально по диапазону номеров
func (h *AttemptHandler) StartNormal(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req StartNormalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attempt, err := h.attemptService.StartNormal(userID, req.TestID, req.StartQuestion, req.EndQuestion)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// StartExpress начинает экспресс-тест со случайной выборкой вопросов
func (h *AttemptHandler) StartExpress(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req StartExpressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attempt, err := h.attemptService.StartExpress(userID, req.TestID, req.QuestionCount)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// GetState возвращает текущее положение в попытке. Для зачётов с
// истекшим временем попытка принудительно завершается здесь же.
func (h *AttemptHandler) GetState(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	attemptID := c.Param("attempt_id")

	state, err := h.attemptService.GetState(attemptID, userID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	resp := dto.AttemptStateDTO{
		AttemptID:      state.Attempt.AttemptID,
		AttemptType:    state.Attempt.AttemptType,
		Completed:      state.Attempt.Completed,
		TimeExpired:    state.TimeExpired,
		QuestionIndex:  state.QuestionIndex,
		TotalQuestions: state.TotalQuestions,
		RemainingSec:   state.RemainingSec,
		Question:       dto.NewQuestionViewDTO(state.CurrentQuestion),
		Score:          state.Attempt.Score,
	}
	c.JSON(http.StatusOK, resp)
}

// Answer записывает ответ на текущий вопрос. Если лимит времени зачёта
// истёк, попытка завершается, а клиент получает 200 с time_expired.
func (h *AttemptHandler) Answer(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	attemptID := c.Param("attempt_id")

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.attemptService.Answer(attemptID, userID, req.QuestionID, req.Selected)
	if err != nil {
		if errors.Is(err, apperrors.ErrTimeExpired) && result != nil {
			h.statsService.InvalidateUser(userID)
			c.JSON(http.StatusOK, dto.AnswerResultDTO{
				TimeExpired: true,
				Completed:   true,
				Score:       result.Attempt.Score,
			})
			return
		}
		h.handleAttemptError(c, err)
		return
	}

	if result.Completed {
		h.statsService.InvalidateUser(userID)
	}

	c.JSON(http.StatusOK, dto.AnswerResultDTO{
		IsCorrect:      result.IsCorrect,
		CorrectAnswers: result.CorrectAnswers,
		NextQuestionID: result.NextQuestionID,
		Completed:      result.Completed,
		Score:          result.Attempt.Score,
	})
}

// Reset сбрасывает прогресс попытки для прохождения заново.
// Попытки зачётов сбрасывать нельзя.
func (h *AttemptHandler) Reset(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	attemptID := c.Param("attempt_id")

	attempt, err := h.attemptService.Reset(attemptID, userID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// List возвращает попытки текущего пользователя с фильтрами по типу
// и завершённости
func (h *AttemptHandler) List(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	filters := repository.AttemptFilters{
		AttemptType: c.Query("type"),
	}
	if completedStr := c.Query("completed"); completedStr != "" {
		completed := completedStr == "true"
		filters.Completed = &completed
	}

	attempts, err := h.attemptService.ListUserAttempts(userID, filters)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts, "count": len(attempts)})
}

// Results возвращает итог завершённой попытки с разбором по вопросам
func (h *AttemptHandler) Results(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	attemptID := c.Param("attempt_id")

	attempt, questions, err := h.attemptService.GetResults(attemptID, userID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	resp := dto.AttemptResultDTO{
		AttemptID:           attempt.AttemptID,
		AttemptType:         attempt.AttemptType,
		Score:               attempt.Score,
		CorrectAnswersCount: attempt.CorrectAnswersCount,
		TotalQuestionsCount: attempt.TotalQuestionsCount,
		CompletedAt:         attempt.CompletedAt,
	}

	for i := range questions {
		q := questions[i]
		selected, answered := attempt.Answers.Get(q.ID)
		if !answered {
			selected = []int{}
		}
		row := dto.ResultQuestionDTO{
			ID:                q.ID,
			QuestionNumber:    q.QuestionNumber,
			QuestionText:      q.QuestionText,
			Options:           dto.NewQuestionViewDTO(&q).Options,
			SelectedAnswers:   selected,
			IsCorrect:         answered && q.IsCorrectSelection(selected),
			DocumentReference: q.DocumentReference,
		}
		for num := range q.CorrectSet() {
			row.CorrectAnswers = append(row.CorrectAnswers, num)
		}
		sort.Ints(row.CorrectAnswers)
		resp.Questions = append(resp.Questions, row)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AttemptHandler) handleAttemptError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in AttemptHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
