package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/testcenter-api/internal/handler/dto"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
	"github.com/yourusername/testcenter-api/internal/service"
)

// QuizHandler обрабатывает запросы сессий зачётов
type QuizHandler struct {
	quizService *service.QuizSessionService
}

// NewQuizHandler создает новый обработчик зачётов
func NewQuizHandler(quizService *service.QuizSessionService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// CreateSessionRequest представляет запрос на создание зачёта
type CreateSessionRequest struct {
	TestID           uint      `json:"test_id" binding:"required"`
	QuestionCount    int       `json:"question_count" binding:"required,min=1"`
	TimeLimitMinutes int       `json:"time_limit_minutes" binding:"required,min=1,max=480"`
	StartsAt         time.Time `json:"starts_at" binding:"required"`
	EndsAt           time.Time `json:"ends_at" binding:"required"`
}

// Create создает зачёт и зачисляет зону видимости создателя
func (h *QuizHandler) Create(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.quizService.CreateSession(userID, service.CreateSessionInput{
		TestID:           req.TestID,
		QuestionCount:    req.QuestionCount,
		TimeLimitMinutes: req.TimeLimitMinutes,
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
	})
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuizSessionDTO(session, time.Now()))
}

// Get возвращает карточку зачёта
func (h *QuizHandler) Get(c *gin.Context) {
	sessionID := c.MustGet("session_id").(uint)

	session, err := h.quizService.GetSession(sessionID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizSessionDTO(session, time.Now()))
}

// ListMine возвращает зачёты, в которых текущий пользователь участвует
func (h *QuizHandler) ListMine(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	sessions, err := h.quizService.ListForUser(userID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	now := time.Now()
	out := make([]dto.QuizSessionDTO, 0, len(sessions))
	for i := range sessions {
		out = append(out, dto.NewQuizSessionDTO(&sessions[i], now))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out, "count": len(out)})
}

// ListCreated возвращает зачёты, созданные текущим пользователем
func (h *QuizHandler) ListCreated(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	sessions, err := h.quizService.ListByCreator(userID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	now := time.Now()
	out := make([]dto.QuizSessionDTO, 0, len(sessions))
	for i := range sessions {
		out = append(out, dto.NewQuizSessionDTO(&sessions[i], now))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out, "count": len(out)})
}

// Activate принудительно активирует зачёт до времени начала
func (h *QuizHandler) Activate(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	sessionID := c.MustGet("session_id").(uint)

	session, err := h.quizService.ActivateManually(sessionID, userID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	log.Printf("[QuizHandler] Зачёт #%d активирован вручную пользователем ID=%d", sessionID, userID)
	c.JSON(http.StatusOK, dto.NewQuizSessionDTO(session, time.Now()))
}

// Start начинает личную попытку участника
func (h *QuizHandler) Start(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	sessionID := c.MustGet("session_id").(uint)

	attempt, err := h.quizService.StartAttempt(sessionID, userID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// Sync дозачисляет пользователей из зоны видимости создателя
func (h *QuizHandler) Sync(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	sessionID := c.MustGet("session_id").(uint)

	result, err := h.quizService.SyncParticipants(sessionID, userID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Results возвращает отранжированную итоговую таблицу зачёта
func (h *QuizHandler) Results(c *gin.Context) {
	sessionID := c.MustGet("session_id").(uint)

	results, err := h.quizService.Results(sessionID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// Delete удаляет зачёт, сохраняя историю попыток участников
func (h *QuizHandler) Delete(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	sessionID := c.MustGet("session_id").(uint)

	if err := h.quizService.DeleteSession(sessionID, userID); err != nil {
		h.handleQuizError(c, err)
		return
	}

	log.Printf("[QuizHandler] Зачёт #%d удалён пользователем ID=%d", sessionID, userID)
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
}

// ExportResults выгружает итоговую таблицу в файл.
// Формат задаётся query-параметром format: xlsx или csv (по умолчанию csv).
func (h *QuizHandler) ExportResults(c *gin.Context) {
	sessionID := c.MustGet("session_id").(uint)

	results, err := h.quizService.Results(sessionID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	filename := fmt.Sprintf("quiz_%d_results_%s", sessionID, time.Now().Format("2006-01-02"))
	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		h.exportXLSX(c, results, filename)
	default:
		h.exportCSV(c, results, filename)
	}
}

// exportCSV выгружает результаты в CSV с правильным экранированием спецсимволов
func (h *QuizHandler) exportCSV(c *gin.Context, results []service.ParticipantResult, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"Место", "Пользователь", "ФИО", "Завершил", "Результат", "Время завершения"})

	for i, r := range results {
		completed := "Нет"
		if r.Completed {
			completed = "Да"
		}
		score := ""
		if r.Score != nil {
			score = strconv.FormatFloat(*r.Score, 'f', 1, 64)
		}
		completedAt := ""
		if r.CompletedAt != nil {
			completedAt = r.CompletedAt.Format("02.01.2006 15:04:05")
		}

		writer.Write([]string{
			strconv.Itoa(i + 1),
			sanitizeForExcel(r.Username),
			sanitizeForExcel(r.FullName),
			completed,
			score,
			completedAt,
		})
	}
}

// exportXLSX выгружает результаты в Excel с использованием StreamWriter
func (h *QuizHandler) exportXLSX(c *gin.Context, results []service.ParticipantResult, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Результаты"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[QuizHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := []interface{}{"Место", "Пользователь", "ФИО", "Завершил", "Результат", "Время завершения"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[QuizHandler] Ошибка записи заголовков: %v", err)
	}

	for i, r := range results {
		cell := fmt.Sprintf("A%d", i+2)

		completed := "Нет"
		if r.Completed {
			completed = "Да"
		}
		var score interface{}
		if r.Score != nil {
			score = *r.Score
		} else {
			score = ""
		}
		completedAt := ""
		if r.CompletedAt != nil {
			completedAt = r.CompletedAt.Format("02.01.2006 15:04:05")
		}

		row := []interface{}{i + 1, sanitizeForExcel(r.Username), sanitizeForExcel(r.FullName), completed, score, completedAt}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[QuizHandler] Ошибка записи строки %d: %v", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[QuizHandler] Ошибка при Flush: %v", err)
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[QuizHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

func (h *QuizHandler) handleQuizError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in QuizHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
