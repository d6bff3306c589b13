package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/testcenter-api/internal/handler/helper"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
	"github.com/yourusername/testcenter-api/internal/service"
)

// maxImportFileSize ограничивает размер загружаемого XLSX (10 МБ)
const maxImportFileSize = 10 << 20

// TestHandler обрабатывает запросы управления тестами и банками вопросов
type TestHandler struct {
	testService *service.TestService
}

// NewTestHandler создает новый обработчик тестов
func NewTestHandler(testService *service.TestService) *TestHandler {
	return &TestHandler{testService: testService}
}

// TestRequest представляет запрос на создание или обновление теста
type TestRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	Description string `json:"description" binding:"max=2000"`
}

// List возвращает все тесты со счётчиками вопросов
func (h *TestHandler) List(c *gin.Context) {
	tests, err := h.testService.ListTests()
	if err != nil {
		h.handleTestError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tests": tests, "count": len(tests)})
}

// Get возвращает тест с вопросами
func (h *TestHandler) Get(c *gin.Context) {
	testID := c.MustGet("test_id").(uint)

	test, err := h.testService.GetTestWithQuestions(testID)
	if err != nil {
		h.handleTestError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

// Create создает новый тест
func (h *TestHandler) Create(c *gin.Context) {
	var req TestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	test, err := h.testService.CreateTest(service.CreateTestInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	log.Printf("[TestHandler] Тест ID=%d (%s) создан", test.ID, test.Name)
	c.JSON(http.StatusCreated, test)
}

// Update обновляет имя и описание теста
func (h *TestHandler) Update(c *gin.Context) {
	testID := c.MustGet("test_id").(uint)

	var req TestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	test, err := h.testService.UpdateTest(testID, service.CreateTestInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.handleTestError(c, err)
		return
	}
	c.JSON(http.StatusOK, test)
}

// Delete удаляет тест вместе с банком вопросов
func (h *TestHandler) Delete(c *gin.Context) {
	testID := c.MustGet("test_id").(uint)

	if err := h.testService.DeleteTest(testID); err != nil {
		h.handleTestError(c, err)
		return
	}

	log.Printf("[TestHandler] Тест ID=%d удалён", testID)
	c.JSON(http.StatusOK, gin.H{"message": "Test deleted"})
}

// ImportQuestions принимает XLSX-файл и полностью заменяет банк
// вопросов теста. Поле формы — "file".
func (h *TestHandler) ImportQuestions(c *gin.Context) {
	testID := c.MustGet("test_id").(uint)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required (multipart field 'file')"})
		return
	}
	if fileHeader.Size > maxImportFileSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File is too large"})
		return
	}
	if ext := strings.ToLower(filepath.Ext(fileHeader.Filename)); ext != ".xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only .xlsx files are supported"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("[TestHandler] Не удалось открыть загруженный файл: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer file.Close()

	result, err := h.testService.ImportQuestions(testID, file)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	log.Printf("[TestHandler] Импорт в тест ID=%d: загружено %d вопросов, пропущено строк: %d",
		testID, result.Imported, len(result.Skipped))
	c.JSON(http.StatusOK, result)
}

// ExportQuestions выгружает банк вопросов в читаемом виде: строка с
// номером и текстом вопроса, под ней варианты ответов, пустая строка
// между вопросами. Правильные ответы не раскрываются.
func (h *TestHandler) ExportQuestions(c *gin.Context) {
	testID := c.MustGet("test_id").(uint)

	test, err := h.testService.GetTestWithQuestions(testID)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"test_%d_questions.xlsx\"", testID))

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetNameFor(test.Name))

	sw, err := f.NewStreamWriter(sheetNameFor(test.Name))
	if err != nil {
		log.Printf("[TestHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	rowNum := 1
	for i := range test.Questions {
		q := test.Questions[i]
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), []interface{}{q.QuestionNumber, sanitizeForExcel(q.QuestionText)}); err != nil {
			log.Printf("[TestHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
		rowNum++

		for _, opt := range helper.ConvertOptionsToObjects(q.AnswerOptions) {
			line := fmt.Sprintf("%d. %s", opt.ID, opt.Text)
			if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), []interface{}{"", sanitizeForExcel(line)}); err != nil {
				log.Printf("[TestHandler] Ошибка записи строки %d: %v", rowNum, err)
			}
			rowNum++
		}
		// Пустая строка между вопросами
		rowNum++
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[TestHandler] Ошибка при Flush: %v", err)
	}
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[TestHandler] Ошибка записи Excel в response: %v", err)
	}
}

// ExportAnswerKey выгружает плоскую таблицу ответов: номер, текст,
// правильные варианты в каноническом виде "1,3".
func (h *TestHandler) ExportAnswerKey(c *gin.Context) {
	testID := c.MustGet("test_id").(uint)

	test, err := h.testService.GetTestWithQuestions(testID)
	if err != nil {
		h.handleTestError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"test_%d_answers.xlsx\"", testID))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Ответы"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[TestHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	if err := sw.SetRow("A1", []interface{}{"Номер вопроса", "Текст вопроса", "Правильные ответы"}); err != nil {
		log.Printf("[TestHandler] Ошибка записи заголовков: %v", err)
	}

	for i := range test.Questions {
		q := test.Questions[i]
		row := []interface{}{q.QuestionNumber, sanitizeForExcel(q.QuestionText), q.CorrectAnswer}
		if err := sw.SetRow(fmt.Sprintf("A%d", i+2), row); err != nil {
			log.Printf("[TestHandler] Ошибка записи строки %d: %v", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[TestHandler] Ошибка при Flush: %v", err)
	}
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[TestHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sheetNameFor усекает название теста до лимита Excel на имя листа
func sheetNameFor(testName string) string {
	runes := []rune(testName)
	if len(runes) > 31 {
		runes = runes[:31]
	}
	name := strings.TrimSpace(string(runes))
	if name == "" {
		return "Вопросы"
	}
	return name
}

func (h *TestHandler) handleTestError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in TestHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
