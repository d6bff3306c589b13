package service

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	"github.com/yourusername/testcenter-api/internal/domain/repository"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
)

// TestService управляет тестами и их банками вопросов
type TestService struct {
	testRepo     repository.TestRepository
	questionRepo repository.QuestionRepository
}

// NewTestService создает новый сервис тестов
func NewTestService(testRepo repository.TestRepository, questionRepo repository.QuestionRepository) *TestService {
	return &TestService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
	}
}

// CreateTestInput содержит параметры создания теста
type CreateTestInput struct {
	Name        string
	Description string
}

// CreateTest создает тест с уникальным именем
func (s *TestService) CreateTest(input CreateTestInput) (*entity.Test, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: test name is required", apperrors.ErrValidation)
	}

	_, err := s.testRepo.GetByName(name)
	if err == nil {
		return nil, fmt.Errorf("%w: test with this name already exists", apperrors.ErrConflict)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	test := &entity.Test{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.testRepo.Create(test); err != nil {
		return nil, fmt.Errorf("failed to create test: %w", err)
	}
	return test, nil
}

// GetTest возвращает тест по ID
func (s *TestService) GetTest(id uint) (*entity.Test, error) {
	return s.testRepo.GetByID(id)
}

// GetTestWithQuestions возвращает тест вместе с вопросами
func (s *TestService) GetTestWithQuestions(id uint) (*entity.Test, error) {
	return s.testRepo.GetWithQuestions(id)
}

// TestInfo — тест со счётчиком вопросов для списков
type TestInfo struct {
	Test          entity.Test `json:"test"`
	QuestionCount int64       `json:"question_count"`
}

// ListTests возвращает все тесты со счётчиками вопросов
func (s *TestService) ListTests() ([]TestInfo, error) {
	tests, counts, err := s.testRepo.List()
	if err != nil {
		return nil, err
	}

	infos := make([]TestInfo, 0, len(tests))
	for i := range tests {
		infos = append(infos, TestInfo{
			Test:          tests[i],
			QuestionCount: counts[tests[i].ID],
		})
	}
	return infos, nil
}

// UpdateTest обновляет имя и описание теста
func (s *TestService) UpdateTest(id uint, input CreateTestInput) (*entity.Test, error) {
	test, err := s.testRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: test name is required", apperrors.ErrValidation)
	}
	if name != test.Name {
		if _, err := s.testRepo.GetByName(name); err == nil {
			return nil, fmt.Errorf("%w: test with this name already exists", apperrors.ErrConflict)
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	test.Name = name
	test.Description = strings.TrimSpace(input.Description)
	if err := s.testRepo.Update(test); err != nil {
		return nil, err
	}
	return test, nil
}

// DeleteTest удаляет тест вместе с вопросами
func (s *TestService) DeleteTest(id uint) error {
	if _, err := s.testRepo.GetByID(id); err != nil {
		return err
	}
	if err := s.questionRepo.DeleteByTestID(id); err != nil {
		return fmt.Errorf("failed to delete questions: %w", err)
	}
	return s.testRepo.Delete(id)
}

// ImportResult описывает исход импорта банка вопросов
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
}

// ImportQuestions загружает банк вопросов из XLSX-файла, полностью
// заменяя существующие вопросы теста. Формат листа: колонка A — номер
// вопроса, B — текст, C — правильные ответы через запятую, D — ссылка
// на документ, E и далее — варианты ответов. Строка заголовка
// пропускается. Пустой файл — ошибка, старый банк при этом не трогаем.
func (s *TestService) ImportQuestions(testID uint, r io.Reader) (*ImportResult, error) {
	if _, err := s.testRepo.GetByID(testID); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read xlsx file: %v", apperrors.ErrValidation, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", apperrors.ErrValidation)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read sheet rows: %v", apperrors.ErrValidation, err)
	}

	result := &ImportResult{}
	var questions []entity.Question
	for i, row := range rows {
		question, skip, reason := parseQuestionRow(testID, row)
		if skip {
			// Заголовок распознаём по нечисловому первому столбцу
			if i == 0 && reason == reasonBadNumber {
				continue
			}
			if reason != "" {
				result.Skipped = append(result.Skipped, fmt.Sprintf("строка %d: %s", i+1, reason))
			}
			continue
		}
		questions = append(questions, *question)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: file contains no valid questions", apperrors.ErrValidation)
	}

	if err := s.questionRepo.DeleteByTestID(testID); err != nil {
		return nil, fmt.Errorf("failed to replace question bank: %w", err)
	}
	if err := s.questionRepo.CreateBatch(questions); err != nil {
		return nil, fmt.Errorf("failed to import questions: %w", err)
	}

	result.Imported = len(questions)
	return result, nil
}

const reasonBadNumber = "первый столбец не является номером вопроса"

// parseQuestionRow разбирает одну строку листа. Возвращает skip=true
// с причиной для строк, которые нельзя превратить в вопрос.
func parseQuestionRow(testID uint, row []string) (*entity.Question, bool, string) {
	if len(row) == 0 || strings.TrimSpace(strings.Join(row, "")) == "" {
		return nil, true, ""
	}
	if len(row) < 2 {
		return nil, true, "недостаточно столбцов"
	}

	number, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil || number < 1 {
		return nil, true, reasonBadNumber
	}

	text := strings.TrimSpace(row[1])
	if text == "" {
		return nil, true, "пустой текст вопроса"
	}

	correct := ""
	if len(row) > 2 {
		correct = normalizeAnswerList(row[2])
	}
	if correct == "" {
		return nil, true, "не указан правильный ответ"
	}

	reference := ""
	if len(row) > 3 {
		reference = strings.TrimSpace(row[3])
	}

	options := entity.OptionMap{}
	for i := 4; i < len(row); i++ {
		option := strings.TrimSpace(row[i])
		if option == "" {
			continue
		}
		options[strconv.Itoa(i-3)] = option
	}
	if len(options) < 2 {
		return nil, true, "меньше двух вариантов ответа"
	}

	return &entity.Question{
		TestID:            testID,
		QuestionNumber:    number,
		QuestionText:      text,
		CorrectAnswer:     correct,
		DocumentReference: reference,
		AnswerOptions:     options,
	}, false, ""
}

// normalizeAnswerList приводит список правильных ответов к
// каноническому виду "1,3": числа через запятую без пробелов.
func normalizeAnswerList(raw string) string {
	parts := strings.Split(raw, ",")
	var nums []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err != nil {
			return ""
		}
		nums = append(nums, p)
	}
	return strings.Join(nums, ",")
}
