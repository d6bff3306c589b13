package service

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
)

func TestTestService_CreateTest_Success(t *testing.T) {
	// Arrange
	mockTestRepo := new(MockTestRepository)
	mockTestRepo.On("GetByName", "ПДД").Return(nil, apperrors.ErrNotFound)
	mockTestRepo.On("Create", mock.AnythingOfType("*entity.Test")).Return(nil)

	svc := NewTestService(mockTestRepo, new(MockQuestionRepository))

	// Act
	test, err := svc.CreateTest(CreateTestInput{Name: "  ПДД ", Description: " Правила "})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "ПДД", test.Name, "Имя обрезается по краям")
	assert.Equal(t, "Правила", test.Description)
}

func TestTestService_CreateTest_DuplicateName(t *testing.T) {
	mockTestRepo := new(MockTestRepository)
	mockTestRepo.On("GetByName", "ПДД").Return(&entity.Test{ID: 1, Name: "ПДД"}, nil)

	svc := NewTestService(mockTestRepo, new(MockQuestionRepository))

	test, err := svc.CreateTest(CreateTestInput{Name: "ПДД"})

	assert.Nil(t, test)
	assert.ErrorIs(t, err, apperrors.ErrConflict, "Имя теста уникально")
}

func TestTestService_CreateTest_EmptyName(t *testing.T) {
	svc := NewTestService(new(MockTestRepository), new(MockQuestionRepository))

	test, err := svc.CreateTest(CreateTestInput{Name: "   "})

	assert.Nil(t, test)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestTestService_UpdateTest_RenameConflict(t *testing.T) {
	mockTestRepo := new(MockTestRepository)
	mockTestRepo.On("GetByID", uint(1)).Return(&entity.Test{ID: 1, Name: "ПДД"}, nil)
	mockTestRepo.On("GetByName", "Охрана труда").Return(&entity.Test{ID: 2, Name: "Охрана труда"}, nil)

	svc := NewTestService(mockTestRepo, new(MockQuestionRepository))

	test, err := svc.UpdateTest(1, CreateTestInput{Name: "Охрана труда"})

	assert.Nil(t, test)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestTestService_DeleteTest_RemovesQuestions(t *testing.T) {
	mockTestRepo := new(MockTestRepository)
	mockQuestionRepo := new(MockQuestionRepository)

	mockTestRepo.On("GetByID", uint(1)).Return(&entity.Test{ID: 1}, nil)
	mockQuestionRepo.On("DeleteByTestID", uint(1)).Return(nil)
	mockTestRepo.On("Delete", uint(1)).Return(nil)

	svc := NewTestService(mockTestRepo, mockQuestionRepo)

	err := svc.DeleteTest(1)

	require.NoError(t, err)
	mockQuestionRepo.AssertExpectations(t)
	mockTestRepo.AssertExpectations(t)
}

// buildImportWorkbook собирает XLSX в памяти из строк листа
func buildImportWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestTestService_ImportQuestions_ReplacesBank(t *testing.T) {
	// Arrange
	mockTestRepo := new(MockTestRepository)
	mockQuestionRepo := new(MockQuestionRepository)

	mockTestRepo.On("GetByID", uint(1)).Return(&entity.Test{ID: 1}, nil)
	mockQuestionRepo.On("DeleteByTestID", uint(1)).Return(nil)

	var imported []entity.Question
	mockQuestionRepo.On("CreateBatch", mock.AnythingOfType("[]entity.Question")).Return(nil).Run(func(args mock.Arguments) {
		imported = args.Get(0).([]entity.Question)
	})

	svc := NewTestService(mockTestRepo, mockQuestionRepo)

	buf := buildImportWorkbook(t, [][]interface{}{
		{"№", "Вопрос", "Ответ", "Документ", "Вариант 1", "Вариант 2"},
		{1, "Первый вопрос?", "1, 3", "п. 2.1", "Да", "Нет", "Не знаю"},
		{2, "Второй вопрос?", "2", "", "Да", "Нет"},
		{3, "Без правильного ответа", "", "", "Да", "Нет"},
	})

	// Act
	result, err := svc.ImportQuestions(1, buf)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Skipped, 1, "Строка без правильного ответа попадает в пропущенные")
	assert.Contains(t, result.Skipped[0], "строка 4")

	require.Len(t, imported, 2)
	assert.Equal(t, "1,3", imported[0].CorrectAnswer, "Список ответов нормализуется")
	assert.Equal(t, "п. 2.1", imported[0].DocumentReference)
	assert.Len(t, imported[0].AnswerOptions, 3)
	assert.Equal(t, "Да", imported[0].AnswerOptions["1"])
}

func TestTestService_ImportQuestions_EmptyFileKeepsOldBank(t *testing.T) {
	mockTestRepo := new(MockTestRepository)
	mockQuestionRepo := new(MockQuestionRepository)
	mockTestRepo.On("GetByID", uint(1)).Return(&entity.Test{ID: 1}, nil)

	svc := NewTestService(mockTestRepo, mockQuestionRepo)

	buf := buildImportWorkbook(t, [][]interface{}{
		{"№", "Вопрос", "Ответ"},
	})

	result, err := svc.ImportQuestions(1, buf)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	mockQuestionRepo.AssertNotCalled(t, "DeleteByTestID", "Старый банк не трогаем при пустом файле")
}

func TestTestService_ImportQuestions_GarbageInput(t *testing.T) {
	mockTestRepo := new(MockTestRepository)
	mockTestRepo.On("GetByID", uint(1)).Return(&entity.Test{ID: 1}, nil)

	svc := NewTestService(mockTestRepo, new(MockQuestionRepository))

	result, err := svc.ImportQuestions(1, bytes.NewReader([]byte("это не xlsx")))

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestParseQuestionRow(t *testing.T) {
	testCases := []struct {
		name       string
		row        []string
		wantSkip   bool
		wantReason string
	}{
		{
			name: "валидная строка",
			row:  []string{"1", "Вопрос?", "1", "док", "Да", "Нет"},
		},
		{
			name:     "пустая строка пропускается молча",
			row:      []string{"", "", ""},
			wantSkip: true,
		},
		{
			name:       "недостаточно столбцов",
			row:        []string{"1"},
			wantSkip:   true,
			wantReason: "недостаточно столбцов",
		},
		{
			name:       "нечисловой номер",
			row:        []string{"abc", "Вопрос?", "1", "", "Да", "Нет"},
			wantSkip:   true,
			wantReason: reasonBadNumber,
		},
		{
			name:       "пустой текст вопроса",
			row:        []string{"1", "  ", "1", "", "Да", "Нет"},
			wantSkip:   true,
			wantReason: "пустой текст вопроса",
		},
		{
			name:       "нечисловой правильный ответ",
			row:        []string{"1", "Вопрос?", "1;2", "", "Да", "Нет"},
			wantSkip:   true,
			wantReason: "не указан правильный ответ",
		},
		{
			name:       "один вариант ответа",
			row:        []string{"1", "Вопрос?", "1", "", "Да"},
			wantSkip:   true,
			wantReason: "меньше двух вариантов ответа",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			question, skip, reason := parseQuestionRow(1, tc.row)

			assert.Equal(t, tc.wantSkip, skip)
			assert.Equal(t, tc.wantReason, reason)
			if !tc.wantSkip {
				require.NotNil(t, question)
				assert.Equal(t, uint(1), question.TestID)
			}
		})
	}
}

func TestParseQuestionRow_OptionNumbering(t *testing.T) {
	question, skip, _ := parseQuestionRow(1, []string{"7", "Вопрос?", "2", "", "Первый", "", "Третий"})

	require.False(t, skip)
	assert.Equal(t, 7, question.QuestionNumber)
	// Пустая ячейка между вариантами не сбивает нумерацию остальных
	assert.Equal(t, entity.OptionMap{"1": "Первый", "3": "Третий"}, question.AnswerOptions)
}

func TestNormalizeAnswerList(t *testing.T) {
	testCases := []struct {
		raw  string
		want string
	}{
		{"1", "1"},
		{"1, 3", "1,3"},
		{" 2 ,1 ", "2,1"},
		{"1,,3", "1,3"},
		{"", ""},
		{"1;3", ""},
		{"один", ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, normalizeAnswerList(tc.raw), "raw=%q", tc.raw)
	}
}
