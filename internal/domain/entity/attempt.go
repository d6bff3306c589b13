package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Типы попыток прохождения теста
const (
	AttemptTypeNormal  = "normal"
	AttemptTypeExpress = "express"
	AttemptTypeQuiz    = "quiz"
)

// UintArray - пользовательский тип для работы с JSONB.
// Хранит зафиксированный порядок идентификаторов вопросов.
type UintArray []uint

// Scan реализует интерфейс sql.Scanner для UintArray
func (a *UintArray) Scan(value interface{}) error {
	if value == nil {
		*a = UintArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*a = UintArray{}
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// Value реализует интерфейс driver.Valuer для UintArray
func (a UintArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// AnswerMap - пользовательский тип для работы с JSONB.
// Хранит ответы попытки: ID вопроса (строкой) → выбранные варианты.
type AnswerMap map[string][]int

// Scan реализует интерфейс sql.Scanner для AnswerMap
func (m *AnswerMap) Scan(value interface{}) error {
	if value == nil {
		*m = AnswerMap{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*m = AnswerMap{}
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Value реализует интерфейс driver.Valuer для AnswerMap
func (m AnswerMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Get возвращает ответ на вопрос по его ID
func (m AnswerMap) Get(questionID uint) ([]int, bool) {
	answer, ok := m[strconv.FormatUint(uint64(questionID), 10)]
	return answer, ok
}

// Set записывает ответ на вопрос по его ID
func (m AnswerMap) Set(questionID uint, selected []int) {
	m[strconv.FormatUint(uint64(questionID), 10)] = selected
}

// TestAttempt представляет одну попытку прохождения теста.
// Попыток по одной паре пользователь-тест может быть несколько.
type TestAttempt struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`
	TestID uint `gorm:"not null;index" json:"test_id"`

	// AttemptID — уникальный идентификатор попытки. Генерируется один раз
	// при первом сохранении и после этого не меняется.
	AttemptID string `gorm:"size:100;uniqueIndex;not null" json:"attempt_id"`

	AttemptType string `gorm:"size:10;not null;default:'normal';index" json:"attempt_type"`

	CurrentQuestionID *uint `json:"current_question_id,omitempty"`

	Completed bool      `gorm:"not null;default:false;index" json:"completed"`
	Answers   AnswerMap `gorm:"type:jsonb;not null;default:'{}'" json:"answers"`

	// Диапазон номеров вопросов для обычной попытки. Обе границы включительны
	// и необязательны.
	StartQuestion *int `json:"start_question,omitempty"`
	EndQuestion   *int `json:"end_question,omitempty"`

	// QuestionOrder — явный зафиксированный порядок вопросов. Заполняется
	// для экспресс- и зачётных попыток, где порядок не выводится из диапазона.
	QuestionOrder UintArray `gorm:"type:jsonb" json:"question_order,omitempty"`

	TimeLimitMinutes int        `gorm:"not null;default:0" json:"time_limit_minutes"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	// EndTime — абсолютный дедлайн попытки (только для зачёта).
	EndTime *time.Time `json:"end_time,omitempty"`

	Score                *float64   `json:"score,omitempty"`
	CorrectAnswersCount  *int       `json:"correct_answers_count,omitempty"`
	TotalQuestionsCount  *int       `json:"total_questions_count,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`

	QuizSessionID *uint `gorm:"index" json:"quiz_session_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (TestAttempt) TableName() string {
	return "test_attempts"
}

// BeforeCreate генерирует уникальный AttemptID при первом сохранении
func (a *TestAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.AttemptID == "" {
		a.AttemptID = uuid.NewString()
	}
	return nil
}

// IsQuiz проверяет, относится ли попытка к зачёту
func (a *TestAttempt) IsQuiz() bool {
	return a.AttemptType == AttemptTypeQuiz
}

// IsTimeExpired проверяет, истёк ли дедлайн попытки на момент now.
// Попытки без дедлайна не истекают.
func (a *TestAttempt) IsTimeExpired(now time.Time) bool {
	if a.EndTime == nil {
		return false
	}
	return now.After(*a.EndTime)
}

// RemainingSeconds возвращает оставшееся время попытки в секундах.
// nil — у попытки нет дедлайна.
func (a *TestAttempt) RemainingSeconds(now time.Time) *float64 {
	if a.EndTime == nil {
		return nil
	}
	remaining := a.EndTime.Sub(now).Seconds()
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// CalculateScore подсчитывает результат попытки по списку вопросов,
// входящих в её охват. Результат записывается в Score в процентах
// с точностью до одного знака, 0 при пустом списке вопросов.
func (a *TestAttempt) CalculateScore(questions []Question) {
	total := len(questions)

	correct := 0
	for i := range questions {
		answer, ok := a.Answers.Get(questions[i].ID)
		if !ok {
			continue
		}
		if questions[i].IsCorrectSelection(answer) {
			correct++
		}
	}

	score := 0.0
	if total > 0 {
		score = math.Round(float64(correct)/float64(total)*1000) / 10
	}

	a.Score = &score
	a.CorrectAnswersCount = &correct
	a.TotalQuestionsCount = &total
}

// NextQuestionID возвращает следующий вопрос после current в зафиксированном
// порядке попытки. ok=false — current был последним или не найден.
func (a *TestAttempt) NextQuestionID(current uint) (uint, bool) {
	for i, id := range a.QuestionOrder {
		if id == current && i+1 < len(a.QuestionOrder) {
			return a.QuestionOrder[i+1], true
		}
	}
	return 0, false
}
