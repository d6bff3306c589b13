package dto

import (
	"time"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	"github.com/yourusername/testcenter-api/internal/handler/helper"
)

// QuestionViewDTO — вопрос, отдаваемый проходящему тест.
// Правильные ответы намеренно не включаются.
type QuestionViewDTO struct {
	ID             uint                    `json:"id"`
	QuestionNumber int                     `json:"question_number"`
	QuestionText   string                  `json:"question_text"`
	Options        []helper.QuestionOption `json:"options"`
}

// NewQuestionViewDTO строит DTO вопроса без правильных ответов
func NewQuestionViewDTO(q *entity.Question) *QuestionViewDTO {
	if q == nil {
		return nil
	}
	return &QuestionViewDTO{
		ID:             q.ID,
		QuestionNumber: q.QuestionNumber,
		QuestionText:   q.QuestionText,
		Options:        helper.ConvertOptionsToObjects(q.AnswerOptions),
	}
}

// AttemptStateDTO — текущее положение в попытке
type AttemptStateDTO struct {
	AttemptID      string           `json:"attempt_id"`
	AttemptType    string           `json:"attempt_type"`
	Completed      bool             `json:"completed"`
	TimeExpired    bool             `json:"time_expired"`
	QuestionIndex  int              `json:"question_index"`
	TotalQuestions int              `json:"total_questions"`
	RemainingSec   *float64         `json:"remaining_seconds,omitempty"`
	Question       *QuestionViewDTO `json:"question,omitempty"`
	Score          *float64         `json:"score,omitempty"`
}

// AnswerResultDTO — исход записи одного ответа
type AnswerResultDTO struct {
	IsCorrect      bool     `json:"is_correct"`
	CorrectAnswers []int    `json:"correct_answers"`
	NextQuestionID *uint    `json:"next_question_id,omitempty"`
	Completed      bool     `json:"completed"`
	TimeExpired    bool     `json:"time_expired"`
	Score          *float64 `json:"score,omitempty"`
}

// ResultQuestionDTO — один вопрос в разборе завершённой попытки
type ResultQuestionDTO struct {
	ID                uint                    `json:"id"`
	QuestionNumber    int                     `json:"question_number"`
	QuestionText      string                  `json:"question_text"`
	Options           []helper.QuestionOption `json:"options"`
	CorrectAnswers    []int                   `json:"correct_answers"`
	SelectedAnswers   []int                   `json:"selected_answers"`
	IsCorrect         bool                    `json:"is_correct"`
	DocumentReference string                  `json:"document_reference,omitempty"`
}

// AttemptResultDTO — итог завершённой попытки с разбором
type AttemptResultDTO struct {
	AttemptID           string              `json:"attempt_id"`
	AttemptType         string              `json:"attempt_type"`
	Score               *float64            `json:"score"`
	CorrectAnswersCount *int                `json:"correct_answers_count"`
	TotalQuestionsCount *int                `json:"total_questions_count"`
	CompletedAt         *time.Time          `json:"completed_at"`
	Questions           []ResultQuestionDTO `json:"questions"`
}
