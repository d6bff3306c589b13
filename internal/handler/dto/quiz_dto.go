package dto

import (
	"time"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
)

// QuizSessionDTO — зачёт в списках и карточке
type QuizSessionDTO struct {
	ID               uint      `json:"id"`
	CreatorID        uint      `json:"creator_id"`
	TestID           uint      `json:"test_id"`
	TestName         string    `json:"test_name,omitempty"`
	QuestionCount    int       `json:"question_count"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
	IsActive         bool      `json:"is_active"`
	IsEnded          bool      `json:"is_ended"`
}

// NewQuizSessionDTO строит DTO сессии. Признак завершения вычисляется
// на момент запроса.
func NewQuizSessionDTO(s *entity.QuizSession, now time.Time) QuizSessionDTO {
	d := QuizSessionDTO{
		ID:               s.ID,
		CreatorID:        s.CreatorID,
		TestID:           s.TestID,
		QuestionCount:    s.QuestionCount,
		TimeLimitMinutes: s.TimeLimitMinutes,
		StartsAt:         s.StartsAt,
		EndsAt:           s.EndsAt,
		IsActive:         s.IsActive,
		IsEnded:          s.IsEnded(now),
	}
	if s.Test != nil {
		d.TestName = s.Test.Name
	}
	return d
}
