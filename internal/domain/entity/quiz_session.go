package entity

import (
	"time"
)

// QuizSession представляет сессию зачёта — групповое тестирование,
// ограниченное временным окном. Порядок вопросов фиксируется один раз
// при создании и одинаков для всех участников.
type QuizSession struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	CreatorID uint `gorm:"not null;index" json:"creator_id"`
	TestID    uint `gorm:"not null;index" json:"test_id"`

	QuestionCount    int `gorm:"not null;default:20" json:"question_count"`
	TimeLimitMinutes int `gorm:"not null;default:45" json:"time_limit_minutes"`

	StartsAt time.Time `gorm:"not null;index" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null" json:"ends_at"`

	IsActive          bool `gorm:"not null;default:false" json:"is_active"`
	ManuallyActivated bool `gorm:"not null;default:false" json:"manually_activated"`

	QuestionOrder UintArray `gorm:"type:jsonb;not null" json:"question_order"`

	Test         *Test             `gorm:"foreignKey:TestID" json:"test,omitempty"`
	Participants []QuizParticipant `gorm:"foreignKey:QuizSessionID" json:"participants,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (QuizSession) TableName() string {
	return "quiz_sessions"
}

// IsEnded проверяет, закончилось ли окно зачёта к моменту now.
// Состояние "закончился" выводится из ends_at и никогда не хранится:
// флаг IsActive после окончания не сбрасывается.
func (s *QuizSession) IsEnded(now time.Time) bool {
	return now.After(s.EndsAt)
}

// ShouldActivate проверяет, пора ли автоматически активировать зачёт
func (s *QuizSession) ShouldActivate(now time.Time) bool {
	return !s.IsActive && !now.Before(s.StartsAt)
}

// IsOpenForAttempts проверяет, можно ли начинать личную попытку:
// зачёт активен и его окно ещё не закрылось.
func (s *QuizSession) IsOpenForAttempts(now time.Time) bool {
	return s.IsActive && !s.IsEnded(now)
}
