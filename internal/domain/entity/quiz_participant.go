package entity

import (
	"time"
)

// QuizParticipant связывает зачёт и пользователя.
// Пара (зачёт, пользователь) уникальна; на участника приходится
// не более одной личной попытки.
type QuizParticipant struct {
	ID            uint `gorm:"primaryKey" json:"id"`
	QuizSessionID uint `gorm:"not null;index;uniqueIndex:idx_session_user" json:"quiz_session_id"`
	UserID        uint `gorm:"not null;index;uniqueIndex:idx_session_user" json:"user_id"`

	// AttemptID — личная попытка участника, NULL пока он не начал зачёт.
	AttemptID *uint `gorm:"index" json:"attempt_id,omitempty"`

	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
	// CompletedAt зеркалируется из завершённой попытки участника.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	User    *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Attempt *TestAttempt `gorm:"foreignKey:AttemptID" json:"attempt,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (QuizParticipant) TableName() string {
	return "quiz_participants"
}
