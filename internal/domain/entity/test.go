package entity

import (
	"time"
)

// Test представляет именованный набор вопросов
type Test struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Description string     `gorm:"type:text;not null;default:''" json:"description"`
	Questions   []Question `gorm:"foreignKey:TestID" json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Test) TableName() string {
	return "tests"
}
