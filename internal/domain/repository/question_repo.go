package repository

import (
	"github.com/yourusername/testcenter-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с вопросами
type QuestionRepository interface {
	Create(question *entity.Question) error
	CreateBatch(questions []entity.Question) error
	GetByID(id uint) (*entity.Question, error)
	GetByTestID(testID uint) ([]entity.Question, error)
	// GetByTestIDInRange возвращает вопросы теста в диапазоне номеров.
	// Нулевые границы означают отсутствие ограничения с соответствующей стороны.
	GetByTestIDInRange(testID uint, startNumber, endNumber *int) ([]entity.Question, error)
	// GetByIDs возвращает вопросы по списку ID, сохраняя порядок списка
	GetByIDs(ids []uint) ([]entity.Question, error)
	CountByTestID(testID uint) (int64, error)
	DeleteByTestID(testID uint) error
}
