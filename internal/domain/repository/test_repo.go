package repository

import (
	"github.com/yourusername/testcenter-api/internal/domain/entity"
)

// TestRepository определяет методы для работы с тестами
type TestRepository interface {
	Create(test *entity.Test) error
	GetByID(id uint) (*entity.Test, error)
	GetByName(name string) (*entity.Test, error)
	GetWithQuestions(id uint) (*entity.Test, error)
	Update(test *entity.Test) error
	// List возвращает тесты, отсортированные по имени, вместе с количеством вопросов
	List() ([]entity.Test, map[uint]int64, error)
	Delete(id uint) error
}
