package repository

import (
	"time"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
)

// AttemptFilters определяет фильтры выборки попыток
type AttemptFilters struct {
	AttemptType string     // normal, express, quiz; пусто — все типы
	Completed   *bool      // фильтр по завершённости
	Since       *time.Time // попытки, завершённые не раньше этого момента
}

// AttemptRepository определяет методы для работы с попытками прохождения тестов
type AttemptRepository interface {
	Create(attempt *entity.TestAttempt) error
	GetByID(id uint) (*entity.TestAttempt, error)
	GetByAttemptID(attemptID string) (*entity.TestAttempt, error)
	Update(attempt *entity.TestAttempt) error
	ListByUser(userID uint, filters AttemptFilters) ([]entity.TestAttempt, error)
	// DeleteOlderThan удаляет попытки пользователя указанных типов,
	// созданные раньше cutoff. Возвращает количество удалённых строк.
	DeleteOlderThan(userID uint, attemptTypes []string, cutoff time.Time) (int64, error)
	// PurgeOlderThan удаляет попытки указанных типов старше cutoff
	// у всех пользователей. Возвращает количество удалённых строк.
	PurgeOlderThan(attemptTypes []string, cutoff time.Time) (int64, error)
}
