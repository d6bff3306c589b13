package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	"github.com/yourusername/testcenter-api/internal/domain/repository"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Create создает новую попытку
func (r *AttemptRepo) Create(attempt *entity.TestAttempt) error {
	return r.db.Create(attempt).Error
}

// GetByID возвращает попытку по первичному ключу
func (r *AttemptRepo) GetByID(id uint) (*entity.TestAttempt, error) {
	var attempt entity.TestAttempt
	err := r.db.First(&attempt, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetByAttemptID возвращает попытку по её уникальному идентификатору
func (r *AttemptRepo) GetByAttemptID(attemptID string) (*entity.TestAttempt, error) {
	var attempt entity.TestAttempt
	err := r.db.Where("attempt_id = ?", attemptID).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// Update сохраняет изменённую попытку. Каждое сохранение ответа — одно
// обновление строки; защита от гонки двух одновременных сабмитов не
// предусмотрена, побеждает последняя запись.
func (r *AttemptRepo) Update(attempt *entity.TestAttempt) error {
	return r.db.Save(attempt).Error
}

// ListByUser возвращает попытки пользователя с фильтрами,
// новые раньше старых
func (r *AttemptRepo) ListByUser(userID uint, filters repository.AttemptFilters) ([]entity.TestAttempt, error) {
	query := r.db.Where("user_id = ?", userID)

	if filters.AttemptType != "" {
		query = query.Where("attempt_type = ?", filters.AttemptType)
	}
	if filters.Completed != nil {
		query = query.Where("completed = ?", *filters.Completed)
	}
	if filters.Since != nil {
		query = query.Where("completed_at >= ?", *filters.Since)
	}

	var attempts []entity.TestAttempt
	err := query.Order("created_at DESC").Find(&attempts).Error
	return attempts, err
}

// DeleteOlderThan удаляет попытки пользователя указанных типов старше cutoff
func (r *AttemptRepo) DeleteOlderThan(userID uint, attemptTypes []string, cutoff time.Time) (int64, error) {
	result := r.db.Where("user_id = ? AND attempt_type IN ? AND created_at < ?", userID, attemptTypes, cutoff).
		Delete(&entity.TestAttempt{})
	return result.RowsAffected, result.Error
}

// PurgeOlderThan удаляет попытки указанных типов старше cutoff у всех пользователей
func (r *AttemptRepo) PurgeOlderThan(attemptTypes []string, cutoff time.Time) (int64, error) {
	result := r.db.Where("attempt_type IN ? AND created_at < ?", attemptTypes, cutoff).
		Delete(&entity.TestAttempt{})
	return result.RowsAffected, result.Error
}
