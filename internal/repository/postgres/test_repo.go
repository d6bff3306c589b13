package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
)

// TestRepo реализует repository.TestRepository
type TestRepo struct {
	db *gorm.DB
}

// NewTestRepo создает новый репозиторий тестов
func NewTestRepo(db *gorm.DB) *TestRepo {
	return &TestRepo{db: db}
}

// Create создает новый тест
func (r *TestRepo) Create(test *entity.Test) error {
	return r.db.Create(test).Error
}

// GetByID возвращает тест по ID
func (r *TestRepo) GetByID(id uint) (*entity.Test, error) {
	var test entity.Test
	err := r.db.First(&test, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &test, nil
}

// GetByName возвращает тест по имени
func (r *TestRepo) GetByName(name string) (*entity.Test, error) {
	var test entity.Test
	err := r.db.Where("name = ?", name).First(&test).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &test, nil
}

// GetWithQuestions возвращает тест вместе с вопросами,
// отсортированными по номеру
func (r *TestRepo) GetWithQuestions(id uint) (*entity.Test, error) {
	var test entity.Test
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("question_number")
	}).First(&test, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &test, nil
}

// Update обновляет информацию о тесте
func (r *TestRepo) Update(test *entity.Test) error {
	return r.db.Save(test).Error
}

// List возвращает тесты по имени вместе с количеством вопросов каждого
func (r *TestRepo) List() ([]entity.Test, map[uint]int64, error) {
	var tests []entity.Test
	if err := r.db.Order("name").Find(&tests).Error; err != nil {
		return nil, nil, err
	}

	type countRow struct {
		TestID uint
		Cnt    int64
	}
	var rows []countRow
	err := r.db.Model(&entity.Question{}).
		Select("test_id, count(*) as cnt").
		Group("test_id").
		Scan(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.TestID] = row.Cnt
	}
	return tests, counts, nil
}

// Delete удаляет тест вместе с вопросами (каскад на уровне схемы)
func (r *TestRepo) Delete(id uint) error {
	return r.db.Delete(&entity.Test{}, id).Error
}
