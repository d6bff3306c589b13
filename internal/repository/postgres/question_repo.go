package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// Create создает новый вопрос
func (r *QuestionRepo) Create(question *entity.Question) error {
	return r.db.Create(question).Error
}

// CreateBatch создает несколько вопросов за один запрос
func (r *QuestionRepo) CreateBatch(questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.db.Create(&questions).Error
}

// GetByID возвращает вопрос по ID
func (r *QuestionRepo) GetByID(id uint) (*entity.Question, error) {
	var question entity.Question
	err := r.db.First(&question, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

// GetByTestID возвращает все вопросы теста, отсортированные по номеру
func (r *QuestionRepo) GetByTestID(testID uint) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.Where("test_id = ?", testID).
		Order("question_number").
		Find(&questions).Error
	return questions, err
}

// GetByTestIDInRange возвращает вопросы теста в диапазоне номеров.
// Границы включительны; nil-граница не ограничивает диапазон.
func (r *QuestionRepo) GetByTestIDInRange(testID uint, startNumber, endNumber *int) ([]entity.Question, error) {
	query := r.db.Where("test_id = ?", testID)
	if startNumber != nil {
		query = query.Where("question_number >= ?", *startNumber)
	}
	if endNumber != nil {
		query = query.Where("question_number <= ?", *endNumber)
	}

	var questions []entity.Question
	err := query.Order("question_number").Find(&questions).Error
	return questions, err
}

// GetByIDs возвращает вопросы по списку ID, сохраняя порядок списка.
// Отсутствующие в базе ID молча пропускаются.
func (r *QuestionRepo) GetByIDs(ids []uint) ([]entity.Question, error) {
	if len(ids) == 0 {
		return []entity.Question{}, nil
	}

	var questions []entity.Question
	if err := r.db.Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]entity.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	ordered := make([]entity.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

// CountByTestID возвращает количество вопросов теста
func (r *QuestionRepo) CountByTestID(testID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Question{}).Where("test_id = ?", testID).Count(&count).Error
	return count, err
}

// DeleteByTestID удаляет все вопросы теста
func (r *QuestionRepo) DeleteByTestID(testID uint) error {
	return r.db.Where("test_id = ?", testID).Delete(&entity.Question{}).Error
}
