package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/yourusername/testcenter-api/internal/domain/entity"
	"github.com/yourusername/testcenter-api/internal/domain/repository"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
)

// ParticipantRepo реализует repository.ParticipantRepository
type ParticipantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo создает новый репозиторий участников зачётов
func NewParticipantRepo(db *gorm.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

// Create добавляет участника. Уникальный индекс по паре (зачёт, пользователь)
// защищает от одновременного двойного зачисления: повторная вставка
// возвращает repository.ErrDuplicateParticipant.
func (r *ParticipantRepo) Create(participant *entity.QuizParticipant) error {
	if err := r.db.Create(participant).Error; err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateParticipant
		}
		return err
	}
	return nil
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}

// GetBySessionAndUser возвращает участника зачёта
func (r *ParticipantRepo) GetBySessionAndUser(sessionID, userID uint) (*entity.QuizParticipant, error) {
	var participant entity.QuizParticipant
	err := r.db.Where("quiz_session_id = ? AND user_id = ?", sessionID, userID).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &participant, nil
}

// Update обновляет запись участника
func (r *ParticipantRepo) Update(participant *entity.QuizParticipant) error {
	return r.db.Save(participant).Error
}

// ListBySession возвращает участников зачёта с пользователями и попытками
func (r *ParticipantRepo) ListBySession(sessionID uint) ([]entity.QuizParticipant, error) {
	var participants []entity.QuizParticipant
	err := r.db.Preload("User").Preload("User.Profile").Preload("Attempt").
		Where("quiz_session_id = ?", sessionID).
		Order("joined_at").
		Find(&participants).Error
	return participants, err
}

// DeleteBySession удаляет всех участников зачёта
func (r *ParticipantRepo) DeleteBySession(sessionID uint) error {
	return r.db.Where("quiz_session_id = ?", sessionID).Delete(&entity.QuizParticipant{}).Error
}
