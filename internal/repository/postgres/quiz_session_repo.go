package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
)

// QuizSessionRepo реализует repository.QuizSessionRepository
type QuizSessionRepo struct {
	db *gorm.DB
}

// NewQuizSessionRepo создает новый репозиторий сессий зачётов
func NewQuizSessionRepo(db *gorm.DB) *QuizSessionRepo {
	return &QuizSessionRepo{db: db}
}

// Create создает новую сессию зачёта
func (r *QuizSessionRepo) Create(session *entity.QuizSession) error {
	return r.db.Create(session).Error
}

// GetByID возвращает сессию по ID вместе с тестом
func (r *QuizSessionRepo) GetByID(id uint) (*entity.QuizSession, error) {
	var session entity.QuizSession
	err := r.db.Preload("Test").First(&session, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Update обновляет сессию зачёта
func (r *QuizSessionRepo) Update(session *entity.QuizSession) error {
	return r.db.Save(session).Error
}

// Activate точечно устанавливает флаги активации без полного Save.
// Флаг is_active назад не сбрасывается.
func (r *QuizSessionRepo) Activate(sessionID uint, manual bool) error {
	updates := map[string]interface{}{"is_active": true}
	if manual {
		updates["manually_activated"] = true
	}
	return r.db.Model(&entity.QuizSession{}).
		Where("id = ?", sessionID).
		Updates(updates).Error
}

// ListByCreator возвращает сессии, созданные пользователем,
// новые раньше старых
func (r *QuizSessionRepo) ListByCreator(creatorID uint) ([]entity.QuizSession, error) {
	var sessions []entity.QuizSession
	err := r.db.Preload("Test").
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// ListForUser возвращает сессии, в которых пользователь участвует
func (r *QuizSessionRepo) ListForUser(userID uint) ([]entity.QuizSession, error) {
	var sessions []entity.QuizSession
	err := r.db.Preload("Test").
		Joins("JOIN quiz_participants ON quiz_participants.quiz_session_id = quiz_sessions.id").
		Where("quiz_participants.user_id = ?", userID).
		Order("quiz_sessions.created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// ListUnended возвращает сессии, чьё окно ещё не закрылось
func (r *QuizSessionRepo) ListUnended(now time.Time) ([]entity.QuizSession, error) {
	var sessions []entity.QuizSession
	err := r.db.Where("ends_at >= ?", now).Find(&sessions).Error
	return sessions, err
}

// ListDueForActivation возвращает неактивные сессии, чьё время начала
// наступило, а окно ещё не закрылось
func (r *QuizSessionRepo) ListDueForActivation(now time.Time) ([]entity.QuizSession, error) {
	var sessions []entity.QuizSession
	err := r.db.Where("is_active = false AND starts_at <= ? AND ends_at >= ?", now, now).
		Find(&sessions).Error
	return sessions, err
}

// Delete удаляет сессию зачёта. Участники удаляются каскадом на уровне
// схемы; попытки остаются — внешняя ссылка на сессию обнуляется.
func (r *QuizSessionRepo) Delete(id uint) error {
	return r.db.Delete(&entity.QuizSession{}, id).Error
}
