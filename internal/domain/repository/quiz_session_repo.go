package repository

import (
	"time"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
)

// QuizSessionRepository определяет методы для работы с сессиями зачётов
type QuizSessionRepository interface {
	Create(session *entity.QuizSession) error
	GetByID(id uint) (*entity.QuizSession, error)
	Update(session *entity.QuizSession) error
	// Activate устанавливает is_active (и manually_activated при manual=true)
	// точечным обновлением, без полного Save.
	Activate(sessionID uint, manual bool) error
	ListByCreator(creatorID uint) ([]entity.QuizSession, error)
	ListForUser(userID uint) ([]entity.QuizSession, error)
	// ListUnended возвращает сессии, чьё окно ещё не закрылось к моменту now
	ListUnended(now time.Time) ([]entity.QuizSession, error)
	// ListDueForActivation возвращает неактивные сессии, чьё время начала
	// уже наступило, а окно ещё не закрылось.
	ListDueForActivation(now time.Time) ([]entity.QuizSession, error)
	Delete(id uint) error
}
