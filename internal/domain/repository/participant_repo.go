package repository

import (
	"github.com/yourusername/testcenter-api/internal/domain/entity"
)

// ParticipantRepository определяет методы для работы с участниками зачётов
type ParticipantRepository interface {
	Create(participant *entity.QuizParticipant) error
	GetBySessionAndUser(sessionID, userID uint) (*entity.QuizParticipant, error)
	Update(participant *entity.QuizParticipant) error
	// ListBySession возвращает участников с предзагруженными пользователем,
	// профилем и попыткой — для построения итоговой таблицы зачёта.
	ListBySession(sessionID uint) ([]entity.QuizParticipant, error)
	DeleteBySession(sessionID uint) error
}
