package repository

import (
	"github.com/yourusername/testcenter-api/internal/domain/entity"
)

// ProfileRepository определяет методы для работы с профилями пользователей
type ProfileRepository interface {
	Create(profile *entity.UserProfile) error
	GetByUserID(userID uint) (*entity.UserProfile, error)
	Update(profile *entity.UserProfile) error
	// ListWithDepartmentCode возвращает все профили, у которых задан
	// код подразделения. groupPrefix непустой — грубый SQL-префильтр по
	// группе; точное сопоставление компонентов выполняет вызывающий.
	ListWithDepartmentCode(groupPrefix string) ([]entity.UserProfile, error)
}
