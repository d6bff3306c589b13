package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
)

// ProfileRepo реализует repository.ProfileRepository
type ProfileRepo struct {
	db *gorm.DB
}

// NewProfileRepo создает новый репозиторий профилей
func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Create создает новый профиль пользователя
func (r *ProfileRepo) Create(profile *entity.UserProfile) error {
	return r.db.Create(profile).Error
}

// GetByUserID возвращает профиль по ID пользователя
func (r *ProfileRepo) GetByUserID(userID uint) (*entity.UserProfile, error) {
	var profile entity.UserProfile
	err := r.db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// Update обновляет профиль пользователя
func (r *ProfileRepo) Update(profile *entity.UserProfile) error {
	return r.db.Save(profile).Error
}

// ListWithDepartmentCode возвращает профили с заданным кодом подразделения.
// groupPrefix задан — префильтр ILIKE по группе; точное покомпонентное
// сопоставление кода выполняет сервис поверх разобранных значений.
func (r *ProfileRepo) ListWithDepartmentCode(groupPrefix string) ([]entity.UserProfile, error) {
	query := r.db.Where("department_code IS NOT NULL AND department_code <> ''")
	if groupPrefix != "" {
		query = query.Where("department_code ILIKE ?", groupPrefix+"%")
	}

	var profiles []entity.UserProfile
	err := query.Find(&profiles).Error
	return profiles, err
}
