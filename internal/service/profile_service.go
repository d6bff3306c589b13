package service

import (
	"fmt"
	"strings"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	"github.com/yourusername/testcenter-api/internal/domain/repository"
)

// ProfileService предоставляет методы для работы с профилями и
// разрешает зону видимости по коду подразделения
type ProfileService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
}

// NewProfileService создает новый сервис профилей
func NewProfileService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
) *ProfileService {
	return &ProfileService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
	}
}

// GetProfile возвращает профиль пользователя
func (s *ProfileService) GetProfile(userID uint) (*entity.UserProfile, error) {
	return s.profileRepo.GetByUserID(userID)
}

// UpdateProfileInput содержит редактируемые поля профиля
type UpdateProfileInput struct {
	LastName       string
	FirstName      string
	Patronymic     string
	DepartmentCode string
}

// UpdateProfile обновляет ФИО и код подразделения.
// Код хранится как введён (с точностью до обрезки пробелов);
// нормализация происходит при разборе.
func (s *ProfileService) UpdateProfile(userID uint, input UpdateProfileInput) (*entity.UserProfile, error) {
	profile, err := s.profileRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	profile.LastName = strings.TrimSpace(input.LastName)
	profile.FirstName = strings.TrimSpace(input.FirstName)
	profile.Patronymic = strings.TrimSpace(input.Patronymic)

	code := strings.TrimSpace(input.DepartmentCode)
	if code == "" {
		profile.DepartmentCode = nil
	} else {
		profile.DepartmentCode = &code
	}

	if err := s.profileRepo.Update(profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

// VisibleUserIDs возвращает ID пользователей, чьи результаты видны
// держателю userID. Без права просмотра (или без кода) множество пустое.
// Сам запрашивающий всегда входит в своё множество видимости, чтобы
// добираться до собственных результатов тем же путём, что и до чужих.
func (s *ProfileService) VisibleUserIDs(userID uint) ([]uint, error) {
	profile, err := s.profileRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	code, ok := profile.ParsedCode()
	if !ok || !code.HasViewRights || code.Depth() == 0 {
		return []uint{}, nil
	}

	candidates, err := s.profileRepo.ListWithDepartmentCode(code.Group)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(candidates))
	seen := make(map[uint]struct{}, len(candidates))
	for i := range candidates {
		other, parsed := candidates[i].ParsedCode()
		if !parsed || !code.Covers(other) {
			continue
		}
		if _, dup := seen[candidates[i].UserID]; dup {
			continue
		}
		seen[candidates[i].UserID] = struct{}{}
		ids = append(ids, candidates[i].UserID)
	}

	// Запрашивающий включается даже если SQL-префильтр его не вернул
	// (например, код изменился между запросами).
	if _, ok := seen[userID]; !ok {
		ids = append(ids, userID)
	}

	return ids, nil
}

// VisibleUsers возвращает пользователей из зоны видимости держателя userID
func (s *ProfileService) VisibleUsers(userID uint) ([]entity.User, error) {
	ids, err := s.VisibleUserIDs(userID)
	if err != nil {
		return nil, err
	}

	users := make([]entity.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.userRepo.GetByID(id)
		if err != nil {
			// Пользователь мог быть удален между выборками; пропускаем.
			continue
		}
		users = append(users, *user)
	}
	return users, nil
}
