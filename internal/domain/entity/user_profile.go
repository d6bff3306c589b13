package entity

import (
	"strings"
	"time"
)

// UserProfile хранит ФИО и код подразделения пользователя.
// Профиль создается вместе с учетной записью и живет ровно столько же:
// отдельно профили не удаляются.
type UserProfile struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex" json:"user_id"`

	LastName   string `gorm:"size:100;not null;default:''" json:"last_name"`
	FirstName  string `gorm:"size:100;not null;default:''" json:"first_name"`
	Patronymic string `gorm:"size:100;not null;default:''" json:"patronymic"`

	// DepartmentCode — исходная строка кода подразделения,
	// например "35-1-1У". NULL, если код не задан.
	DepartmentCode *string `gorm:"size:50" json:"department_code,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (UserProfile) TableName() string {
	return "user_profiles"
}

// ParsedCode возвращает разобранный код подразделения.
// ok=false, если код не задан.
func (p *UserProfile) ParsedCode() (DepartmentCode, bool) {
	if p.DepartmentCode == nil {
		return DepartmentCode{}, false
	}
	return ParseDepartmentCode(*p.DepartmentCode)
}

// CanViewOtherResults проверяет, имеет ли держатель профиля право
// просматривать чужие результаты.
func (p *UserProfile) CanViewOtherResults() bool {
	code, ok := p.ParsedCode()
	return ok && code.HasViewRights
}

// FullName возвращает полное ФИО пользователя
func (p *UserProfile) FullName() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{p.LastName, p.FirstName, p.Patronymic} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

// ShortName возвращает краткое ФИО вида "Фамилия И.О.".
// fallback используется, когда фамилия или имя не заполнены.
func (p *UserProfile) ShortName(fallback string) string {
	if p.LastName == "" || p.FirstName == "" {
		return fallback
	}

	initials := string([]rune(p.FirstName)[0]) + "."
	if p.Patronymic != "" {
		initials += string([]rune(p.Patronymic)[0]) + "."
	}
	return strings.TrimSpace(p.LastName + " " + initials)
}
