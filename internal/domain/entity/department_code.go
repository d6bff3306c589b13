package entity

import (
	"strings"
)

// ViewRightsMarker — буква «У» в коде подразделения. Её наличие в любой
// позиции даёт держателю право просмотра чужих результатов.
const ViewRightsMarker = "У"

// DepartmentCode представляет разобранный код подразделения.
// Формат исходной строки: Группа[-Подгруппа[-Подподгруппа]][У].
// Пустая строка компонента означает, что дальше иерархия не уточняется.
type DepartmentCode struct {
	Group         string
	Subgroup      string
	Subsubgroup   string
	HasViewRights bool
}

// ParseDepartmentCode разбирает строку кода подразделения.
// Возвращает ok=false, если код не задан (пустая строка или пробелы).
// Строка нормализуется в верхний регистр, маркер «У» вырезается из
// компонента, в котором встретился. Компоненты после третьего молча
// отбрасываются — это допустимая деградация, а не ошибка.
func ParseDepartmentCode(raw string) (DepartmentCode, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return DepartmentCode{}, false
	}

	dc := DepartmentCode{
		HasViewRights: strings.Contains(code, ViewRightsMarker),
	}

	clean := strings.ReplaceAll(code, ViewRightsMarker, "")
	parts := strings.Split(clean, "-")
	if len(parts) > 0 {
		dc.Group = parts[0]
	}
	if len(parts) > 1 {
		dc.Subgroup = parts[1]
	}
	if len(parts) > 2 {
		dc.Subsubgroup = parts[2]
	}

	return dc, true
}

// Depth возвращает глубину иерархии кода: 3 для Группа-Подгруппа-Подподгруппа,
// 0 для кода без единого компонента.
func (c DepartmentCode) Depth() int {
	switch {
	case c.Subsubgroup != "":
		return 3
	case c.Subgroup != "":
		return 2
	case c.Group != "":
		return 1
	}
	return 0
}

// Covers сообщает, попадает ли other в зону видимости держателя кода c.
// Зону задаёт самый глубокий непустой компонент c: other должен совпадать
// с c по всем компонентам до этой глубины, любые более глубокие компоненты
// other допустимы. Право просмотра (HasViewRights) проверяет вызывающий.
func (c DepartmentCode) Covers(other DepartmentCode) bool {
	switch {
	case c.Subsubgroup != "":
		return other.Group == c.Group &&
			other.Subgroup == c.Subgroup &&
			other.Subsubgroup == c.Subsubgroup
	case c.Subgroup != "":
		return other.Group == c.Group && other.Subgroup == c.Subgroup
	case c.Group != "":
		return other.Group == c.Group
	}
	return false
}

// Hierarchy возвращает человекочитаемую иерархию подразделения,
// например "Группа 35 → Подгруппа 1".
func (c DepartmentCode) Hierarchy() string {
	var parts []string
	if c.Group != "" {
		parts = append(parts, "Группа "+c.Group)
	}
	if c.Subgroup != "" {
		parts = append(parts, "Подгруппа "+c.Subgroup)
	}
	if c.Subsubgroup != "" {
		parts = append(parts, "Подподгруппа "+c.Subsubgroup)
	}
	if len(parts) == 0 {
		return "Не указано"
	}
	return strings.Join(parts, " → ")
}
