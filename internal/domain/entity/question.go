package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// OptionMap - пользовательский тип для работы с JSONB.
// Хранит варианты ответов вопроса: номер варианта → текст.
type OptionMap map[string]string

// Scan реализует интерфейс sql.Scanner для OptionMap
// Используется GORM для чтения JSONB данных из базы
func (o *OptionMap) Scan(value interface{}) error {
	if value == nil {
		*o = OptionMap{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*o = OptionMap{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для OptionMap
// Используется GORM для записи OptionMap в JSONB в базе
func (o OptionMap) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("{}"), nil // Возвращаем пустой JSON объект вместо null
	}
	return json.Marshal(o)
}

// Question представляет вопрос теста
type Question struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	TestID         uint   `gorm:"not null;index" json:"test_id"`
	QuestionNumber int    `gorm:"not null;index" json:"question_number"`
	QuestionText   string `gorm:"type:text;not null" json:"question_text"`

	// CorrectAnswer хранит номера правильных вариантов через запятую,
	// например "1,3". Скрыто от клиента.
	CorrectAnswer string `gorm:"size:50;not null" json:"-"`

	DocumentReference string    `gorm:"size:255;not null;default:''" json:"document_reference"`
	AnswerOptions     OptionMap `gorm:"type:jsonb;not null" json:"answer_options"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// CorrectSet возвращает множество номеров правильных вариантов.
// Нечисловые и пустые элементы молча пропускаются.
func (q *Question) CorrectSet() map[int]struct{} {
	set := make(map[int]struct{})
	for _, part := range strings.Split(q.CorrectAnswer, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

// IsCorrectSelection проверяет ответ по точному совпадению множеств:
// порядок и повторы выбранных вариантов значения не имеют.
func (q *Question) IsCorrectSelection(selected []int) bool {
	correct := q.CorrectSet()

	chosen := make(map[int]struct{}, len(selected))
	for _, n := range selected {
		chosen[n] = struct{}{}
	}

	if len(chosen) != len(correct) {
		return false
	}
	for n := range chosen {
		if _, ok := correct[n]; !ok {
			return false
		}
	}
	return true
}

// OptionsCount возвращает количество вариантов ответа
func (q *Question) OptionsCount() int {
	return len(q.AnswerOptions)
}
