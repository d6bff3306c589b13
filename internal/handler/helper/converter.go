package helper

import (
	"sort"
	"strconv"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
)

// QuestionOption представляет вариант ответа для фронтенда
type QuestionOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// ConvertOptionsToObjects преобразует карту вариантов в отсортированный
// по номеру список объектов. Ключи с нечисловыми номерами пропускаются.
func ConvertOptionsToObjects(options entity.OptionMap) []QuestionOption {
	converted := make([]QuestionOption, 0, len(options))
	for key, text := range options {
		num, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if text == "" {
			text = "(пустой вариант)"
		}
		converted = append(converted, QuestionOption{ID: num, Text: text})
	}
	sort.Slice(converted, func(i, j int) bool { return converted[i].ID < converted[j].ID })
	return converted
}
