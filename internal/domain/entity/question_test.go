package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuestion_CorrectSet(t *testing.T) {
	question := &Question{CorrectAnswer: "1,3"}

	set := question.CorrectSet()

	assert.Len(t, set, 2)
	assert.Contains(t, set, 1)
	assert.Contains(t, set, 3)
}

func TestQuestion_CorrectSet_SkipsGarbage(t *testing.T) {
	question := &Question{CorrectAnswer: "1, x, ,2"}

	set := question.CorrectSet()

	assert.Len(t, set, 2, "Нечисловые и пустые элементы пропускаются")
	assert.Contains(t, set, 1)
	assert.Contains(t, set, 2)
}

func TestQuestion_IsCorrectSelection_ExactMatch(t *testing.T) {
	question := &Question{CorrectAnswer: "1,3"}

	assert.True(t, question.IsCorrectSelection([]int{1, 3}))
	assert.True(t, question.IsCorrectSelection([]int{3, 1}), "Порядок выбора не важен")
	assert.True(t, question.IsCorrectSelection([]int{1, 3, 3}), "Повторы не меняют множество")
}

func TestQuestion_IsCorrectSelection_PartialIsWrong(t *testing.T) {
	question := &Question{CorrectAnswer: "1,3"}

	assert.False(t, question.IsCorrectSelection([]int{1}), "Неполный выбор — неверный ответ")
	assert.False(t, question.IsCorrectSelection([]int{1, 2, 3}), "Лишний вариант — неверный ответ")
	assert.False(t, question.IsCorrectSelection([]int{2}))
	assert.False(t, question.IsCorrectSelection(nil))
}

func TestQuestion_OptionsCount(t *testing.T) {
	question := &Question{
		AnswerOptions: OptionMap{"1": "Да", "2": "Нет", "3": "Не знаю"},
	}
	assert.Equal(t, 3, question.OptionsCount())
}
