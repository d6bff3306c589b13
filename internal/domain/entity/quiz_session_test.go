package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuizSession_IsEnded(t *testing.T) {
	now := time.Now()
	session := &QuizSession{
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
	}

	assert.False(t, session.IsEnded(now), "Окно ещё открыто")
	assert.True(t, session.IsEnded(now.Add(2*time.Hour)), "После ends_at зачёт закончился")
}

func TestQuizSession_ShouldActivate(t *testing.T) {
	now := time.Now()

	pending := &QuizSession{StartsAt: now.Add(time.Hour)}
	assert.False(t, pending.ShouldActivate(now), "До времени начала активировать рано")

	due := &QuizSession{StartsAt: now.Add(-time.Minute)}
	assert.True(t, due.ShouldActivate(now), "Время начала наступило")

	exactlyDue := &QuizSession{StartsAt: now}
	assert.True(t, exactlyDue.ShouldActivate(now), "Ровно в starts_at зачёт активируется")

	active := &QuizSession{StartsAt: now.Add(-time.Minute), IsActive: true}
	assert.False(t, active.ShouldActivate(now), "Активный зачёт не активируется повторно")
}

func TestQuizSession_IsOpenForAttempts(t *testing.T) {
	now := time.Now()

	open := &QuizSession{
		IsActive: true,
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
	}
	assert.True(t, open.IsOpenForAttempts(now))

	inactive := &QuizSession{
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
	}
	assert.False(t, inactive.IsOpenForAttempts(now), "Неактивный зачёт закрыт для попыток")

	// IsActive не сбрасывается после окончания, но окно закрыто
	ended := &QuizSession{
		IsActive: true,
		StartsAt: now.Add(-2 * time.Hour),
		EndsAt:   now.Add(-time.Hour),
	}
	assert.False(t, ended.IsOpenForAttempts(now), "После ends_at попытки не начинаются")
}
