package service

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	"github.com/yourusername/testcenter-api/internal/domain/repository"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
)

// StatsWindowDays — горизонт статистики: попытки старше не показываются
// и подлежат очистке.
const StatsWindowDays = 60

// statsCacheTTL ограничивает жизнь снимка статистики в Redis.
const statsCacheTTL = 2 * time.Minute

// StatsService агрегирует статистику прохождений за скользящее окно.
type StatsService struct {
	attemptRepo    repository.AttemptRepository
	testRepo       repository.TestRepository
	profileService *ProfileService
	cacheRepo      repository.CacheRepository
}

// NewStatsService создает новый сервис статистики
func NewStatsService(
	attemptRepo repository.AttemptRepository,
	testRepo repository.TestRepository,
	profileService *ProfileService,
	cacheRepo repository.CacheRepository,
) *StatsService {
	return &StatsService{
		attemptRepo:    attemptRepo,
		testRepo:       testRepo,
		profileService: profileService,
		cacheRepo:      cacheRepo,
	}
}

// AttemptSummary — одна завершённая попытка в статистике
type AttemptSummary struct {
	AttemptID   string     `json:"attempt_id"`
	TestID      uint       `json:"test_id"`
	TestName    string     `json:"test_name"`
	AttemptType string     `json:"attempt_type"`
	Score       float64    `json:"score"`
	Correct     int        `json:"correct_answers_count"`
	Total       int        `json:"total_questions_count"`
	CompletedAt *time.Time `json:"completed_at"`
}

// TypeStats — сводка по одному типу попыток
type TypeStats struct {
	Count        int              `json:"count"`
	AverageScore float64          `json:"average_score"`
	BestPerTest  []AttemptSummary `json:"best_per_test"`
	Attempts     []AttemptSummary `json:"attempts"`
}

// UserStats — снимок статистики пользователя за окно
type UserStats struct {
	UserID     uint      `json:"user_id"`
	FullName   string    `json:"full_name"`
	Department string    `json:"department"`
	WindowDays int       `json:"window_days"`
	Normal     TypeStats `json:"normal"`
	Express    TypeStats `json:"express"`
	Quiz       TypeStats `json:"quiz"`
}

// GetUserStats возвращает статистику пользователя. Чужую статистику
// видит только тот, в чью зону видимости пользователь входит.
// Снимок кэшируется в Redis с коротким TTL.
func (s *StatsService) GetUserStats(requesterID, targetID uint) (*UserStats, error) {
	if requesterID != targetID {
		if err := s.checkVisibility(requesterID, targetID); err != nil {
			return nil, err
		}
	}

	cacheKey := fmt.Sprintf("stats:user:%d", targetID)
	if s.cacheRepo != nil {
		var cached UserStats
		if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := s.buildStats(targetID)
	if err != nil {
		return nil, err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(cacheKey, stats, statsCacheTTL); err != nil {
			log.Printf("[StatsService] Не удалось закэшировать статистику user=%d: %v", targetID, err)
		}
	}

	return stats, nil
}

// InvalidateUser сбрасывает кэшированный снимок статистики пользователя.
// Вызывается после завершения попытки, чтобы результат был виден сразу.
func (s *StatsService) InvalidateUser(userID uint) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Delete(fmt.Sprintf("stats:user:%d", userID)); err != nil {
		log.Printf("[StatsService] Не удалось сбросить кэш статистики user=%d: %v", userID, err)
	}
}

func (s *StatsService) checkVisibility(requesterID, targetID uint) error {
	ids, err := s.profileService.VisibleUserIDs(requesterID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == targetID {
			return nil
		}
	}
	return fmt.Errorf("%w: user is outside your visibility scope", apperrors.ErrForbidden)
}

func (s *StatsService) buildStats(userID uint) (*UserStats, error) {
	completed := true
	since := time.Now().AddDate(0, 0, -StatsWindowDays)
	attempts, err := s.attemptRepo.ListByUser(userID, repository.AttemptFilters{
		Completed: &completed,
		Since:     &since,
	})
	if err != nil {
		return nil, err
	}

	stats := &UserStats{
		UserID:     userID,
		WindowDays: StatsWindowDays,
	}
	if profile, err := s.profileService.GetProfile(userID); err == nil {
		stats.FullName = profile.FullName()
		if code, ok := profile.ParsedCode(); ok {
			stats.Department = code.Hierarchy()
		}
	}

	testNames := s.resolveTestNames(attempts)

	byType := map[string][]AttemptSummary{}
	for i := range attempts {
		a := attempts[i]
		if a.Score == nil || a.CorrectAnswersCount == nil || a.TotalQuestionsCount == nil {
			continue
		}
		byType[a.AttemptType] = append(byType[a.AttemptType], AttemptSummary{
			AttemptID:   a.AttemptID,
			TestID:      a.TestID,
			TestName:    testNames[a.TestID],
			AttemptType: a.AttemptType,
			Score:       *a.Score,
			Correct:     *a.CorrectAnswersCount,
			Total:       *a.TotalQuestionsCount,
			CompletedAt: a.CompletedAt,
		})
	}

	stats.Normal = summarize(byType[entity.AttemptTypeNormal])
	stats.Express = summarize(byType[entity.AttemptTypeExpress])
	stats.Quiz = summarize(byType[entity.AttemptTypeQuiz])

	return stats, nil
}

func (s *StatsService) resolveTestNames(attempts []entity.TestAttempt) map[uint]string {
	names := map[uint]string{}
	for i := range attempts {
		testID := attempts[i].TestID
		if _, ok := names[testID]; ok {
			continue
		}
		test, err := s.testRepo.GetByID(testID)
		if err != nil {
			names[testID] = ""
			continue
		}
		names[testID] = test.Name
	}
	return names
}

// summarize строит сводку типа: средний балл по всем попыткам и лучший
// результат по каждому тесту. Полный список попыток сохраняется.
func summarize(attempts []AttemptSummary) TypeStats {
	stats := TypeStats{
		Count:    len(attempts),
		Attempts: attempts,
	}
	if len(attempts) == 0 {
		stats.Attempts = []AttemptSummary{}
		stats.BestPerTest = []AttemptSummary{}
		return stats
	}

	sum := 0.0
	bestByTest := map[uint]AttemptSummary{}
	var order []uint
	for _, a := range attempts {
		sum += a.Score
		best, seen := bestByTest[a.TestID]
		if !seen {
			order = append(order, a.TestID)
		}
		if !seen || a.Score > best.Score {
			bestByTest[a.TestID] = a
		}
	}

	stats.AverageScore = math.Round(sum/float64(len(attempts))*10) / 10
	for _, testID := range order {
		stats.BestPerTest = append(stats.BestPerTest, bestByTest[testID])
	}
	return stats
}

// PurgeOldAttempts удаляет обычные и экспресс-попытки старше окна
// статистики у всех пользователей. Попытки зачётов не удаляются:
// их историю хранит сессия. Вызывается планировщиком.
func (s *StatsService) PurgeOldAttempts() (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -StatsWindowDays)
	return s.attemptRepo.PurgeOlderThan(
		[]string{entity.AttemptTypeNormal, entity.AttemptTypeExpress},
		cutoff,
	)
}

// PurgeUserAttempts удаляет устаревшие попытки одного пользователя.
// Дополняет плановую очистку при просмотре собственной статистики.
func (s *StatsService) PurgeUserAttempts(userID uint) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -StatsWindowDays)
	return s.attemptRepo.DeleteOlderThan(
		userID,
		[]string{entity.AttemptTypeNormal, entity.AttemptTypeExpress},
		cutoff,
	)
}
