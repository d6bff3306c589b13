package scheduler

import (
	"log"

	"github.com/robfig/cron/v3"

	"github.com/yourusername/testcenter-api/internal/service"
)

// Scheduler запускает фоновые задачи: активацию зачётов по расписанию,
// досинхронизацию участников и очистку устаревших попыток.
type Scheduler struct {
	cron         *cron.Cron
	quizService  *service.QuizSessionService
	statsService *service.StatsService
}

// New создает планировщик с зарегистрированными задачами
func New(quizService *service.QuizSessionService, statsService *service.StatsService) *Scheduler {
	s := &Scheduler{
		cron:         cron.New(),
		quizService:  quizService,
		statsService: statsService,
	}

	// Дополняет ленивую активацию: зачёт стартует вовремя, даже если
	// к нему никто не обращается
	s.cron.AddFunc("* * * * *", s.activateDueSessions)
	s.cron.AddFunc("*/5 * * * *", s.syncParticipants)
	s.cron.AddFunc("0 3 * * *", s.purgeOldAttempts)

	return s
}

// Start запускает планировщик в фоне
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("[Scheduler] Планировщик запущен")
}

// Stop останавливает планировщик, дожидаясь завершения текущих задач
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Printf("[Scheduler] Планировщик остановлен")
}

func (s *Scheduler) activateDueSessions() {
	activated, err := s.quizService.ActivateDue()
	if err != nil {
		log.Printf("[Scheduler] Ошибка активации зачётов: %v", err)
		return
	}
	if activated > 0 {
		log.Printf("[Scheduler] Активировано зачётов: %d", activated)
	}
}

func (s *Scheduler) syncParticipants() {
	added, err := s.quizService.SyncAllUnended()
	if err != nil {
		log.Printf("[Scheduler] Ошибка синхронизации участников: %v", err)
		return
	}
	if added > 0 {
		log.Printf("[Scheduler] Дозачислено участников: %d", added)
	}
}

func (s *Scheduler) purgeOldAttempts() {
	deleted, err := s.statsService.PurgeOldAttempts()
	if err != nil {
		log.Printf("[Scheduler] Ошибка очистки попыток: %v", err)
		return
	}
	log.Printf("[Scheduler] Удалено устаревших попыток: %d", deleted)
}
