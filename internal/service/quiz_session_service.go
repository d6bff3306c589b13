package service

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	"github.com/yourusername/testcenter-api/internal/domain/repository"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
)

// QuizSessionService управляет жизненным циклом сессий зачётов:
// создание с замороженным порядком вопросов, активация, зачисление
// участников, личные попытки и итоговая таблица.
type QuizSessionService struct {
	sessionRepo     repository.QuizSessionRepository
	participantRepo repository.ParticipantRepository
	questionRepo    repository.QuestionRepository
	userRepo        repository.UserRepository
	attemptService  *AttemptService
	profileService  *ProfileService
	emailService    EmailService
}

// NewQuizSessionService создает новый сервис сессий зачётов
func NewQuizSessionService(
	sessionRepo repository.QuizSessionRepository,
	participantRepo repository.ParticipantRepository,
	questionRepo repository.QuestionRepository,
	userRepo repository.UserRepository,
	attemptService *AttemptService,
	profileService *ProfileService,
	emailService EmailService,
) *QuizSessionService {
	return &QuizSessionService{
		sessionRepo:     sessionRepo,
		participantRepo: participantRepo,
		questionRepo:    questionRepo,
		userRepo:        userRepo,
		attemptService:  attemptService,
		profileService:  profileService,
		emailService:    emailService,
	}
}

// CreateSessionInput содержит параметры создания зачёта
type CreateSessionInput struct {
	TestID           uint
	QuestionCount    int
	TimeLimitMinutes int
	StartsAt         time.Time
	EndsAt           time.Time
}

// CreateSession создает зачёт. Случайная выборка вопросов делается один
// раз и замораживается: все участники видят одни и те же вопросы в одном
// порядке. Создатель и все пользователи его зоны видимости зачисляются
// сразу.
func (s *QuizSessionService) CreateSession(creatorID uint, input CreateSessionInput) (*entity.QuizSession, error) {
	creatorProfile, err := s.profileService.GetProfile(creatorID)
	if err != nil {
		return nil, err
	}
	if !creatorProfile.CanViewOtherResults() {
		return nil, fmt.Errorf("%w: department code does not grant quiz creation rights", apperrors.ErrForbidden)
	}

	now := time.Now()
	if input.StartsAt.Before(now) {
		return nil, fmt.Errorf("%w: start time must not be in the past", apperrors.ErrValidation)
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, fmt.Errorf("%w: end time must be after start time", apperrors.ErrValidation)
	}
	if input.QuestionCount < 1 {
		return nil, fmt.Errorf("%w: question count must be positive", apperrors.ErrValidation)
	}
	if input.TimeLimitMinutes < 1 {
		return nil, fmt.Errorf("%w: time limit must be positive", apperrors.ErrValidation)
	}

	questions, err := s.questionRepo.GetByTestID(input.TestID)
	if err != nil {
		return nil, err
	}
	if input.QuestionCount > len(questions) {
		return nil, fmt.Errorf("%w: test has only %d questions", apperrors.ErrValidation, len(questions))
	}

	sampled := sampleQuestions(questions, input.QuestionCount)
	order := make(entity.UintArray, len(sampled))
	for i := range sampled {
		order[i] = sampled[i].ID
	}

	session := &entity.QuizSession{
		CreatorID:        creatorID,
		TestID:           input.TestID,
		QuestionCount:    input.QuestionCount,
		TimeLimitMinutes: input.TimeLimitMinutes,
		StartsAt:         input.StartsAt,
		EndsAt:           input.EndsAt,
		QuestionOrder:    order,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create quiz session: %w", err)
	}

	sync := s.enrollScope(session)
	log.Printf("[QuizSessionService] Зачёт #%d создан, зачислено участников: %d", session.ID, sync.Added)

	return session, nil
}

// SyncResult описывает исход синхронизации участников
type SyncResult struct {
	Added  int      `json:"added"`
	Errors []string `json:"errors,omitempty"`
}

// enrollScope зачисляет создателя и его зону видимости.
// Ошибки по отдельным пользователям собираются, а не прерывают зачисление.
func (s *QuizSessionService) enrollScope(session *entity.QuizSession) SyncResult {
	var result SyncResult

	ids, err := s.profileService.VisibleUserIDs(session.CreatorID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("resolve scope: %v", err))
		ids = []uint{session.CreatorID}
	}

	now := time.Now()
	for _, userID := range ids {
		participant := &entity.QuizParticipant{
			QuizSessionID: session.ID,
			UserID:        userID,
			JoinedAt:      now,
		}
		if err := s.participantRepo.Create(participant); err != nil {
			if errors.Is(err, repository.ErrDuplicateParticipant) {
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("user %d: %v", userID, err))
			continue
		}
		result.Added++
		s.notifyParticipant(session, userID)
	}

	return result
}

// notifyParticipant отправляет приглашение в зачёт. Отправка best-effort:
// сбой логируется и не влияет на зачисление.
func (s *QuizSessionService) notifyParticipant(session *entity.QuizSession, userID uint) {
	if s.emailService == nil {
		return
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return
	}
	if err := s.emailService.SendQuizInvitation(user.Email, session); err != nil {
		log.Printf("[QuizSessionService] Не удалось отправить приглашение user=%d session=%d: %v", userID, session.ID, err)
	}
}

// SyncParticipants дозачисляет пользователей, появившихся в зоне
// видимости создателя после создания зачёта. Доступно только
// создателю; участники никогда не удаляются. Возвращает явный
// результат вместо проглатывания ошибок.
func (s *QuizSessionService) SyncParticipants(sessionID, requesterID uint) (SyncResult, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return SyncResult{}, err
	}
	if session.CreatorID != requesterID {
		return SyncResult{}, fmt.Errorf("%w: only the creator can sync participants", apperrors.ErrForbidden)
	}
	if session.IsEnded(time.Now()) {
		return SyncResult{}, nil
	}
	return s.enrollScope(session), nil
}

// GetSession возвращает сессию, лениво активируя её, если время начала
// уже наступило. Ленивая проверка при каждом обращении дополняет
// периодическую активацию планировщиком.
func (s *QuizSessionService) GetSession(sessionID uint) (*entity.QuizSession, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}

	if session.ShouldActivate(time.Now()) {
		if err := s.sessionRepo.Activate(session.ID, false); err != nil {
			return nil, err
		}
		session.IsActive = true
	}

	return session, nil
}

// ActivateManually принудительно активирует зачёт до наступления
// времени начала. Доступно только создателю. Завершившийся зачёт
// активировать нельзя.
func (s *QuizSessionService) ActivateManually(sessionID, userID uint) (*entity.QuizSession, error) {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.CreatorID != userID {
		return nil, fmt.Errorf("%w: only the creator can activate the session", apperrors.ErrForbidden)
	}
	if session.IsEnded(time.Now()) {
		return nil, fmt.Errorf("%w: session has already ended", apperrors.ErrConflict)
	}

	if err := s.sessionRepo.Activate(sessionID, true); err != nil {
		return nil, err
	}
	session.IsActive = true
	session.ManuallyActivated = true
	return session, nil
}

// ActivateDue активирует все зачёты, чьё время начала наступило.
// Вызывается планировщиком; возвращает количество активированных.
func (s *QuizSessionService) ActivateDue() (int, error) {
	due, err := s.sessionRepo.ListDueForActivation(time.Now())
	if err != nil {
		return 0, err
	}

	activated := 0
	for i := range due {
		if err := s.sessionRepo.Activate(due[i].ID, false); err != nil {
			log.Printf("[QuizSessionService] Не удалось активировать зачёт #%d: %v", due[i].ID, err)
			continue
		}
		activated++
	}
	return activated, nil
}

// StartAttempt начинает личную попытку участника. Допускается только
// пока зачёт активен и его окно не закрылось: личный лимит времени
// не продлевает окно сессии.
func (s *QuizSessionService) StartAttempt(sessionID, userID uint) (*entity.TestAttempt, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	participant, err := s.participantRepo.GetBySessionAndUser(sessionID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: user is not a participant of this session", apperrors.ErrForbidden)
		}
		return nil, err
	}

	if !session.IsOpenForAttempts(time.Now()) {
		return nil, fmt.Errorf("%w: session is not open for attempts", apperrors.ErrConflict)
	}
	if participant.AttemptID != nil {
		return nil, fmt.Errorf("%w: participant has already started the quiz", apperrors.ErrConflict)
	}

	attempt, err := s.attemptService.StartQuiz(userID, session)
	if err != nil {
		return nil, err
	}

	participant.AttemptID = &attempt.ID
	if err := s.participantRepo.Update(participant); err != nil {
		return nil, fmt.Errorf("failed to link attempt to participant: %w", err)
	}

	return attempt, nil
}

// ParticipantResult — строка итоговой таблицы зачёта
type ParticipantResult struct {
	UserID      uint       `json:"user_id"`
	Username    string     `json:"username"`
	FullName    string     `json:"full_name"`
	Completed   bool       `json:"completed"`
	Score       *float64   `json:"score,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Results возвращает отранжированную итоговую таблицу: завершившие
// раньше незавершивших, среди завершивших — по убыванию результата,
// при равных результатах выше тот, кто завершил раньше.
func (s *QuizSessionService) Results(sessionID uint) ([]ParticipantResult, error) {
	participants, err := s.participantRepo.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}

	results := make([]ParticipantResult, 0, len(participants))
	for i := range participants {
		p := participants[i]
		row := ParticipantResult{UserID: p.UserID}
		if p.User != nil {
			row.Username = p.User.Username
			if p.User.Profile != nil {
				row.FullName = p.User.Profile.FullName()
			}
		}
		if p.Attempt != nil && p.Attempt.Completed {
			row.Completed = true
			row.Score = p.Attempt.Score
			row.CompletedAt = p.CompletedAt
			if row.CompletedAt == nil {
				row.CompletedAt = p.Attempt.CompletedAt
			}
		}
		results = append(results, row)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Completed != b.Completed {
			return a.Completed
		}
		if !a.Completed {
			return false
		}
		as, bs := 0.0, 0.0
		if a.Score != nil {
			as = *a.Score
		}
		if b.Score != nil {
			bs = *b.Score
		}
		if as != bs {
			return as > bs
		}
		if a.CompletedAt != nil && b.CompletedAt != nil {
			return a.CompletedAt.Before(*b.CompletedAt)
		}
		return false
	})

	return results, nil
}

// DeleteSession удаляет зачёт. Доступно только создателю. Записи
// участников удаляются, но история попыток сохраняется: попытки
// остаются видимыми в личной статистике.
func (s *QuizSessionService) DeleteSession(sessionID, userID uint) error {
	session, err := s.sessionRepo.GetByID(sessionID)
	if err != nil {
		return err
	}
	if session.CreatorID != userID {
		return fmt.Errorf("%w: only the creator can delete the session", apperrors.ErrForbidden)
	}

	if err := s.participantRepo.DeleteBySession(sessionID); err != nil {
		return fmt.Errorf("failed to delete participants: %w", err)
	}
	return s.sessionRepo.Delete(sessionID)
}

// ListForUser возвращает зачёты, в которых пользователь участвует
func (s *QuizSessionService) ListForUser(userID uint) ([]entity.QuizSession, error) {
	return s.sessionRepo.ListForUser(userID)
}

// ListByCreator возвращает зачёты, созданные пользователем
func (s *QuizSessionService) ListByCreator(userID uint) ([]entity.QuizSession, error) {
	return s.sessionRepo.ListByCreator(userID)
}

// SyncAllUnended дозачисляет участников во все незакончившиеся зачёты.
// Вызывается планировщиком.
func (s *QuizSessionService) SyncAllUnended() (added int, err error) {
	sessions, err := s.sessionRepo.ListUnended(time.Now())
	if err != nil {
		return 0, err
	}

	for i := range sessions {
		result := s.enrollScope(&sessions[i])
		added += result.Added
		for _, msg := range result.Errors {
			log.Printf("[QuizSessionService] Синхронизация зачёта #%d: %s", sessions[i].ID, msg)
		}
	}
	return added, nil
}
