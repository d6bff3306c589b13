package service

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	"github.com/yourusername/testcenter-api/internal/domain/repository"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
)

// AttemptService управляет жизненным циклом попыток прохождения тестов:
// создание, запись ответов, подсчет результата, сброс.
type AttemptService struct {
	attemptRepo     repository.AttemptRepository
	testRepo        repository.TestRepository
	questionRepo    repository.QuestionRepository
	participantRepo repository.ParticipantRepository
}

// NewAttemptService создает новый сервис попыток
func NewAttemptService(
	attemptRepo repository.AttemptRepository,
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	participantRepo repository.ParticipantRepository,
) *AttemptService {
	return &AttemptService{
		attemptRepo:     attemptRepo,
		testRepo:        testRepo,
		questionRepo:    questionRepo,
		participantRepo: participantRepo,
	}
}

// StartNormal начинает обычную попытку по непрерывному диапазону номеров
// вопросов. Обе границы включительны и необязательны.
func (s *AttemptService) StartNormal(userID, testID uint, startQuestion, endQuestion *int) (*entity.TestAttempt, error) {
	if _, err := s.testRepo.GetByID(testID); err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.GetByTestIDInRange(testID, startQuestion, endQuestion)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions in the selected range", apperrors.ErrValidation)
	}

	now := time.Now()
	firstID := questions[0].ID
	attempt := &entity.TestAttempt{
		UserID:            userID,
		TestID:            testID,
		AttemptType:       entity.AttemptTypeNormal,
		CurrentQuestionID: &firstID,
		Answers:           entity.AnswerMap{},
		StartQuestion:     startQuestion,
		EndQuestion:       endQuestion,
		StartTime:         &now,
	}

	if err := s.attemptRepo.Create(attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}
	return attempt, nil
}

// StartExpress начинает экспресс-попытку: равномерная случайная выборка
// без повторов размером min(requested, available), после выборки вопросы
// переупорядочиваются по возрастанию номера и порядок фиксируется.
func (s *AttemptService) StartExpress(userID, testID uint, requestedCount int) (*entity.TestAttempt, error) {
	if requestedCount < 1 {
		return nil, fmt.Errorf("%w: question count must be positive", apperrors.ErrValidation)
	}
	if _, err := s.testRepo.GetByID(testID); err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.GetByTestID(testID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: test has no questions", apperrors.ErrValidation)
	}

	sampled := sampleQuestions(questions, requestedCount)

	order := make(entity.UintArray, len(sampled))
	for i := range sampled {
		order[i] = sampled[i].ID
	}

	now := time.Now()
	firstID := order[0]
	attempt := &entity.TestAttempt{
		UserID:            userID,
		TestID:            testID,
		AttemptType:       entity.AttemptTypeExpress,
		CurrentQuestionID: &firstID,
		Answers:           entity.AnswerMap{},
		QuestionOrder:     order,
		StartTime:         &now,
	}

	if err := s.attemptRepo.Create(attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}
	return attempt, nil
}

// sampleQuestions возвращает случайную выборку без повторов размером
// min(count, len(questions)), отсортированную по номеру вопроса
func sampleQuestions(questions []entity.Question, count int) []entity.Question {
	if count > len(questions) {
		count = len(questions)
	}

	perm := rand.Perm(len(questions))
	sampled := make([]entity.Question, 0, count)
	for _, idx := range perm[:count] {
		sampled = append(sampled, questions[idx])
	}

	sort.Slice(sampled, func(i, j int) bool {
		return sampled[i].QuestionNumber < sampled[j].QuestionNumber
	})
	return sampled
}

// StartQuiz начинает личную попытку участника зачёта. Порядок вопросов
// берется из сессии (одинаков для всех участников), дедлайн персональный:
// now + лимит сессии.
func (s *AttemptService) StartQuiz(userID uint, session *entity.QuizSession) (*entity.TestAttempt, error) {
	if len(session.QuestionOrder) == 0 {
		return nil, fmt.Errorf("%w: quiz session has no questions", apperrors.ErrValidation)
	}

	now := time.Now()
	deadline := now.Add(time.Duration(session.TimeLimitMinutes) * time.Minute)
	firstID := session.QuestionOrder[0]
	sessionID := session.ID

	attempt := &entity.TestAttempt{
		UserID:            userID,
		TestID:            session.TestID,
		AttemptType:       entity.AttemptTypeQuiz,
		CurrentQuestionID: &firstID,
		Answers:           entity.AnswerMap{},
		QuestionOrder:     append(entity.UintArray{}, session.QuestionOrder...),
		TimeLimitMinutes:  session.TimeLimitMinutes,
		StartTime:         &now,
		EndTime:           &deadline,
		QuizSessionID:     &sessionID,
	}

	if err := s.attemptRepo.Create(attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}
	return attempt, nil
}

// AttemptState описывает текущее положение в попытке
type AttemptState struct {
	Attempt         *entity.TestAttempt
	CurrentQuestion *entity.Question
	QuestionIndex   int // порядковый номер текущего вопроса, с 1
	TotalQuestions  int
	TimeExpired     bool
	RemainingSec    *float64
}

// GetState возвращает состояние попытки. Проверка дедлайна выполняется
// раньше всего остального: просроченная попытка принудительно завершается
// по уже записанным ответам.
func (s *AttemptService) GetState(attemptID string, userID uint) (*AttemptState, error) {
	attempt, err := s.attemptRepo.GetByAttemptID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fmt.Errorf("%w: attempt belongs to another user", apperrors.ErrForbidden)
	}

	now := time.Now()
	expired := false
	if !attempt.Completed && attempt.IsTimeExpired(now) {
		if err := s.finalize(attempt, now); err != nil {
			return nil, err
		}
		expired = true
	}

	questions, err := s.questionsFor(attempt)
	if err != nil {
		return nil, err
	}

	state := &AttemptState{
		Attempt:        attempt,
		TotalQuestions: len(questions),
		TimeExpired:    expired,
		RemainingSec:   attempt.RemainingSeconds(now),
	}

	if attempt.Completed || attempt.CurrentQuestionID == nil {
		return state, nil
	}

	for i := range questions {
		if questions[i].ID == *attempt.CurrentQuestionID {
			state.CurrentQuestion = &questions[i]
			state.QuestionIndex = i + 1
			break
		}
	}
	// Текущий вопрос выпал из охвата (например, вопросы переимпортированы) —
	// начинаем с первого.
	if state.CurrentQuestion == nil && len(questions) > 0 {
		state.CurrentQuestion = &questions[0]
		state.QuestionIndex = 1
		firstID := questions[0].ID
		attempt.CurrentQuestionID = &firstID
		if err := s.attemptRepo.Update(attempt); err != nil {
			return nil, err
		}
	}

	return state, nil
}

// AnswerResult описывает исход записи одного ответа
type AnswerResult struct {
	IsCorrect      bool
	CorrectAnswers []int
	NextQuestionID *uint
	Completed      bool
	Attempt        *entity.TestAttempt
}

// Answer записывает ответ на текущий вопрос и продвигает попытку дальше
// по зафиксированному порядку. Для зачётных попыток сначала проверяется
// дедлайн: просроченная попытка завершается по имеющимся ответам, а
// вызывающему возвращается apperrors.ErrTimeExpired.
func (s *AttemptService) Answer(attemptID string, userID uint, questionID uint, selected []int) (*AnswerResult, error) {
	attempt, err := s.attemptRepo.GetByAttemptID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fmt.Errorf("%w: attempt belongs to another user", apperrors.ErrForbidden)
	}
	if attempt.Completed {
		return nil, fmt.Errorf("%w: attempt is already completed", apperrors.ErrConflict)
	}

	now := time.Now()
	if attempt.IsTimeExpired(now) {
		if err := s.finalize(attempt, now); err != nil {
			return nil, err
		}
		return &AnswerResult{Completed: true, Attempt: attempt}, apperrors.ErrTimeExpired
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: at least one answer option is required", apperrors.ErrValidation)
	}

	question, err := s.questionRepo.GetByID(questionID)
	if err != nil {
		return nil, err
	}
	if question.TestID != attempt.TestID {
		return nil, fmt.Errorf("%w: question does not belong to the attempt's test", apperrors.ErrValidation)
	}

	attempt.Answers.Set(questionID, selected)

	result := &AnswerResult{
		IsCorrect:      question.IsCorrectSelection(selected),
		CorrectAnswers: sortedCorrectSet(question),
		Attempt:        attempt,
	}

	questions, err := s.questionsFor(attempt)
	if err != nil {
		return nil, err
	}

	var next *entity.Question
	for i := range questions {
		if questions[i].ID == questionID && i+1 < len(questions) {
			next = &questions[i+1]
			break
		}
	}

	if next != nil {
		nextID := next.ID
		attempt.CurrentQuestionID = &nextID
		result.NextQuestionID = &nextID
		if err := s.attemptRepo.Update(attempt); err != nil {
			return nil, err
		}
		return result, nil
	}

	// Вопросов больше нет — завершаем попытку
	if err := s.finalize(attempt, now); err != nil {
		return nil, err
	}
	result.Completed = true
	return result, nil
}

// Reset возвращает попытку в состояние in_progress: ответы, результат и
// флаг завершения очищаются, идентификатор попытки сохраняется.
// Для зачётных попыток сброс запрещен.
func (s *AttemptService) Reset(attemptID string, userID uint) (*entity.TestAttempt, error) {
	attempt, err := s.attemptRepo.GetByAttemptID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fmt.Errorf("%w: attempt belongs to another user", apperrors.ErrForbidden)
	}
	if attempt.IsQuiz() {
		return nil, fmt.Errorf("%w: quiz attempts cannot be reset", apperrors.ErrForbidden)
	}

	questions, err := s.questionsFor(attempt)
	if err != nil {
		return nil, err
	}

	attempt.Answers = entity.AnswerMap{}
	attempt.Completed = false
	attempt.Score = nil
	attempt.CorrectAnswersCount = nil
	attempt.TotalQuestionsCount = nil
	attempt.CompletedAt = nil
	if len(questions) > 0 {
		firstID := questions[0].ID
		attempt.CurrentQuestionID = &firstID
	} else {
		attempt.CurrentQuestionID = nil
	}

	if err := s.attemptRepo.Update(attempt); err != nil {
		return nil, fmt.Errorf("failed to reset attempt: %w", err)
	}
	return attempt, nil
}

// ListUserAttempts возвращает попытки пользователя
func (s *AttemptService) ListUserAttempts(userID uint, filters repository.AttemptFilters) ([]entity.TestAttempt, error) {
	return s.attemptRepo.ListByUser(userID, filters)
}

// GetResults возвращает завершённую попытку вместе с её вопросами для
// страницы результатов. Для уже завершённой попытки сохранённые
// score/counts переиспользуются, пересчёта не происходит.
func (s *AttemptService) GetResults(attemptID string, userID uint) (*entity.TestAttempt, []entity.Question, error) {
	attempt, err := s.attemptRepo.GetByAttemptID(attemptID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.UserID != userID {
		return nil, nil, fmt.Errorf("%w: attempt belongs to another user", apperrors.ErrForbidden)
	}

	if !attempt.Completed && attempt.IsTimeExpired(time.Now()) {
		if err := s.finalize(attempt, time.Now()); err != nil {
			return nil, nil, err
		}
	}

	questions, err := s.questionsFor(attempt)
	if err != nil {
		return nil, nil, err
	}
	return attempt, questions, nil
}

// questionsFor возвращает упорядоченный список вопросов попытки:
// явный зафиксированный порядок, если он есть, иначе диапазон номеров.
func (s *AttemptService) questionsFor(attempt *entity.TestAttempt) ([]entity.Question, error) {
	if len(attempt.QuestionOrder) > 0 {
		return s.questionRepo.GetByIDs(attempt.QuestionOrder)
	}
	return s.questionRepo.GetByTestIDInRange(attempt.TestID, attempt.StartQuestion, attempt.EndQuestion)
}

// finalize завершает попытку: подсчитывает результат по записанным
// ответам и проставляет отметку завершения. Для участника зачёта
// зеркалирует время завершения в запись участника.
func (s *AttemptService) finalize(attempt *entity.TestAttempt, now time.Time) error {
	if attempt.Completed {
		return nil
	}

	questions, err := s.questionsFor(attempt)
	if err != nil {
		return err
	}

	attempt.CalculateScore(questions)
	attempt.Completed = true
	attempt.CompletedAt = &now
	attempt.CurrentQuestionID = nil

	if err := s.attemptRepo.Update(attempt); err != nil {
		return fmt.Errorf("failed to finalize attempt: %w", err)
	}

	if attempt.QuizSessionID != nil && s.participantRepo != nil {
		if err := s.mirrorParticipantCompletion(attempt, now); err != nil {
			// Зеркалирование не должно ломать завершение попытки
			log.Printf("[AttemptService] Не удалось обновить участника зачёта %d: %v", *attempt.QuizSessionID, err)
		}
	}

	return nil
}

func (s *AttemptService) mirrorParticipantCompletion(attempt *entity.TestAttempt, now time.Time) error {
	participant, err := s.participantRepo.GetBySessionAndUser(*attempt.QuizSessionID, attempt.UserID)
	if err != nil {
		return err
	}
	if participant.CompletedAt != nil {
		return nil
	}
	completedAt := now
	if attempt.CompletedAt != nil {
		completedAt = *attempt.CompletedAt
	}
	participant.CompletedAt = &completedAt
	return s.participantRepo.Update(participant)
}

// sortedCorrectSet возвращает номера правильных вариантов по возрастанию
func sortedCorrectSet(q *entity.Question) []int {
	set := q.CorrectSet()
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
