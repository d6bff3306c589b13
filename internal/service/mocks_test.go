package service

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	"github.com/yourusername/testcenter-api/internal/domain/repository"
)

// ============================================================================
// Моки репозиториев для тестирования сервисов
// ============================================================================

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id uint) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*entity.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(username string) (*entity.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) Update(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) List(limit, offset int) ([]entity.User, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

// MockProfileRepository реализует repository.ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Create(profile *entity.UserProfile) error {
	args := m.Called(profile)
	return args.Error(0)
}

func (m *MockProfileRepository) GetByUserID(userID uint) (*entity.UserProfile, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.UserProfile), args.Error(1)
}

func (m *MockProfileRepository) Update(profile *entity.UserProfile) error {
	args := m.Called(profile)
	return args.Error(0)
}

func (m *MockProfileRepository) ListWithDepartmentCode(groupPrefix string) ([]entity.UserProfile, error) {
	args := m.Called(groupPrefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.UserProfile), args.Error(1)
}

// MockTestRepository реализует repository.TestRepository
type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) Create(test *entity.Test) error {
	args := m.Called(test)
	return args.Error(0)
}

func (m *MockTestRepository) GetByID(id uint) (*entity.Test, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Test), args.Error(1)
}

func (m *MockTestRepository) GetByName(name string) (*entity.Test, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Test), args.Error(1)
}

func (m *MockTestRepository) GetWithQuestions(id uint) (*entity.Test, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Test), args.Error(1)
}

func (m *MockTestRepository) Update(test *entity.Test) error {
	args := m.Called(test)
	return args.Error(0)
}

func (m *MockTestRepository) List() ([]entity.Test, map[uint]int64, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]entity.Test), args.Get(1).(map[uint]int64), args.Error(2)
}

func (m *MockTestRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockQuestionRepository реализует repository.QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) Create(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepository) CreateBatch(questions []entity.Question) error {
	args := m.Called(questions)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByID(id uint) (*entity.Question, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) GetByTestID(testID uint) ([]entity.Question, error) {
	args := m.Called(testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) GetByTestIDInRange(testID uint, startNumber, endNumber *int) ([]entity.Question, error) {
	args := m.Called(testID, startNumber, endNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) GetByIDs(ids []uint) ([]entity.Question, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) CountByTestID(testID uint) (int64, error) {
	args := m.Called(testID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuestionRepository) DeleteByTestID(testID uint) error {
	args := m.Called(testID)
	return args.Error(0)
}

// MockAttemptRepository реализует repository.AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(attempt *entity.TestAttempt) error {
	args := m.Called(attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByID(id uint) (*entity.TestAttempt, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetByAttemptID(attemptID string) (*entity.TestAttempt, error) {
	args := m.Called(attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) Update(attempt *entity.TestAttempt) error {
	args := m.Called(attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) ListByUser(userID uint, filters repository.AttemptFilters) ([]entity.TestAttempt, error) {
	args := m.Called(userID, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) DeleteOlderThan(userID uint, attemptTypes []string, cutoff time.Time) (int64, error) {
	args := m.Called(userID, attemptTypes, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttemptRepository) PurgeOlderThan(attemptTypes []string, cutoff time.Time) (int64, error) {
	args := m.Called(attemptTypes, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockQuizSessionRepository реализует repository.QuizSessionRepository
type MockQuizSessionRepository struct {
	mock.Mock
}

func (m *MockQuizSessionRepository) Create(session *entity.QuizSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockQuizSessionRepository) GetByID(id uint) (*entity.QuizSession, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QuizSession), args.Error(1)
}

func (m *MockQuizSessionRepository) Update(session *entity.QuizSession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockQuizSessionRepository) Activate(sessionID uint, manual bool) error {
	args := m.Called(sessionID, manual)
	return args.Error(0)
}

func (m *MockQuizSessionRepository) ListByCreator(creatorID uint) ([]entity.QuizSession, error) {
	args := m.Called(creatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.QuizSession), args.Error(1)
}

func (m *MockQuizSessionRepository) ListForUser(userID uint) ([]entity.QuizSession, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.QuizSession), args.Error(1)
}

func (m *MockQuizSessionRepository) ListUnended(now time.Time) ([]entity.QuizSession, error) {
	args := m.Called(now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.QuizSession), args.Error(1)
}

func (m *MockQuizSessionRepository) ListDueForActivation(now time.Time) ([]entity.QuizSession, error) {
	args := m.Called(now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.QuizSession), args.Error(1)
}

func (m *MockQuizSessionRepository) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockParticipantRepository реализует repository.ParticipantRepository
type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) Create(participant *entity.QuizParticipant) error {
	args := m.Called(participant)
	return args.Error(0)
}

func (m *MockParticipantRepository) GetBySessionAndUser(sessionID, userID uint) (*entity.QuizParticipant, error) {
	args := m.Called(sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QuizParticipant), args.Error(1)
}

func (m *MockParticipantRepository) Update(participant *entity.QuizParticipant) error {
	args := m.Called(participant)
	return args.Error(0)
}

func (m *MockParticipantRepository) ListBySession(sessionID uint) ([]entity.QuizParticipant, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.QuizParticipant), args.Error(1)
}

func (m *MockParticipantRepository) DeleteBySession(sessionID uint) error {
	args := m.Called(sessionID)
	return args.Error(0)
}

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

// MockEmailService реализует EmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendQuizInvitation(toEmail string, session *entity.QuizSession) error {
	args := m.Called(toEmail, session)
	return args.Error(0)
}
