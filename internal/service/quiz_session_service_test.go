package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/testcenter-api/internal/domain/entity"
	"github.com/yourusername/testcenter-api/internal/domain/repository"
	apperrors "github.com/yourusername/testcenter-api/internal/pkg/errors"
)

func newQuizServiceForTest(
	sessionRepo *MockQuizSessionRepository,
	participantRepo *MockParticipantRepository,
	questionRepo *MockQuestionRepository,
	userRepo *MockUserRepository,
	profileRepo *MockProfileRepository,
	email EmailService,
) *QuizSessionService {
	attemptRepo := new(MockAttemptRepository)
	attemptRepo.On("Create", mock.AnythingOfType("*entity.TestAttempt")).Return(nil).Maybe()
	attemptService := NewAttemptService(attemptRepo, new(MockTestRepository), questionRepo, participantRepo)
	profileService := NewProfileService(userRepo, profileRepo)
	return NewQuizSessionService(sessionRepo, participantRepo, questionRepo, userRepo, attemptService, profileService, email)
}

func viewerProfile(userID uint) *entity.UserProfile {
	code := "35У"
	return &entity.UserProfile{UserID: userID, DepartmentCode: &code}
}

func TestQuizSessionService_CreateSession_Success(t *testing.T) {
	// Arrange
	mockSessionRepo := new(MockQuizSessionRepository)
	mockParticipantRepo := new(MockParticipantRepository)
	mockQuestionRepo := new(MockQuestionRepository)
	mockUserRepo := new(MockUserRepository)
	mockProfileRepo := new(MockProfileRepository)

	mockProfileRepo.On("GetByUserID", uint(1)).Return(viewerProfile(1), nil)
	mockQuestionRepo.On("GetByTestID", uint(1)).Return(questionsFixture(), nil)
	mockSessionRepo.On("Create", mock.AnythingOfType("*entity.QuizSession")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.QuizSession).ID = 42
	})
	// Зона видимости создателя: он сам и пользователь 2
	mockProfileRepo.On("ListWithDepartmentCode", "35").Return([]entity.UserProfile{
		*viewerProfile(1),
		{UserID: 2, DepartmentCode: strPtr("35-1")},
	}, nil)
	mockParticipantRepo.On("Create", mock.AnythingOfType("*entity.QuizParticipant")).Return(nil)

	svc := newQuizServiceForTest(mockSessionRepo, mockParticipantRepo, mockQuestionRepo, mockUserRepo, mockProfileRepo, nil)

	input := CreateSessionInput{
		TestID:           1,
		QuestionCount:    2,
		TimeLimitMinutes: 45,
		StartsAt:         time.Now().Add(time.Hour),
		EndsAt:           time.Now().Add(2 * time.Hour),
	}

	// Act
	session, err := svc.CreateSession(1, input)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(42), session.ID)
	assert.Len(t, session.QuestionOrder, 2, "Выборка вопросов замораживается при создании")
	mockParticipantRepo.AssertNumberOfCalls(t, "Create", 2)
}

func strPtr(s string) *string { return &s }

func TestQuizSessionService_CreateSession_NoViewRights(t *testing.T) {
	mockProfileRepo := new(MockProfileRepository)
	code := "35-1" // без маркера «У»
	mockProfileRepo.On("GetByUserID", uint(1)).Return(&entity.UserProfile{UserID: 1, DepartmentCode: &code}, nil)

	svc := newQuizServiceForTest(new(MockQuizSessionRepository), new(MockParticipantRepository), new(MockQuestionRepository), new(MockUserRepository), mockProfileRepo, nil)

	session, err := svc.CreateSession(1, CreateSessionInput{
		TestID: 1, QuestionCount: 2, TimeLimitMinutes: 45,
		StartsAt: time.Now().Add(time.Hour),
		EndsAt:   time.Now().Add(2 * time.Hour),
	})

	assert.Nil(t, session)
	assert.ErrorIs(t, err, apperrors.ErrForbidden, "Создавать зачёты может только держатель права просмотра")
}

func TestQuizSessionService_CreateSession_Validation(t *testing.T) {
	mockProfileRepo := new(MockProfileRepository)
	mockProfileRepo.On("GetByUserID", uint(1)).Return(viewerProfile(1), nil)
	mockQuestionRepo := new(MockQuestionRepository)
	mockQuestionRepo.On("GetByTestID", uint(1)).Return(questionsFixture(), nil)

	svc := newQuizServiceForTest(new(MockQuizSessionRepository), new(MockParticipantRepository), mockQuestionRepo, new(MockUserRepository), mockProfileRepo, nil)

	valid := CreateSessionInput{
		TestID: 1, QuestionCount: 2, TimeLimitMinutes: 45,
		StartsAt: time.Now().Add(time.Hour),
		EndsAt:   time.Now().Add(2 * time.Hour),
	}

	testCases := []struct {
		name   string
		mutate func(in *CreateSessionInput)
	}{
		{"время начала в прошлом", func(in *CreateSessionInput) { in.StartsAt = time.Now().Add(-time.Hour) }},
		{"окончание раньше начала", func(in *CreateSessionInput) { in.EndsAt = in.StartsAt.Add(-time.Minute) }},
		{"ноль вопросов", func(in *CreateSessionInput) { in.QuestionCount = 0 }},
		{"нулевой лимит времени", func(in *CreateSessionInput) { in.TimeLimitMinutes = 0 }},
		{"вопросов больше, чем в банке", func(in *CreateSessionInput) { in.QuestionCount = 50 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)

			session, err := svc.CreateSession(1, input)

			assert.Nil(t, session)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}

func TestQuizSessionService_StartAttempt_AlreadyStarted(t *testing.T) {
	// Arrange
	mockSessionRepo := new(MockQuizSessionRepository)
	mockParticipantRepo := new(MockParticipantRepository)

	now := time.Now()
	session := &entity.QuizSession{
		ID: 3, CreatorID: 1, TestID: 1,
		TimeLimitMinutes: 45,
		StartsAt:         now.Add(-time.Hour),
		EndsAt:           now.Add(time.Hour),
		IsActive:         true,
		QuestionOrder:    entity.UintArray{10, 20},
	}
	mockSessionRepo.On("GetByID", uint(3)).Return(session, nil)

	attemptID := uint(99)
	mockParticipantRepo.On("GetBySessionAndUser", uint(3), uint(5)).Return(&entity.QuizParticipant{
		QuizSessionID: 3, UserID: 5, AttemptID: &attemptID,
	}, nil)

	svc := newQuizServiceForTest(mockSessionRepo, mockParticipantRepo, new(MockQuestionRepository), new(MockUserRepository), new(MockProfileRepository), nil)

	// Act
	attempt, err := svc.StartAttempt(3, 5)

	// Assert
	assert.Nil(t, attempt)
	assert.ErrorIs(t, err, apperrors.ErrConflict, "Повторный старт зачёта невозможен")
}

func TestQuizSessionService_StartAttempt_NotParticipant(t *testing.T) {
	mockSessionRepo := new(MockQuizSessionRepository)
	mockParticipantRepo := new(MockParticipantRepository)

	now := time.Now()
	session := &entity.QuizSession{
		ID: 3, CreatorID: 1, TestID: 1,
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
		IsActive: true,
	}
	mockSessionRepo.On("GetByID", uint(3)).Return(session, nil)
	mockParticipantRepo.On("GetBySessionAndUser", uint(3), uint(5)).Return(nil, apperrors.ErrNotFound)

	svc := newQuizServiceForTest(mockSessionRepo, mockParticipantRepo, new(MockQuestionRepository), new(MockUserRepository), new(MockProfileRepository), nil)

	attempt, err := svc.StartAttempt(3, 5)

	assert.Nil(t, attempt)
	assert.ErrorIs(t, err, apperrors.ErrForbidden, "Не-участник не получает доступ к зачёту")
}

func TestQuizSessionService_StartAttempt_LinksParticipant(t *testing.T) {
	// Arrange
	mockSessionRepo := new(MockQuizSessionRepository)
	mockParticipantRepo := new(MockParticipantRepository)
	mockQuestionRepo := new(MockQuestionRepository)

	now := time.Now()
	session := &entity.QuizSession{
		ID: 3, CreatorID: 1, TestID: 1,
		TimeLimitMinutes: 45,
		StartsAt:         now.Add(-time.Hour),
		EndsAt:           now.Add(time.Hour),
		IsActive:         true,
		QuestionOrder:    entity.UintArray{10, 20},
	}
	mockSessionRepo.On("GetByID", uint(3)).Return(session, nil)

	participant := &entity.QuizParticipant{QuizSessionID: 3, UserID: 5}
	mockParticipantRepo.On("GetBySessionAndUser", uint(3), uint(5)).Return(participant, nil)
	mockParticipantRepo.On("Update", participant).Return(nil)

	svc := newQuizServiceForTest(mockSessionRepo, mockParticipantRepo, mockQuestionRepo, new(MockUserRepository), new(MockProfileRepository), nil)

	// Act
	attempt, err := svc.StartAttempt(3, 5)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.UintArray{10, 20}, attempt.QuestionOrder)
	require.NotNil(t, participant.AttemptID, "Попытка привязывается к записи участника")
}

func TestQuizSessionService_Results_Ranking(t *testing.T) {
	// Arrange: три завершивших (80, 80 раньше, 60) и один не начавший
	mockParticipantRepo := new(MockParticipantRepository)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	earlier := base.Add(-10 * time.Minute)
	s80, s60 := 80.0, 60.0

	completedAttempt := func(score *float64, at time.Time) *entity.TestAttempt {
		return &entity.TestAttempt{Completed: true, Score: score, CompletedAt: &at}
	}

	mockParticipantRepo.On("ListBySession", uint(3)).Return([]entity.QuizParticipant{
		{UserID: 4, User: &entity.User{Username: "petrov"}},
		{UserID: 2, User: &entity.User{Username: "sidorov"}, Attempt: completedAttempt(&s60, base)},
		{UserID: 1, User: &entity.User{Username: "ivanov"}, Attempt: completedAttempt(&s80, base)},
		{UserID: 3, User: &entity.User{Username: "smirnov"}, Attempt: completedAttempt(&s80, earlier)},
	}, nil)

	svc := newQuizServiceForTest(new(MockQuizSessionRepository), mockParticipantRepo, new(MockQuestionRepository), new(MockUserRepository), new(MockProfileRepository), nil)

	// Act
	results, err := svc.Results(3)

	// Assert
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, uint(3), results[0].UserID, "При равном результате выше завершивший раньше")
	assert.Equal(t, uint(1), results[1].UserID)
	assert.Equal(t, uint(2), results[2].UserID)
	assert.Equal(t, uint(4), results[3].UserID, "Не завершившие в конце таблицы")
	assert.False(t, results[3].Completed)
}

func TestQuizSessionService_SyncParticipants_CreatorOnly(t *testing.T) {
	mockSessionRepo := new(MockQuizSessionRepository)
	mockSessionRepo.On("GetByID", uint(3)).Return(&entity.QuizSession{ID: 3, CreatorID: 1}, nil)

	svc := newQuizServiceForTest(mockSessionRepo, new(MockParticipantRepository), new(MockQuestionRepository), new(MockUserRepository), new(MockProfileRepository), nil)

	_, err := svc.SyncParticipants(3, 99)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestQuizSessionService_SyncParticipants_ToleratesDuplicates(t *testing.T) {
	// Arrange: оба пользователя зоны уже зачислены
	mockSessionRepo := new(MockQuizSessionRepository)
	mockParticipantRepo := new(MockParticipantRepository)
	mockProfileRepo := new(MockProfileRepository)

	now := time.Now()
	session := &entity.QuizSession{
		ID: 3, CreatorID: 1,
		StartsAt: now.Add(time.Hour),
		EndsAt:   now.Add(2 * time.Hour),
	}
	mockSessionRepo.On("GetByID", uint(3)).Return(session, nil)
	mockProfileRepo.On("GetByUserID", uint(1)).Return(viewerProfile(1), nil)
	mockProfileRepo.On("ListWithDepartmentCode", "35").Return([]entity.UserProfile{
		*viewerProfile(1),
		{UserID: 2, DepartmentCode: strPtr("35-1")},
	}, nil)
	mockParticipantRepo.On("Create", mock.AnythingOfType("*entity.QuizParticipant")).Return(repository.ErrDuplicateParticipant)

	svc := newQuizServiceForTest(mockSessionRepo, mockParticipantRepo, new(MockQuestionRepository), new(MockUserRepository), mockProfileRepo, nil)

	// Act
	result, err := svc.SyncParticipants(3, 1)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, result.Added, "Уже зачисленные не считаются добавленными")
	assert.Empty(t, result.Errors)
}

func TestQuizSessionService_SyncParticipants_EndedSessionNoop(t *testing.T) {
	mockSessionRepo := new(MockQuizSessionRepository)
	now := time.Now()
	mockSessionRepo.On("GetByID", uint(3)).Return(&entity.QuizSession{
		ID: 3, CreatorID: 1,
		StartsAt: now.Add(-2 * time.Hour),
		EndsAt:   now.Add(-time.Hour),
	}, nil)

	svc := newQuizServiceForTest(mockSessionRepo, new(MockParticipantRepository), new(MockQuestionRepository), new(MockUserRepository), new(MockProfileRepository), nil)

	result, err := svc.SyncParticipants(3, 1)

	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, result, "Завершившийся зачёт не синхронизируется")
}

func TestQuizSessionService_DeleteSession_CreatorOnly(t *testing.T) {
	mockSessionRepo := new(MockQuizSessionRepository)
	mockSessionRepo.On("GetByID", uint(3)).Return(&entity.QuizSession{ID: 3, CreatorID: 1}, nil)

	svc := newQuizServiceForTest(mockSessionRepo, new(MockParticipantRepository), new(MockQuestionRepository), new(MockUserRepository), new(MockProfileRepository), nil)

	err := svc.DeleteSession(3, 99)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestQuizSessionService_DeleteSession_KeepsAttempts(t *testing.T) {
	mockSessionRepo := new(MockQuizSessionRepository)
	mockParticipantRepo := new(MockParticipantRepository)

	mockSessionRepo.On("GetByID", uint(3)).Return(&entity.QuizSession{ID: 3, CreatorID: 1}, nil)
	mockParticipantRepo.On("DeleteBySession", uint(3)).Return(nil)
	mockSessionRepo.On("Delete", uint(3)).Return(nil)

	svc := newQuizServiceForTest(mockSessionRepo, mockParticipantRepo, new(MockQuestionRepository), new(MockUserRepository), new(MockProfileRepository), nil)

	err := svc.DeleteSession(3, 1)

	require.NoError(t, err)
	mockSessionRepo.AssertExpectations(t)
	mockParticipantRepo.AssertExpectations(t)
}

func TestQuizSessionService_ActivateManually(t *testing.T) {
	mockSessionRepo := new(MockQuizSessionRepository)
	now := time.Now()
	session := &entity.QuizSession{
		ID: 3, CreatorID: 1,
		StartsAt: now.Add(time.Hour),
		EndsAt:   now.Add(2 * time.Hour),
	}
	mockSessionRepo.On("GetByID", uint(3)).Return(session, nil)
	mockSessionRepo.On("Activate", uint(3), true).Return(nil)

	svc := newQuizServiceForTest(mockSessionRepo, new(MockParticipantRepository), new(MockQuestionRepository), new(MockUserRepository), new(MockProfileRepository), nil)

	activated, err := svc.ActivateManually(3, 1)

	require.NoError(t, err)
	assert.True(t, activated.IsActive)
	assert.True(t, activated.ManuallyActivated)
}

func TestQuizSessionService_ActivateManually_EndedSession(t *testing.T) {
	mockSessionRepo := new(MockQuizSessionRepository)
	now := time.Now()
	mockSessionRepo.On("GetByID", uint(3)).Return(&entity.QuizSession{
		ID: 3, CreatorID: 1,
		StartsAt: now.Add(-2 * time.Hour),
		EndsAt:   now.Add(-time.Hour),
	}, nil)

	svc := newQuizServiceForTest(mockSessionRepo, new(MockParticipantRepository), new(MockQuestionRepository), new(MockUserRepository), new(MockProfileRepository), nil)

	activated, err := svc.ActivateManually(3, 1)

	assert.Nil(t, activated)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestQuizSessionService_GetSession_LazyActivation(t *testing.T) {
	// Сессия со временем начала в прошлом активируется при чтении
	mockSessionRepo := new(MockQuizSessionRepository)
	now := time.Now()
	session := &entity.QuizSession{
		ID: 3, CreatorID: 1,
		StartsAt: now.Add(-time.Minute),
		EndsAt:   now.Add(time.Hour),
	}
	mockSessionRepo.On("GetByID", uint(3)).Return(session, nil)
	mockSessionRepo.On("Activate", uint(3), false).Return(nil)

	svc := newQuizServiceForTest(mockSessionRepo, new(MockParticipantRepository), new(MockQuestionRepository), new(MockUserRepository), new(MockProfileRepository), nil)

	got, err := svc.GetSession(3)

	require.NoError(t, err)
	assert.True(t, got.IsActive)
	mockSessionRepo.AssertExpectations(t)
}
