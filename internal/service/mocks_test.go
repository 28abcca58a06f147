package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	"github.com/yourusername/academy-bot/internal/llm"
)

// ============================================================================
// Моки репозиториев
// ============================================================================

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) TouchActivity(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserRepository) ListAll(ctx context.Context) ([]entity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

// MockMaterialRepository реализует repository.MaterialRepository
type MockMaterialRepository struct {
	mock.Mock
}

func (m *MockMaterialRepository) Create(ctx context.Context, material *entity.Material) error {
	args := m.Called(ctx, material)
	return args.Error(0)
}

func (m *MockMaterialRepository) GetByID(ctx context.Context, id uint) (*entity.Material, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Material), args.Error(1)
}

func (m *MockMaterialRepository) List(ctx context.Context, level entity.Level) ([]entity.Material, error) {
	args := m.Called(ctx, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Material), args.Error(1)
}

func (m *MockMaterialRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMaterialRepository) UpdateFields(ctx context.Context, id uint, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockMaterialRepository) AppendBody(ctx context.Context, id uint, text string) error {
	args := m.Called(ctx, id, text)
	return args.Error(0)
}

func (m *MockMaterialRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockQuestionRepository реализует repository.QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) CreateWithAnswers(ctx context.Context, question *entity.Question) error {
	args := m.Called(ctx, question)
	return args.Error(0)
}

func (m *MockQuestionRepository) AddAnswer(ctx context.Context, answer *entity.Answer) error {
	args := m.Called(ctx, answer)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByMaterialID(ctx context.Context, materialID uint) ([]entity.Question, error) {
	args := m.Called(ctx, materialID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) CountByMaterialID(ctx context.Context, materialID uint) (int64, error) {
	args := m.Called(ctx, materialID)
	return args.Get(0).(int64), args.Error(1)
}

// MockProgressRepository реализует repository.ProgressRepository
type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) MarkStudied(ctx context.Context, userID int64, materialID uint) (bool, error) {
	args := m.Called(ctx, userID, materialID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProgressRepository) RecordAttempt(ctx context.Context, result *entity.TestResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockProgressRepository) StudiedMaterialIDs(ctx context.Context, userID int64) ([]uint, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

func (m *MockProgressRepository) CountStudied(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProgressRepository) RecentStudied(ctx context.Context, userID int64, limit int) ([]entity.StudiedMaterialView, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.StudiedMaterialView), args.Error(1)
}

func (m *MockProgressRepository) ResultsByUser(ctx context.Context, userID int64) ([]entity.TestResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.TestResult), args.Error(1)
}

func (m *MockProgressRepository) RecentResults(ctx context.Context, userID int64, limit int) ([]entity.TestResultView, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.TestResultView), args.Error(1)
}

func (m *MockProgressRepository) AllResults(ctx context.Context) ([]entity.TestResultView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.TestResultView), args.Error(1)
}

// MockRatingRepository реализует repository.RatingRepository
type MockRatingRepository struct {
	mock.Mock
}

func (m *MockRatingRepository) Upsert(ctx context.Context, rating *entity.Rating) error {
	args := m.Called(ctx, rating)
	return args.Error(0)
}

func (m *MockRatingRepository) RankCandidates(ctx context.Context) ([]entity.RankCandidate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.RankCandidate), args.Error(1)
}

func (m *MockRatingRepository) SaveRanks(ctx context.Context, ranks map[int64]int) error {
	args := m.Called(ctx, ranks)
	return args.Error(0)
}

func (m *MockRatingRepository) GetByUserID(ctx context.Context, userID int64) (*entity.LeaderboardEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LeaderboardEntry), args.Error(1)
}

func (m *MockRatingRepository) GetLeaderboard(ctx context.Context, limit, offset int) ([]entity.LeaderboardEntry, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.LeaderboardEntry), args.Get(1).(int64), args.Error(2)
}

// MockAIRepository реализует repository.AIRepository
type MockAIRepository struct {
	mock.Mock
}

func (m *MockAIRepository) LogMessage(ctx context.Context, msg *entity.AIMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockAIRepository) History(ctx context.Context, userID int64, limit int) ([]entity.AIMessage, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AIMessage), args.Error(1)
}

func (m *MockAIRepository) GetSummary(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockAIRepository) UpsertSummary(ctx context.Context, userID int64, summary string) error {
	args := m.Called(ctx, userID, summary)
	return args.Error(0)
}

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Error(1)
}

// ============================================================================
// Моки сервисов
// ============================================================================

// MockRatingUpdater реализует RatingUpdater
type MockRatingUpdater struct {
	mock.Mock
}

func (m *MockRatingUpdater) RecomputeUser(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockChatCompleter реализует ChatCompleter
type MockChatCompleter struct {
	mock.Mock
}

func (m *MockChatCompleter) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}
