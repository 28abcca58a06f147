package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
)

type progressFixture struct {
	progress  *MockProgressRepository
	materials *MockMaterialRepository
	users     *MockUserRepository
	ratings   *MockRatingRepository
	updater   *MockRatingUpdater
	service   *ProgressService
}

func newProgressFixture() *progressFixture {
	f := &progressFixture{
		progress:  new(MockProgressRepository),
		materials: new(MockMaterialRepository),
		users:     new(MockUserRepository),
		ratings:   new(MockRatingRepository),
		updater:   new(MockRatingUpdater),
	}
	f.service = NewProgressService(f.progress, f.materials, f.users, f.ratings, f.updater, logger.Nop())
	return f
}

func TestProgressService_RecordQuizResult(t *testing.T) {
	// Arrange
	f := newProgressFixture()
	ctx := context.Background()
	result := &entity.TestResult{UserID: 1, MaterialID: 2, CorrectCount: 3, TotalCount: 5, Percentage: 60}
	f.progress.On("RecordAttempt", ctx, result).Return(nil).Once()
	f.updater.On("RecomputeUser", ctx, int64(1)).Return(nil).Once()

	// Act
	err := f.service.RecordQuizResult(ctx, result)

	// Assert
	require.NoError(t, err)
	f.progress.AssertExpectations(t)
	f.updater.AssertExpectations(t)
}

func TestProgressService_RecordQuizResultRatingFailureIsNotReturned(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()
	result := &entity.TestResult{UserID: 1, MaterialID: 2, CorrectCount: 1, TotalCount: 1, Percentage: 100}
	f.progress.On("RecordAttempt", ctx, result).Return(nil)
	f.updater.On("RecomputeUser", ctx, int64(1)).Return(errors.New("db busy"))

	err := f.service.RecordQuizResult(ctx, result)
	assert.NoError(t, err, "попытка уже сохранена, повторять Finish нельзя")
}

func TestProgressService_RecordQuizResultFailure(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()
	result := &entity.TestResult{UserID: 1, MaterialID: 2, CorrectCount: 1, TotalCount: 2, Percentage: 50}
	f.progress.On("RecordAttempt", ctx, result).Return(errors.New("tx failed"))

	err := f.service.RecordQuizResult(ctx, result)
	assert.Error(t, err)
	f.updater.AssertNotCalled(t, "RecomputeUser", mock.Anything, mock.Anything)

	bad := &entity.TestResult{UserID: 1, CorrectCount: 3, TotalCount: 2}
	assert.Error(t, f.service.RecordQuizResult(ctx, bad), "correct_count не может превышать total_count")
}

func TestProgressService_MarkStudiedRecomputesOnlyFirstTime(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()
	f.progress.On("MarkStudied", ctx, int64(1), uint(5)).Return(true, nil).Once()
	f.progress.On("MarkStudied", ctx, int64(1), uint(5)).Return(false, nil).Once()
	f.updater.On("RecomputeUser", ctx, int64(1)).Return(nil).Once()

	created, err := f.service.MarkStudied(ctx, 1, 5)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.service.MarkStudied(ctx, 1, 5)
	require.NoError(t, err)
	assert.False(t, created)

	f.updater.AssertNumberOfCalls(t, "RecomputeUser", 1)
}

func TestProgressService_Stats(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()
	user := &entity.User{ID: 1, Name: "Аня"}
	f.users.On("GetByID", ctx, int64(1)).Return(user, nil)
	f.progress.On("CountStudied", ctx, int64(1)).Return(int64(5), nil)
	f.materials.On("Count", ctx).Return(int64(4), nil)
	f.ratings.On("GetByUserID", ctx, int64(1)).Return(nil, apperrors.ErrNotFound)
	f.progress.On("RecentResults", ctx, int64(1), 3).Return([]entity.TestResultView{}, nil)

	stats, err := f.service.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Studied)
	assert.Equal(t, 4, stats.TotalMaterials)
	assert.Equal(t, 100.0, stats.Progress, "прогресс не превышает 100% после удаления материалов")
	assert.Equal(t, 0, stats.Rating.Rank)
}

func TestProgressService_StudiedSet(t *testing.T) {
	f := newProgressFixture()
	ctx := context.Background()
	f.progress.On("StudiedMaterialIDs", ctx, int64(1)).Return([]uint{2, 3}, nil)

	set, err := f.service.StudiedSet(ctx, 1)
	require.NoError(t, err)
	assert.True(t, set[2])
	assert.True(t, set[3])
	assert.False(t, set[4])
}
