package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
)

func defaultWeights() entity.RatingWeights {
	return entity.RatingWeights{Study: 10, Percent: 0.1, Pass: 5, PassThreshold: 60}
}

type ratingFixture struct {
	users    *MockUserRepository
	progress *MockProgressRepository
	ratings  *MockRatingRepository
	cache    *MockCacheRepository
	service  *RatingService
}

func newRatingFixture() *ratingFixture {
	f := &ratingFixture{
		users:    new(MockUserRepository),
		progress: new(MockProgressRepository),
		ratings:  new(MockRatingRepository),
		cache:    new(MockCacheRepository),
	}
	f.service = NewRatingService(f.users, f.progress, f.ratings, f.cache, defaultWeights(), logger.Nop())
	return f
}

func TestRatingService_RecomputeUser(t *testing.T) {
	// Arrange
	f := newRatingFixture()
	ctx := context.Background()
	results := []entity.TestResult{
		{ID: 1, Percentage: 60},
		{ID: 2, Percentage: 40},
	}
	f.progress.On("CountStudied", ctx, int64(7)).Return(int64(2), nil)
	f.progress.On("ResultsByUser", ctx, int64(7)).Return(results, nil)
	f.ratings.On("Upsert", ctx, mock.MatchedBy(func(r *entity.Rating) bool {
		// 2*10 + (6 + 5) + 4 = 35
		return r.UserID == 7 && r.TotalScore == 35 && r.MaterialsStudied == 2 && r.TestsCompleted == 2
	})).Return(nil).Once()

	candidates := []entity.RankCandidate{
		{UserID: 7, Score: 35, RegisteredAt: time.Unix(100, 0)},
		{UserID: 8, Score: 50, RegisteredAt: time.Unix(50, 0)},
	}
	f.ratings.On("RankCandidates", ctx).Return(candidates, nil)
	f.ratings.On("SaveRanks", ctx, map[int64]int{8: 1, 7: 2}).Return(nil).Once()

	// Act
	err := f.service.RecomputeUser(ctx, 7)

	// Assert
	require.NoError(t, err)
	f.ratings.AssertExpectations(t)
	f.progress.AssertExpectations(t)
}

func TestRatingService_RecomputeAllIsIdempotent(t *testing.T) {
	// Arrange
	f := newRatingFixture()
	ctx := context.Background()
	users := []entity.User{{ID: 1}, {ID: 2}}
	f.users.On("ListAll", ctx).Return(users, nil)
	f.progress.On("CountStudied", ctx, int64(1)).Return(int64(1), nil)
	f.progress.On("CountStudied", ctx, int64(2)).Return(int64(0), nil)
	f.progress.On("ResultsByUser", ctx, int64(1)).Return([]entity.TestResult{{ID: 3, Percentage: 100}}, nil)
	f.progress.On("ResultsByUser", ctx, int64(2)).Return([]entity.TestResult{}, nil)

	var upserts []entity.Rating
	f.ratings.On("Upsert", ctx, mock.Anything).Run(func(args mock.Arguments) {
		r := args.Get(1).(*entity.Rating)
		upserts = append(upserts, entity.Rating{UserID: r.UserID, TotalScore: r.TotalScore})
	}).Return(nil)
	f.ratings.On("RankCandidates", ctx).Return([]entity.RankCandidate{
		{UserID: 1, Score: 25}, {UserID: 2, Score: 0},
	}, nil)

	var savedRanks []map[int64]int
	f.ratings.On("SaveRanks", ctx, mock.Anything).Run(func(args mock.Arguments) {
		savedRanks = append(savedRanks, args.Get(1).(map[int64]int))
	}).Return(nil)

	// Act
	require.NoError(t, f.service.RecomputeAll(ctx))
	require.NoError(t, f.service.RecomputeAll(ctx))

	// Assert
	require.Len(t, upserts, 4)
	assert.Equal(t, upserts[:2], upserts[2:], "повторный пересчёт даёт те же баллы")
	assert.Equal(t, 25.0, upserts[0].TotalScore)
	require.Len(t, savedRanks, 2)
	assert.Equal(t, savedRanks[0], savedRanks[1], "повторный пересчёт даёт те же ранги")
	assert.Equal(t, map[int64]int{1: 1, 2: 2}, savedRanks[0])
}

func TestRatingService_LeaderboardCache(t *testing.T) {
	f := newRatingFixture()
	ctx := context.Background()
	entries := []entity.LeaderboardEntry{{Rating: entity.Rating{UserID: 1, Rank: 1, TotalScore: 10}, Name: "Аня"}}

	f.cache.On("GetJSON", ctx, mock.Anything, mock.Anything).Return(apperrors.ErrNotFound).Once()
	f.ratings.On("GetLeaderboard", ctx, 10, 0).Return(entries, int64(1), nil).Once()
	var cachedKey string
	f.cache.On("SetJSON", ctx, mock.Anything, mock.Anything, leaderboardCacheTTL).Run(func(args mock.Arguments) {
		cachedKey = args.String(1)
	}).Return(nil).Once()

	// Промах кеша: чтение из БД и запись в кеш
	page, err := f.service.Leaderboard(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page, "номер страницы нормализуется")
	assert.Equal(t, 10, page.PageSize, "размер страницы по умолчанию")
	require.Len(t, page.Entries, 1)

	// Попадание в кеш: БД не вызывается
	f.cache.On("GetJSON", ctx, cachedKey, mock.Anything).Run(func(args mock.Arguments) {
		dest := args.Get(2).(*LeaderboardPage)
		*dest = *page
	}).Return(nil).Once()

	again, err := f.service.Leaderboard(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, page.Entries, again.Entries)
	f.ratings.AssertNumberOfCalls(t, "GetLeaderboard", 1)
	f.cache.AssertExpectations(t)
}

func TestRatingService_RecomputeInvalidatesLeaderboardCache(t *testing.T) {
	f := newRatingFixture()
	ctx := context.Background()

	var keys []string
	f.cache.On("GetJSON", ctx, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		keys = append(keys, args.String(1))
	}).Return(apperrors.ErrNotFound)
	f.cache.On("SetJSON", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.ratings.On("GetLeaderboard", ctx, 10, 0).Return([]entity.LeaderboardEntry{}, int64(0), nil)
	f.progress.On("CountStudied", ctx, int64(1)).Return(int64(0), nil)
	f.progress.On("ResultsByUser", ctx, int64(1)).Return([]entity.TestResult{}, nil)
	f.ratings.On("Upsert", ctx, mock.Anything).Return(nil)
	f.ratings.On("RankCandidates", ctx).Return([]entity.RankCandidate{{UserID: 1}}, nil)
	f.ratings.On("SaveRanks", ctx, mock.Anything).Return(nil)

	_, err := f.service.Leaderboard(ctx, 1, 10)
	require.NoError(t, err)
	require.NoError(t, f.service.RecomputeUser(ctx, 1))
	_, err = f.service.Leaderboard(ctx, 1, 10)
	require.NoError(t, err)

	require.Len(t, keys, 2)
	assert.NotEqual(t, keys[0], keys[1], "после пересчёта кеш страниц не используется")
}

func TestRatingService_ScoreNeverDecreases(t *testing.T) {
	w := defaultWeights()
	var results []entity.TestResult
	prev := entity.ComputeScore(w, 0, results)

	for i, pct := range []float64{0, 100, 20, 60, 59.99, 0} {
		results = append(results, entity.TestResult{ID: uint(i + 1), Percentage: pct})
		score := entity.ComputeScore(w, i/2, results)
		assert.GreaterOrEqual(t, score, prev, "балл не должен уменьшаться после попытки %d", i+1)
		prev = score
	}
}

// stagedProgress отдаёт прогресс из памяти; первое чтение попыток
// задерживается до закрытия release
type stagedProgress struct {
	*MockProgressRepository

	mu        sync.Mutex
	studied   int64
	results   []entity.TestResult
	reads     int
	firstRead chan struct{}
	release   chan struct{}
}

func (p *stagedProgress) CountStudied(context.Context, int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.studied, nil
}

func (p *stagedProgress) ResultsByUser(context.Context, int64) ([]entity.TestResult, error) {
	p.mu.Lock()
	p.reads++
	first := p.reads == 1
	results := append([]entity.TestResult(nil), p.results...)
	p.mu.Unlock()

	if first {
		close(p.firstRead)
		<-p.release
	}
	return results, nil
}

func (p *stagedProgress) addResult(r entity.TestResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, r)
}

// storedRatings хранит последний записанный балл
type storedRatings struct {
	*MockRatingRepository

	mu    sync.Mutex
	score float64
}

func (r *storedRatings) Upsert(_ context.Context, rating *entity.Rating) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.score = rating.TotalScore
	return nil
}

func (r *storedRatings) RankCandidates(context.Context) ([]entity.RankCandidate, error) {
	return nil, nil
}

func (r *storedRatings) SaveRanks(context.Context, map[int64]int) error {
	return nil
}

func (r *storedRatings) stored() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.score
}

func TestRatingService_ConcurrentRecomputeKeepsLatestScore(t *testing.T) {
	// Arrange: материал изучен, попыток ещё нет
	progress := &stagedProgress{
		MockProgressRepository: new(MockProgressRepository),
		studied:                1,
		firstRead:              make(chan struct{}),
		release:                make(chan struct{}),
	}
	ratings := &storedRatings{MockRatingRepository: new(MockRatingRepository)}
	svc := NewRatingService(new(MockUserRepository), progress, ratings, new(MockCacheRepository), defaultWeights(), logger.Nop())
	ctx := context.Background()

	// Act: пересчёт после открытия материала читает старый снимок и задерживается,
	// в это время завершается тест на 100%
	studyDone := make(chan error, 1)
	go func() { studyDone <- svc.RecomputeUser(ctx, 7) }()
	<-progress.firstRead

	progress.addResult(entity.TestResult{ID: 1, UserID: 7, Percentage: 100})
	finishDone := make(chan error, 1)
	go func() { finishDone <- svc.RecomputeUser(ctx, 7) }()

	time.Sleep(50 * time.Millisecond)
	close(progress.release)
	require.NoError(t, <-studyDone)
	require.NoError(t, <-finishDone)

	// Assert: 1*10 + 100*0.1 + 5
	assert.Equal(t, 25.0, ratings.stored())
}
