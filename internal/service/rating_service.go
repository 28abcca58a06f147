package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	"github.com/yourusername/academy-bot/internal/domain/repository"
	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
)

const (
	leaderboardCacheTTL = 5 * time.Minute
	maxLeaderboardPage  = 100
)

// LeaderboardPage — страница лидерборда
type LeaderboardPage struct {
	Entries  []entity.LeaderboardEntry `json:"entries"`
	Total    int64                     `json:"total"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"page_size"`
}

// RatingService пересчитывает баллы и ранги пользователей и отдаёт лидерборд
type RatingService struct {
	userRepo     repository.UserRepository
	progressRepo repository.ProgressRepository
	ratingRepo   repository.RatingRepository
	cacheRepo    repository.CacheRepository
	weights      entity.RatingWeights
	log          *logger.Logger

	// rankMu сериализует пересчёт рангов, иначе параллельные пересчёты
	// могут записать ранги из разных снимков
	rankMu sync.Mutex
	// scoreMu защищает только карту scoreLocks
	scoreMu    sync.Mutex
	scoreLocks map[int64]*sync.Mutex
	// generation входит в ключи кеша; увеличение делает старые страницы недоступными
	generation atomic.Int64
}

// NewRatingService создает сервис рейтинга
func NewRatingService(
	userRepo repository.UserRepository,
	progressRepo repository.ProgressRepository,
	ratingRepo repository.RatingRepository,
	cacheRepo repository.CacheRepository,
	weights entity.RatingWeights,
	log *logger.Logger,
) *RatingService {
	s := &RatingService{
		userRepo:     userRepo,
		progressRepo: progressRepo,
		ratingRepo:   ratingRepo,
		cacheRepo:    cacheRepo,
		weights:      weights,
		log:          log,
		scoreLocks:   make(map[int64]*sync.Mutex),
	}
	// Ключи предыдущего запуска процесса не должны совпасть с новыми
	s.generation.Store(time.Now().UnixNano())
	return s
}

// Weights возвращает веса формулы рейтинга
func (s *RatingService) Weights() entity.RatingWeights {
	return s.weights
}

// RecomputeAll пересчитывает рейтинг всех пользователей (при старте процесса)
func (s *RatingService) RecomputeAll(ctx context.Context) error {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		if err := s.upsertScore(ctx, u.ID); err != nil {
			return fmt.Errorf("recompute user #%d: %w", u.ID, err)
		}
	}
	if err := s.rerank(ctx); err != nil {
		return err
	}
	s.log.Info("[RatingService] Рейтинг пересчитан", "users", len(users))
	return nil
}

// RecomputeUser пересчитывает балл одного пользователя и ранги всех
func (s *RatingService) RecomputeUser(ctx context.Context, userID int64) error {
	if err := s.upsertScore(ctx, userID); err != nil {
		return fmt.Errorf("recompute user #%d: %w", userID, err)
	}
	return s.rerank(ctx)
}

// scoreLock возвращает мьютекс пользователя: чтение прогресса и запись балла
// одного пользователя не должны перемежаться, иначе поздняя запись старого
// снимка уменьшит балл
func (s *RatingService) scoreLock(userID int64) *sync.Mutex {
	s.scoreMu.Lock()
	defer s.scoreMu.Unlock()
	mu, ok := s.scoreLocks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.scoreLocks[userID] = mu
	}
	return mu
}

func (s *RatingService) upsertScore(ctx context.Context, userID int64) error {
	mu := s.scoreLock(userID)
	mu.Lock()
	defer mu.Unlock()

	studied, err := s.progressRepo.CountStudied(ctx, userID)
	if err != nil {
		return err
	}
	results, err := s.progressRepo.ResultsByUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.ratingRepo.Upsert(ctx, &entity.Rating{
		UserID:           userID,
		TotalScore:       entity.ComputeScore(s.weights, int(studied), results),
		MaterialsStudied: int(studied),
		TestsCompleted:   len(results),
		UpdatedAt:        time.Now(),
	})
}

func (s *RatingService) rerank(ctx context.Context) error {
	s.rankMu.Lock()
	defer s.rankMu.Unlock()

	candidates, err := s.ratingRepo.RankCandidates(ctx)
	if err != nil {
		return fmt.Errorf("load rank candidates: %w", err)
	}
	if err := s.ratingRepo.SaveRanks(ctx, entity.AssignDenseRanks(candidates)); err != nil {
		return fmt.Errorf("save ranks: %w", err)
	}
	s.generation.Add(1)
	return nil
}

// Leaderboard возвращает страницу лидерборда; страницы кешируются до следующего пересчёта
func (s *RatingService) Leaderboard(ctx context.Context, page, pageSize int) (*LeaderboardPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	} else if pageSize > maxLeaderboardPage {
		pageSize = maxLeaderboardPage
	}

	key := fmt.Sprintf("leaderboard:%d:%d:%d", s.generation.Load(), page, pageSize)

	var cached LeaderboardPage
	err := s.cacheRepo.GetJSON(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		s.log.Warn("[RatingService] Ошибка чтения кеша лидерборда", "key", key, "error", err)
	}

	entries, total, err := s.ratingRepo.GetLeaderboard(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	if entries == nil {
		entries = []entity.LeaderboardEntry{}
	}
	result := &LeaderboardPage{Entries: entries, Total: total, Page: page, PageSize: pageSize}

	if err := s.cacheRepo.SetJSON(ctx, key, result, leaderboardCacheTTL); err != nil {
		s.log.Warn("[RatingService] Не удалось записать лидерборд в кеш", "key", key, "error", err)
	}
	return result, nil
}

// UserRating возвращает строку лидерборда пользователя
func (s *RatingService) UserRating(ctx context.Context, userID int64) (*entity.LeaderboardEntry, error) {
	return s.ratingRepo.GetByUserID(ctx, userID)
}
