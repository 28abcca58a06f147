package service

import (
	"context"
	"fmt"

	"github.com/yourusername/academy-bot/internal/domain/entity"
	"github.com/yourusername/academy-bot/internal/domain/repository"
	"github.com/yourusername/academy-bot/internal/pkg/logger"
)

// RatingUpdater пересчитывает рейтинг пользователя
type RatingUpdater interface {
	RecomputeUser(ctx context.Context, userID int64) error
}

// UserStats — сводка для команды /stats
type UserStats struct {
	User           *entity.User
	Studied        int
	TotalMaterials int
	Progress       float64 // процент изученных материалов
	Rating         *entity.LeaderboardEntry
	RecentResults  []entity.TestResultView
}

// ProgressService фиксирует изучение материалов и попытки тестов
type ProgressService struct {
	progressRepo repository.ProgressRepository
	materialRepo repository.MaterialRepository
	userRepo     repository.UserRepository
	ratingRepo   repository.RatingRepository
	rating       RatingUpdater
	log          *logger.Logger
}

// NewProgressService создает сервис прогресса
func NewProgressService(
	progressRepo repository.ProgressRepository,
	materialRepo repository.MaterialRepository,
	userRepo repository.UserRepository,
	ratingRepo repository.RatingRepository,
	rating RatingUpdater,
	log *logger.Logger,
) *ProgressService {
	return &ProgressService{
		progressRepo: progressRepo,
		materialRepo: materialRepo,
		userRepo:     userRepo,
		ratingRepo:   ratingRepo,
		rating:       rating,
		log:          log,
	}
}

// RecordQuizResult сохраняет попытку и отмечает материал изученным одной транзакцией,
// затем пересчитывает рейтинг. Ошибка пересчёта не возвращается: попытка уже
// сохранена, и повтор привёл бы к её дублированию.
func (s *ProgressService) RecordQuizResult(ctx context.Context, result *entity.TestResult) error {
	if result.CorrectCount < 0 || result.CorrectCount > result.TotalCount {
		return fmt.Errorf("invalid result: correct %d of %d", result.CorrectCount, result.TotalCount)
	}
	if err := s.progressRepo.RecordAttempt(ctx, result); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	if err := s.rating.RecomputeUser(ctx, result.UserID); err != nil {
		s.log.Error("[ProgressService] Ошибка пересчёта рейтинга после теста",
			"user_id", result.UserID, "error", err)
	}
	return nil
}

// MarkStudied отмечает материал изученным. При первой отметке пересчитывается рейтинг.
func (s *ProgressService) MarkStudied(ctx context.Context, userID int64, materialID uint) (bool, error) {
	created, err := s.progressRepo.MarkStudied(ctx, userID, materialID)
	if err != nil {
		return false, fmt.Errorf("mark studied: %w", err)
	}
	if created {
		if err := s.rating.RecomputeUser(ctx, userID); err != nil {
			s.log.Error("[ProgressService] Ошибка пересчёта рейтинга после изучения",
				"user_id", userID, "material_id", materialID, "error", err)
		}
	}
	return created, nil
}

// StudiedSet возвращает множество изученных материалов
func (s *ProgressService) StudiedSet(ctx context.Context, userID int64) (map[uint]bool, error) {
	ids, err := s.progressRepo.StudiedMaterialIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// Stats собирает статистику пользователя
func (s *ProgressService) Stats(ctx context.Context, userID int64) (*UserStats, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	studied, err := s.progressRepo.CountStudied(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, err := s.materialRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	rating, err := s.ratingRepo.GetByUserID(ctx, userID)
	if err != nil {
		// Рейтинг появляется после первого пересчёта
		rating = &entity.LeaderboardEntry{Rating: entity.Rating{UserID: userID}}
	}
	recent, err := s.progressRepo.RecentResults(ctx, userID, 3)
	if err != nil {
		return nil, err
	}

	return &UserStats{
		User:           user,
		Studied:        int(studied),
		TotalMaterials: int(total),
		Progress:       progressPercent(int(studied), int(total)),
		Rating:         rating,
		RecentResults:  recent,
	}, nil
}

// progressPercent ограничивает число изученных общим числом материалов,
// так как записи об изучении удалённых материалов сохраняются
func progressPercent(studied, total int) float64 {
	if total <= 0 {
		return 0
	}
	if studied > total {
		studied = total
	}
	return entity.Percentage(studied, total)
}
