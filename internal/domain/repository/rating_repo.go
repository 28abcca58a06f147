package repository

import (
	"context"

	"github.com/yourusername/academy-bot/internal/domain/entity"
)

// RatingRepository определяет методы для работы с рейтингом
type RatingRepository interface {
	Upsert(ctx context.Context, rating *entity.Rating) error
	// RankCandidates возвращает баллы всех пользователей с датой регистрации
	RankCandidates(ctx context.Context) ([]entity.RankCandidate, error)
	// SaveRanks записывает ранги в одной транзакции
	SaveRanks(ctx context.Context, ranks map[int64]int) error
	GetByUserID(ctx context.Context, userID int64) (*entity.LeaderboardEntry, error)
	// GetLeaderboard возвращает страницу лидерборда и общее число записей
	GetLeaderboard(ctx context.Context, limit, offset int) ([]entity.LeaderboardEntry, int64, error)
}
