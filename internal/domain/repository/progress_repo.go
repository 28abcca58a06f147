package repository

import (
	"context"

	"github.com/yourusername/academy-bot/internal/domain/entity"
)

// ProgressRepository определяет методы для работы с прогрессом обучения
type ProgressRepository interface {
	// MarkStudied идемпотентно отмечает материал изученным; возвращает true, если запись создана
	MarkStudied(ctx context.Context, userID int64, materialID uint) (bool, error)
	// RecordAttempt атомарно добавляет результат теста и отмечает материал изученным
	RecordAttempt(ctx context.Context, result *entity.TestResult) error
	StudiedMaterialIDs(ctx context.Context, userID int64) ([]uint, error)
	CountStudied(ctx context.Context, userID int64) (int64, error)
	RecentStudied(ctx context.Context, userID int64, limit int) ([]entity.StudiedMaterialView, error)
	ResultsByUser(ctx context.Context, userID int64) ([]entity.TestResult, error)
	RecentResults(ctx context.Context, userID int64, limit int) ([]entity.TestResultView, error)
	AllResults(ctx context.Context) ([]entity.TestResultView, error)
}
