package repository

import (
	"context"

	"github.com/yourusername/academy-bot/internal/domain/entity"
)

// AIRepository определяет методы для работы с историей диалога с наставником
type AIRepository interface {
	LogMessage(ctx context.Context, msg *entity.AIMessage) error
	// History возвращает последние limit реплик в хронологическом порядке
	History(ctx context.Context, userID int64, limit int) ([]entity.AIMessage, error)
	GetSummary(ctx context.Context, userID int64) (string, error)
	UpsertSummary(ctx context.Context, userID int64, summary string) error
}
