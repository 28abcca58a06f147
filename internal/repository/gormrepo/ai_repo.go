package gormrepo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/academy-bot/internal/domain/entity"
)

// AIRepo реализует repository.AIRepository
type AIRepo struct {
	db *gorm.DB
}

// NewAIRepo создает новый репозиторий диалогов
func NewAIRepo(db *gorm.DB) *AIRepo {
	return &AIRepo{db: db}
}

// LogMessage сохраняет реплику
func (r *AIRepo) LogMessage(ctx context.Context, msg *entity.AIMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// History возвращает последние limit реплик в хронологическом порядке
func (r *AIRepo) History(ctx context.Context, userID int64, limit int) ([]entity.AIMessage, error) {
	var messages []entity.AIMessage
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// GetSummary возвращает краткое содержание диалога; пустая строка, если его ещё нет
func (r *AIRepo) GetSummary(ctx context.Context, userID int64) (string, error) {
	var summaries []entity.AISummary
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&summaries).Error
	if err != nil || len(summaries) == 0 {
		return "", err
	}
	return summaries[0].Summary, nil
}

// UpsertSummary сохраняет краткое содержание диалога
func (r *AIRepo) UpsertSummary(ctx context.Context, userID int64, summary string) error {
	row := entity.AISummary{UserID: userID, Summary: summary, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"summary", "updated_at"}),
	}).Create(&row).Error
}
