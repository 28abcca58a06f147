package repository

import (
	"context"

	"github.com/yourusername/academy-bot/internal/domain/entity"
)

// MaterialRepository определяет методы для работы с материалами.
// Удаление материала каскадно удаляет его вопросы и ответы.
type MaterialRepository interface {
	Create(ctx context.Context, material *entity.Material) error
	GetByID(ctx context.Context, id uint) (*entity.Material, error)
	// List возвращает материалы; пустой level — все уровни
	List(ctx context.Context, level entity.Level) ([]entity.Material, error)
	Count(ctx context.Context) (int64, error)
	UpdateFields(ctx context.Context, id uint, updates map[string]interface{}) error
	AppendBody(ctx context.Context, id uint, text string) error
	Delete(ctx context.Context, id uint) error
}
