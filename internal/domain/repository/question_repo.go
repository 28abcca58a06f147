package repository

import (
	"context"

	"github.com/yourusername/academy-bot/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с вопросами и ответами
type QuestionRepository interface {
	// CreateWithAnswers создаёт вопрос вместе с вариантами ответов в одной транзакции
	CreateWithAnswers(ctx context.Context, question *entity.Question) error
	AddAnswer(ctx context.Context, answer *entity.Answer) error
	// GetByMaterialID возвращает вопросы материала с ответами, упорядоченные по ID
	GetByMaterialID(ctx context.Context, materialID uint) ([]entity.Question, error)
	CountByMaterialID(ctx context.Context, materialID uint) (int64, error)
}
