package repository

import (
	"context"
	"time"

	"github.com/yourusername/academy-bot/internal/domain/entity"
)

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	Exists(ctx context.Context, id int64) (bool, error)
	TouchActivity(ctx context.Context, id int64, at time.Time) error
	ListAll(ctx context.Context) ([]entity.User, error)
}
