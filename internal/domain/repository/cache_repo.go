package repository

import (
	"context"
	"time"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	// IncrementWindow увеличивает счётчик и при первом инкременте задаёт TTL окна
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}
