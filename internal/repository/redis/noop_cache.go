package redis

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
)

// NoOpCache используется, когда Redis не сконфигурирован.
// Кеш всегда пуст, счётчики окон живут в памяти процесса.
type NoOpCache struct {
	mu        sync.Mutex
	counters  map[string]windowCounter
	nextSweep time.Time
	now       func() time.Time
}

// counterSweepInterval — как часто удаляются истёкшие счётчики
const counterSweepInterval = time.Minute

type windowCounter struct {
	count     int64
	expiresAt time.Time
}

// NewNoOpCache создает кеш-заглушку
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{
		counters: make(map[string]windowCounter),
		now:      time.Now,
	}
}

func (c *NoOpCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}

func (c *NoOpCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	return apperrors.ErrNotFound
}

func (c *NoOpCache) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)

	counter, ok := c.counters[key]
	if !ok || !now.Before(counter.expiresAt) {
		counter = windowCounter{expiresAt: now.Add(window)}
	}
	counter.count++
	c.counters[key] = counter
	return counter.count, nil
}

// sweep удаляет истёкшие счётчики не чаще раза в counterSweepInterval
func (c *NoOpCache) sweep(now time.Time) {
	if now.Before(c.nextSweep) {
		return
	}
	for key, counter := range c.counters {
		if !now.Before(counter.expiresAt) {
			delete(c.counters, key)
		}
	}
	c.nextSweep = now.Add(counterSweepInterval)
}
