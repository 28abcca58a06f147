package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/academy-bot/internal/pkg/errors"
)

func TestNoOpCache_AlwaysMisses(t *testing.T) {
	c := NewNoOpCache()
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute))

	var dest map[string]int
	err := c.GetJSON(ctx, "k", &dest)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNoOpCache_IncrementWindow(t *testing.T) {
	c := NewNoOpCache()
	ctx := context.Background()
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	for i := int64(1); i <= 3; i++ {
		n, err := c.IncrementWindow(ctx, "rl:ask:1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	// Другой ключ считается отдельно
	n, err := c.IncrementWindow(ctx, "rl:ask:2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// После истечения окна счётчик начинается заново
	current = current.Add(time.Minute)
	n, err = c.IncrementWindow(ctx, "rl:ask:1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "счётчик должен сброситься после окна")
}

func TestNoOpCache_ExpiredCountersAreRemoved(t *testing.T) {
	c := NewNoOpCache()
	ctx := context.Background()
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	for _, key := range []string{"rl:api:10.0.0.1:/api/leaderboard", "rl:api:10.0.0.2:/api/leaderboard", "rl:ask:1"} {
		_, err := c.IncrementWindow(ctx, key, time.Minute)
		require.NoError(t, err)
	}
	require.Len(t, c.counters, 3)

	current = current.Add(2 * time.Minute)
	n, err := c.IncrementWindow(ctx, "rl:ask:2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Len(t, c.counters, 1)
	assert.Contains(t, c.counters, "rl:ask:2")
}
