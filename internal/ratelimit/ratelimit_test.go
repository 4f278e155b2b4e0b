package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiter(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(60, 3)
	l.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, _ := l.Allow(ctx, "user:1")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "user:2")
	assert.True(t, ok, "keys are independent")

	clock = clock.Add(time.Second)
	ok, _ = l.Allow(ctx, "user:1")
	assert.True(t, ok, "one token refills per second at 60/min")
}

func TestLocalLimiterEvict(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(60, 1)
	l.now = func() time.Time { return clock }

	_, _ = l.Allow(context.Background(), "a")
	clock = clock.Add(10 * time.Minute)
	_, _ = l.Allow(context.Background(), "b")

	l.evict(5 * time.Minute)
	assert.Equal(t, 1, l.size())
}

func TestLocalLimiterRunStops(t *testing.T) {
	l := NewLocalLimiter(60, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, time.Millisecond, time.Minute)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	l := NewRedisLimiter(client, "test:"+uuid.NewString(), 2, time.Minute)
	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, ok)
}
