package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	l, err := NewFixedWindowLimiter(mr.Addr(), "", "test:ratelimit", limit, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, mr
}

func TestAllow_WithinQuota(t *testing.T) {
	l, _ := newTestLimiter(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}
	ok, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// other users have their own quota
	ok, err = l.Allow(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllow_NewWindowResetsCount(t *testing.T) {
	l, _ := newTestLimiter(t, 1)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return now }

	ok, _ := l.Allow(ctx, "user-1")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "user-1")
	assert.False(t, ok)
	assert.Equal(t, 50*time.Second, l.RetryAfter())

	now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "user-1")
	assert.True(t, ok)
}

func TestAllow_SetsExpiry(t *testing.T) {
	l, mr := newTestLimiter(t, 5)
	_, err := l.Allow(context.Background(), "user-1")
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))
}

func TestAllow_FailsClosed(t *testing.T) {
	l, mr := newTestLimiter(t, 1)
	mr.Close()

	ok, err := l.Allow(context.Background(), "user-1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestNewFixedWindowLimiter_Validation(t *testing.T) {
	_, err := NewFixedWindowLimiter("", "", "", 1, time.Second)
	assert.Error(t, err)
	_, err = NewFixedWindowLimiter("localhost:6379", "", "", 0, time.Second)
	assert.Error(t, err)
}
