//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// 运行方式: go test -tags integration ./pkg/cache/...
func TestIdempotencyStore_Redis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client, err := NewRedisClient(ctx, addr, "", 0)
	require.NoError(t, err)
	defer client.Close()

	store := NewIdempotencyStore(client, 24*time.Hour)

	_, fresh, err := store.Begin(ctx, 1, "k")
	require.NoError(t, err)
	require.True(t, fresh)

	t.Run("占位短期过期", func(t *testing.T) {
		ttl, err := client.TTL(ctx, checkoutKey(1, "k")).Result()
		require.NoError(t, err)
		assert.LessOrEqual(t, ttl, maxInFlightTTL)

		ids, fresh, err := store.Begin(ctx, 1, "k")
		require.NoError(t, err)
		assert.False(t, fresh)
		assert.Empty(t, ids)
	})

	t.Run("写入结果后按完整 TTL 保留", func(t *testing.T) {
		require.NoError(t, store.Complete(ctx, 1, "k", []int64{7, 8}))
		ttl, err := client.TTL(ctx, checkoutKey(1, "k")).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, maxInFlightTTL)

		ids, fresh, err := store.Begin(ctx, 1, "k")
		require.NoError(t, err)
		assert.False(t, fresh)
		assert.Equal(t, []int64{7, 8}, ids)
	})

	t.Run("释放后可重新占位", func(t *testing.T) {
		require.NoError(t, store.Abort(ctx, 1, "k"))
		_, fresh, err := store.Begin(ctx, 1, "k")
		require.NoError(t, err)
		assert.True(t, fresh)
	})
}
