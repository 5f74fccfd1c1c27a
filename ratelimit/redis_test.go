package ratelimit

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func checkDockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

func setupRedis(t *testing.T) *redis.Client {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisStore(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	l := New(NewRedisStore(client, "test:"))

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "ip-ua", "strict")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.WithinDuration(t, time.Now().Add(time.Minute), res.ResetAt, 2*time.Second)
	}
	res, err := l.Allow(ctx, "ip-ua", "strict")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	require.NoError(t, l.Release(ctx, "ip-ua", "strict"))
	require.NoError(t, l.Release(ctx, "ip-ua", "strict"))
	res, err = l.Allow(ctx, "ip-ua", "strict")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	ttl, err := client.PTTL(ctx, "test:strict:ip-ua").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	// releasing a missing window must not create one
	require.NoError(t, l.Release(ctx, "ghost", "strict"))
	n, err := client.Exists(ctx, "test:strict:ghost").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
