//go:build integration

package redis

import (
	"context"
	"log"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/life2you_mini/cycle/internal/models"
)

var testClient *redis.Client

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("启动Redis容器失败: %s", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("获取容器地址失败: %s", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		log.Fatalf("获取容器端口失败: %s", err)
	}

	testClient, err = NewRedisClient(ctx, ClientOptions{Host: host, Port: mustAtoi(port.Port())})
	if err != nil {
		log.Fatalf("连接Redis失败: %s", err)
	}

	code := m.Run()

	testClient.Close()
	if err := container.Terminate(ctx); err != nil {
		log.Printf("停止Redis容器失败: %s", err)
	}
	os.Exit(code)
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("端口格式错误: %s", s)
	}
	return n
}

func TestPriceStore(t *testing.T) {
	ctx := context.Background()
	store := NewPriceStore(testClient, "test:"+t.Name()+":", 3)

	_, ok, err := store.Latest(ctx, "BTC")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, p := range []float64{1, 2, 3, 4} {
		require.NoError(t, store.Record(ctx, "BTC", p))
	}

	latest, ok, err := store.Latest(ctx, "BTC")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4.0, latest)

	recent, err := store.Recent(ctx, "BTC", 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, recent)
}

func TestPendingQueue(t *testing.T) {
	ctx := context.Background()
	queue := NewPendingQueue(testClient, "test:"+t.Name()+":")

	record, err := queue.Pop(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, record)

	require.NoError(t, queue.Push(ctx, &models.TradeRecord{ID: "a", AccountID: 1, Symbol: "BTC"}))
	require.NoError(t, queue.Push(ctx, &models.TradeRecord{ID: "b", AccountID: 2, Symbol: "ETH"}))

	n, err := queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// 先进先出
	record, err = queue.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "a", record.ID)
}

func TestTickLock(t *testing.T) {
	ctx := context.Background()
	lock := NewTickLock(testClient, "test:"+t.Name()+":", 5*time.Second)
	other := NewTickLock(testClient, "test:"+t.Name()+":", 5*time.Second)

	token, ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, other.Release(ctx, "wrong-token"), ErrLockNotHeld)
	require.NoError(t, lock.Release(ctx, token))

	_, ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
