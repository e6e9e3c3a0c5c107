package storage

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedis_DecrementStock_Success(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, StockKey("test-item"))
	require.NoError(t, adapter.SetStock(ctx, "test-item", 10))

	err := adapter.DecrementStock(ctx, []domain.StockRequest{{ProductID: "test-item", Quantity: 3}})
	require.NoError(t, err)

	stock, _ := client.Get(ctx, StockKey("test-item")).Int()
	assert.Equal(t, 7, stock)
}

func TestRedis_DecrementStock_AllOrNothing(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, StockKey("multi-a"), StockKey("multi-b"))
	adapter.SetStock(ctx, "multi-a", 5)
	adapter.SetStock(ctx, "multi-b", 1)

	err := adapter.DecrementStock(ctx, []domain.StockRequest{
		{ProductID: "multi-a", Quantity: 2},
		{ProductID: "multi-b", Quantity: 3},
	})

	var short *domain.InsufficientStockError
	require.True(t, errors.As(err, &short), "got %v", err)
	assert.Equal(t, "multi-b", short.ProductID)
	assert.Equal(t, 1, short.Available)

	a, _ := client.Get(ctx, StockKey("multi-a")).Int()
	b, _ := client.Get(ctx, StockKey("multi-b")).Int()
	assert.Equal(t, 5, a)
	assert.Equal(t, 1, b)
}

func TestRedis_DecrementStock_KeyNotExists(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, StockKey("nonexistent"))

	err := adapter.DecrementStock(ctx, []domain.StockRequest{{ProductID: "nonexistent", Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestRedis_DecrementStock_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	initialStock := 20
	totalRequests := 50

	client.Del(ctx, StockKey("concurrent-test"))
	adapter.SetStock(ctx, "concurrent-test", initialStock)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := adapter.DecrementStock(ctx, []domain.StockRequest{{ProductID: "concurrent-test", Quantity: 1}})
			if err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(initialStock), successCount.Load())
	stock, _ := client.Get(ctx, StockKey("concurrent-test")).Int()
	assert.Equal(t, 0, stock)
}

func TestRedis_InitAndIncrementStock(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, StockKey("init-item"))

	qty, err := adapter.InitStock(ctx, "init-item", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, qty)

	qty, err = adapter.InitStock(ctx, "init-item", 100)
	require.NoError(t, err)
	assert.Equal(t, 5, qty)

	require.NoError(t, adapter.IncrementStock(ctx, []domain.StockRequest{{ProductID: "init-item", Quantity: 3}}))
	inv, err := adapter.GetInventory(ctx, "init-item")
	require.NoError(t, err)
	assert.Equal(t, 8, inv.Quantity)
}

func TestRedis_CartRoundTrip(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	client.Del(ctx, cartKeyPrefix+"redis-user")

	cart := domain.Cart{UserKey: "redis-user", Lines: []domain.CartLine{
		{ID: "l1", ProductID: "a", Quantity: 2, Selected: true},
	}}
	require.NoError(t, adapter.SaveCart(ctx, cart))

	loaded, err := adapter.LoadCart(ctx, "redis-user")
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 1)
	assert.Equal(t, 2, loaded.Lines[0].Quantity)

	cart.Lines = nil
	require.NoError(t, adapter.SaveCart(ctx, cart))
	n, _ := client.Exists(ctx, cartKeyPrefix+"redis-user").Result()
	assert.Equal(t, int64(0), n)
}
