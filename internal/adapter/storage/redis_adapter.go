package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	stockKeyPrefix = "stock:"
	cartKeyPrefix  = "cart:"
)

var initStockScript = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'NX')
return tonumber(redis.call('GET', KEYS[1]))
`)

// Checks every key before touching any, so a shortfall leaves all stock as it was.
// Returns {0, 0} on success or {index, available} of the first short item (1-based).
var decrementStockScript = redis.NewScript(`
for i, key in ipairs(KEYS) do
	local current = tonumber(redis.call('GET', key) or '0')
	if current < tonumber(ARGV[i]) then
		return {i, current}
	end
end

for i, key in ipairs(KEYS) do
	redis.call('DECRBY', key, tonumber(ARGV[i]))
end

return {0, 0}
`)

// RedisAdapter stores stock counters and carts in Redis.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) GetInventory(ctx context.Context, productID string) (*domain.Inventory, error) {
	qty, err := r.client.Get(ctx, StockKey(productID)).Int()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Inventory{ProductID: productID, Quantity: qty}, nil
}

func (r *RedisAdapter) InitStock(ctx context.Context, productID string, quantity int) (int, error) {
	return initStockScript.Run(ctx, r.client, []string{StockKey(productID)}, quantity).Int()
}

func (r *RedisAdapter) SetStock(ctx context.Context, productID string, quantity int) error {
	return r.client.Set(ctx, StockKey(productID), quantity, 0).Err()
}

func (r *RedisAdapter) DecrementStock(ctx context.Context, items []domain.StockRequest) error {
	if len(items) == 0 {
		return nil
	}

	keys := make([]string, len(items))
	args := make([]interface{}, len(items))
	for i, item := range items {
		keys[i] = StockKey(item.ProductID)
		args[i] = item.Quantity
	}

	result, err := decrementStockScript.Run(ctx, r.client, keys, args...).Int64Slice()
	if err != nil {
		return err
	}
	if len(result) != 2 {
		return fmt.Errorf("unexpected decrement result %v", result)
	}
	if result[0] == 0 {
		return nil
	}

	short := items[result[0]-1]
	return &domain.InsufficientStockError{
		ProductID: short.ProductID,
		Requested: short.Quantity,
		Available: int(result[1]),
	}
}

func (r *RedisAdapter) IncrementStock(ctx context.Context, items []domain.StockRequest) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, item := range items {
			pipe.IncrBy(ctx, StockKey(item.ProductID), int64(item.Quantity))
		}
		return nil
	})
	return err
}

func (r *RedisAdapter) LoadCart(ctx context.Context, userKey string) (domain.Cart, error) {
	data, err := r.client.Get(ctx, cartKeyPrefix+userKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Cart{UserKey: userKey}, nil
	}
	if err != nil {
		return domain.Cart{}, err
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return domain.Cart{}, fmt.Errorf("decode cart %s: %w", userKey, err)
	}
	return cart, nil
}

func (r *RedisAdapter) SaveCart(ctx context.Context, cart domain.Cart) error {
	if len(cart.Lines) == 0 {
		return r.client.Del(ctx, cartKeyPrefix+cart.UserKey).Err()
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", cart.UserKey, err)
	}
	return r.client.Set(ctx, cartKeyPrefix+cart.UserKey, data, 0).Err()
}

// StockKey is the Redis key holding a product's stock counter.
func StockKey(productID string) string {
	return stockKeyPrefix + productID
}
