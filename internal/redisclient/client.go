package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shop-service/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/rate_limit.lua
var rateLimitScript string

//go:embed scripts/set_product.lua
var setProductScript string

// EvictionGuard is how long an evicted product refuses read-through fills.
// It covers a reader that loaded the row before the writer committed.
const EvictionGuard = 5 * time.Second

type Client struct {
	rdb              *redis.Client
	rateLimitScript  *redis.Script
	setProductScript *redis.Script
	productTTL       time.Duration
	evictionGuard    time.Duration
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int, productTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newClient(rdb, productTTL), nil
}

func newClient(rdb *redis.Client, productTTL time.Duration) *Client {
	return &Client{
		rdb:              rdb,
		rateLimitScript:  redis.NewScript(rateLimitScript),
		setProductScript: redis.NewScript(setProductScript),
		productTTL:       productTTL,
		evictionGuard:    EvictionGuard,
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection, used by the readiness check
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Hit counts one request against key in a fixed window and reports the
// running count and the time left until the window resets
func (c *Client) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	result, err := c.rateLimitScript.Run(ctx, c.rdb,
		[]string{fmt.Sprintf("ratelimit:%s", key)}, window.Milliseconds()).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected script result type")
	}
	hits, ok1 := values[0].(int64)
	ttl, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return 0, 0, fmt.Errorf("unexpected script result type")
	}

	return hits, time.Duration(ttl) * time.Millisecond, nil
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func evictedKey(id int64) string {
	return fmt.Sprintf("product:%d:evicted", id)
}

// GetProduct reads a cached product. The bool is false on a cache miss.
func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, bool, error) {
	raw, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var product models.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached product: %w", err)
	}
	return &product, true, nil
}

// SetProduct caches a product for the configured TTL. The write is skipped
// while the product is inside its eviction guard, since the caller may hold
// a row read before the eviction.
func (c *Client) SetProduct(ctx context.Context, product *models.Product) error {
	raw, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}

	err = c.setProductScript.Run(ctx, c.rdb,
		[]string{productKey(product.ID), evictedKey(product.ID)},
		raw, c.productTTL.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("set product script failed: %w", err)
	}
	return nil
}

// DeleteProducts evicts cached products and marks them evicted for the
// eviction guard
func (c *Client) DeleteProducts(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Set(ctx, evictedKey(id), 1, c.evictionGuard)
			pipe.Del(ctx, productKey(id))
		}
		return nil
	})
	return err
}
