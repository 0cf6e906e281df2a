package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/decrement_stock.lua
var decrementStockScript string

// Client wraps Redis for the two storefront concerns that live there:
// login sessions and the advisory stock mirror behind the add-to-cart
// soft check.
type Client struct {
	rdb             *redis.Client
	decrementScript *redis.Script
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
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

	return &Client{
		rdb:             rdb,
		decrementScript: redis.NewScript(decrementStockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func stockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// SetSession stores a session token with TTL
func (c *Client) SetSession(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, sessionKey(token), userID, ttl).Err()
}

// GetSession resolves a session token to a user ID. Returns 0 with no error
// when the token is unknown or expired.
func (c *Client) GetSession(ctx context.Context, token string) (int64, error) {
	val, err := c.rdb.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed session value: %w", err)
	}
	return userID, nil
}

// DeleteSession removes a session token
func (c *Client) DeleteSession(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, sessionKey(token)).Err()
}

// Stock reads the mirrored stock count for a product. A missing key is an
// error so callers fall back to the database.
func (c *Client) Stock(ctx context.Context, productID int64) (int, error) {
	val, err := c.rdb.Get(ctx, stockKey(productID)).Result()
	if err != nil {
		return 0, err
	}

	stock, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("malformed stock value: %w", err)
	}
	return stock, nil
}

// SetStock seeds or refreshes the mirrored stock count for a product
func (c *Client) SetStock(ctx context.Context, productID int64, stock int) error {
	return c.rdb.Set(ctx, stockKey(productID), stock, 0).Err()
}

// DecrementStock atomically lowers the mirrored stock count, clamped at zero,
// and returns the new value
func (c *Client) DecrementStock(ctx context.Context, productID int64, qty int) (int, error) {
	result, err := c.decrementScript.Run(ctx, c.rdb, []string{stockKey(productID)}, qty).Result()
	if err != nil {
		return 0, fmt.Errorf("decrement stock script failed: %w", err)
	}

	next, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result type")
	}
	return int(next), nil
}
