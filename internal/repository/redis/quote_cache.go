package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"opencalc/internal/adapters/marketdata"
	"opencalc/pkg/errors"
)

// Compile-time check
var _ marketdata.QuoteCache = (*QuoteCache)(nil)

// QuoteCache implements marketdata.QuoteCache using Redis
type QuoteCache struct {
	client *redis.Client
}

// NewQuoteCache creates a new quote cache
func NewQuoteCache(client *redis.Client) *QuoteCache {
	return &QuoteCache{
		client: client,
	}
}

// Get retrieves a cached quote by symbol
func (c *QuoteCache) Get(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	key := c.getKey(symbol)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "quote not cached for %s", symbol)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get quote from redis: symbol=%s", symbol)
	}

	var quote marketdata.Quote
	if err := json.Unmarshal([]byte(data), &quote); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal cached quote: symbol=%s", symbol)
	}

	return &quote, nil
}

// Save stores a quote with TTL
func (c *QuoteCache) Save(ctx context.Context, q *marketdata.Quote, ttl time.Duration) error {
	key := c.getKey(q.Symbol)

	data, err := json.Marshal(q)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal quote: symbol=%s", q.Symbol)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to save quote to redis: symbol=%s", q.Symbol)
	}

	return nil
}

func (c *QuoteCache) getKey(symbol string) string {
	return fmt.Sprintf("quote:%s", symbol)
}
