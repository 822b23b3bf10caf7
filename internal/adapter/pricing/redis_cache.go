package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/lumenpulse/analytics-backend/internal/domain"
)

// CachedSource wraps an inner price source with a redis TTL cache.
type CachedSource struct {
	client *redis.Client
	inner  Source
	ttl    time.Duration
}

// NewCachedSource creates a new CachedSource instance and verifies the redis
// connection.
func NewCachedSource(addr, password string, db int, ttl time.Duration, inner Source) (*CachedSource, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &CachedSource{
		client: client,
		inner:  inner,
		ttl:    ttl,
	}, nil
}

// Close releases the redis connection.
func (c *CachedSource) Close() error {
	return c.client.Close()
}

// UnitPrice serves the asset's unit price from the cache, delegating to the
// inner source on a miss and backfilling the cache. Cache errors are not
// fatal: the inner source always has the final word.
func (c *CachedSource) UnitPrice(ctx context.Context, assetCode string, issuer *string) (decimal.Decimal, error) {
	key := cacheKey(assetCode, issuer)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		if price, parseErr := decimal.NewFromString(cached); parseErr == nil {
			return price, nil
		}
	}

	// Miss (redis.Nil) or degraded cache: ask the inner source.
	price, err := c.inner.UnitPrice(ctx, assetCode, issuer)
	if err != nil {
		return decimal.Zero, err
	}

	c.client.Set(ctx, key, price.String(), c.ttl)

	return price, nil
}

func cacheKey(assetCode string, issuer *string) string {
	if issuer == nil {
		return fmt.Sprintf("price:%s:native", assetCode)
	}
	return fmt.Sprintf("price:%s:%s", assetCode, *issuer)
}

// Func adapts a price source into the core's PricingFunc: holding value is
// unit price times amount. The core treats pricing as synchronous, so the
// adapter carries its own context.
func Func(source Source) domain.PricingFunc {
	return func(assetCode string, issuer *string, amount decimal.Decimal) decimal.Decimal {
		price, err := source.UnitPrice(context.Background(), assetCode, issuer)
		if err != nil {
			return decimal.Zero
		}
		return price.Mul(amount)
	}
}
