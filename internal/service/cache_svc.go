package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AscendAI/creator-catalyst-sub000/internal/metrics"
	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

// PayoutCacheTTL bounds how long a stored payout is served from Redis. Every
// recompute also invalidates its key.
const PayoutCacheTTL = 10 * time.Minute

// CacheService provides a Redis cache-aside layer for stored payouts.
type CacheService struct {
	rdb *redis.Client
}

// NewCacheService creates a new CacheService. If redisURL is empty or connection
// fails, it returns a CacheService with a nil client (cache operations become no-ops).
func NewCacheService(redisURL string, log zerolog.Logger) *CacheService {
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		_ = rdb.Close()
		return &CacheService{}
	}

	log.Info().Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// NewCacheServiceWithClient wraps an existing client. A nil client disables caching.
func NewCacheServiceWithClient(rdb *redis.Client) *CacheService {
	return &CacheService{rdb: rdb}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetPayout returns the cached payout, or nil if not cached or the cache is disabled.
func (c *CacheService) GetPayout(ctx context.Context, creatorID, cycleID string) (*model.Payout, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, payoutKey(creatorID, cycleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p model.Payout
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode cached payout: %w", err)
	}
	metrics.CacheHits.Inc()
	return &p, nil
}

// SetPayout stores a payout in cache.
func (c *CacheService) SetPayout(ctx context.Context, p *model.Payout) error {
	if c.rdb == nil || p == nil {
		return nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, payoutKey(p.CreatorID, p.CycleID), b, PayoutCacheTTL).Err()
}

// InvalidatePayout removes a payout from cache (called after every recompute).
func (c *CacheService) InvalidatePayout(ctx context.Context, creatorID, cycleID string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, payoutKey(creatorID, cycleID)).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func payoutKey(creatorID, cycleID string) string {
	return fmt.Sprintf("payout:%s:%s", creatorID, cycleID)
}
