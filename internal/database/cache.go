package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/leadscout/backend/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrCacheMiss is returned when a key is absent or expired.
	ErrCacheMiss = redis.Nil
	// ErrCacheDisabled is returned by a Cache built without a client.
	ErrCacheDisabled = errors.New("cache disabled")
)

// Cache implementation. A Cache with a nil client misses on every read and
// ignores writes, so callers need no special case when redis is off.
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewCache(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// Cache key constants
const (
	SearchStatsKey  = "leadscout:stats:%s"
	SystemHealthKey = "leadscout:system:health"
)

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) setJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

func (c *Cache) getJSON(ctx context.Context, key string, dest interface{}) error {
	if !c.enabled() {
		return ErrCacheDisabled
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// CacheSearchStats caches the dashboard stats of a user
func (c *Cache) CacheSearchStats(ctx context.Context, userID string, stats *models.SearchStats, expiration time.Duration) error {
	return c.setJSON(ctx, fmt.Sprintf(SearchStatsKey, userID), stats, expiration)
}

// GetCachedSearchStats retrieves cached stats; ErrCacheMiss when absent.
func (c *Cache) GetCachedSearchStats(ctx context.Context, userID string) (*models.SearchStats, error) {
	var stats models.SearchStats
	if err := c.getJSON(ctx, fmt.Sprintf(SearchStatsKey, userID), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// InvalidateSearchStats drops the cached stats of a user
func (c *Cache) InvalidateSearchStats(ctx context.Context, userID string) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Del(ctx, fmt.Sprintf(SearchStatsKey, userID)).Err()
}

// CacheSystemHealth caches system health status
func (c *Cache) CacheSystemHealth(ctx context.Context, health []models.ServiceHealth, expiration time.Duration) error {
	return c.setJSON(ctx, SystemHealthKey, health, expiration)
}

// GetCachedSystemHealth retrieves cached system health
func (c *Cache) GetCachedSystemHealth(ctx context.Context) ([]models.ServiceHealth, error) {
	var health []models.ServiceHealth
	if err := c.getJSON(ctx, SystemHealthKey, &health); err != nil {
		return nil, err
	}
	return health, nil
}
