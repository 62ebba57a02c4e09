package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	aws_pkg "github.com/dachishengelia/restyle-backend/pkg/aws"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
)

const productNameCachePrefix = "catalog:product:name:"

// CachedCatalogRepository is a read-through Redis cache in front of another catalog.
// Redis failures never fail a lookup; they fall through to the underlying store.
type CachedCatalogRepository struct {
	next    CatalogRepository
	redis   *redis.Client
	ttl     time.Duration
	metrics aws_pkg.Recorder
	logger  *zap.Logger
}

func NewCachedCatalogRepository(next CatalogRepository, client *redis.Client, ttl time.Duration, metrics aws_pkg.Recorder, logger *zap.Logger) *CachedCatalogRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCatalogRepository{next: next, redis: client, ttl: ttl, metrics: metrics, logger: logger}
}

func productCacheKey(name string) string {
	return productNameCachePrefix + name
}

func (c *CachedCatalogRepository) FindProductByName(ctx context.Context, name string) (*models.Product, error) {
	key := productCacheKey(name)

	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var product models.Product
		if jsonErr := json.Unmarshal(cached, &product); jsonErr == nil {
			c.record(ctx, aws_pkg.MetricCacheHits)
			return &product, nil
		}
		c.logger.Warn("Discarding unreadable cached product", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
	}
	c.record(ctx, aws_pkg.MetricCacheMisses)

	product, err := c.next.FindProductByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(product); err == nil {
		if err := c.redis.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.logger.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return product, nil
}

func (c *CachedCatalogRepository) record(ctx context.Context, metric string) {
	if c.metrics == nil {
		return
	}
	_ = c.metrics.RecordCount(ctx, metric, map[string]string{"Cache": "catalog"})
}
