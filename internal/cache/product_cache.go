package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/store-management/internal/domain"
)

// Loader reads a product from the store on a cache miss.
type Loader func(ctx context.Context) (*domain.Product, error)

// Stats counts cache activity. Skips are fills dropped after a concurrent
// invalidation.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Sets    uint64 `json:"sets"`
	Deletes uint64 `json:"deletes"`
	Errors  uint64 `json:"errors"`
	Skips   uint64 `json:"skips"`
}

// ProductCache is a cache-aside layer over Redis for single product reads.
// Without a Redis client it only collapses concurrent loads.
//
// Every Invalidate bumps a per-product generation. A fill whose load started
// before the bump is dropped, so a row read before a committed write never
// lands in Redis after that write's invalidation.
type ProductCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
	stats  Stats

	mu          sync.Mutex
	generations map[int64]uint64
}

// NewProductCache builds the cache. client may be nil.
func NewProductCache(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *ProductCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductCache{
		client:      client,
		prefix:      prefix,
		ttl:         ttl,
		logger:      logger,
		generations: make(map[int64]uint64),
	}
}

func (c *ProductCache) generation(id int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[id]
}

func (c *ProductCache) bump(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[id]++
}

func (c *ProductCache) key(id int64) string {
	return c.prefix + strconv.FormatInt(id, 10)
}

// GetOrLoad returns the cached product or loads, caches and returns it.
// Redis failures degrade to a plain load; loader errors are returned as is.
func (c *ProductCache) GetOrLoad(ctx context.Context, id int64, load Loader) (*domain.Product, error) {
	if c == nil {
		return load(ctx)
	}

	if product, ok := c.get(ctx, id); ok {
		return product, nil
	}

	val, err, _ := c.group.Do(c.key(id), func() (any, error) {
		gen := c.generation(id)
		product, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.fill(ctx, id, gen, product)
		return product, nil
	})
	if err != nil {
		return nil, err
	}

	product := *val.(*domain.Product)
	return &product, nil
}

func (c *ProductCache) get(ctx context.Context, id int64) (*domain.Product, bool) {
	if c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			atomic.AddUint64(&c.stats.Errors, 1)
			c.logger.Warn("product cache read failed", zap.Int64("product_id", id), zap.Error(err))
		}
		atomic.AddUint64(&c.stats.Misses, 1)
		return nil, false
	}

	var product domain.Product
	if err := json.Unmarshal(data, &product); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		atomic.AddUint64(&c.stats.Misses, 1)
		return nil, false
	}
	atomic.AddUint64(&c.stats.Hits, 1)
	return &product, true
}

// fill caches a loaded product unless id was invalidated since gen was read.
// A write that raced the final check is deleted again.
func (c *ProductCache) fill(ctx context.Context, id int64, gen uint64, product *domain.Product) {
	if c.client == nil {
		return
	}
	if c.generation(id) != gen {
		atomic.AddUint64(&c.stats.Skips, 1)
		return
	}
	if !c.set(ctx, product) {
		return
	}
	if c.generation(id) != gen {
		atomic.AddUint64(&c.stats.Skips, 1)
		c.del(ctx, id)
	}
}

func (c *ProductCache) set(ctx context.Context, product *domain.Product) bool {
	data, err := json.Marshal(product)
	if err == nil {
		err = c.client.Set(ctx, c.key(product.ID), data, c.ttl).Err()
	}
	if err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		c.logger.Warn("product cache write failed", zap.Int64("product_id", product.ID), zap.Error(err))
		return false
	}
	atomic.AddUint64(&c.stats.Sets, 1)
	return true
}

// Invalidate drops the cached copy of a product and cancels fills whose load
// began before this call.
func (c *ProductCache) Invalidate(ctx context.Context, id int64) {
	if c == nil {
		return
	}
	c.bump(id)
	if c.client == nil {
		return
	}
	c.del(ctx, id)
}

func (c *ProductCache) del(ctx context.Context, id int64) {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		c.logger.Warn("product cache invalidation failed", zap.Int64("product_id", id), zap.Error(err))
		return
	}
	atomic.AddUint64(&c.stats.Deletes, 1)
}

// Stats returns a snapshot of the counters.
func (c *ProductCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Hits:    atomic.LoadUint64(&c.stats.Hits),
		Misses:  atomic.LoadUint64(&c.stats.Misses),
		Sets:    atomic.LoadUint64(&c.stats.Sets),
		Deletes: atomic.LoadUint64(&c.stats.Deletes),
		Errors:  atomic.LoadUint64(&c.stats.Errors),
		Skips:   atomic.LoadUint64(&c.stats.Skips),
	}
}

// Ping checks the Redis connection.
func (c *ProductCache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("product cache has no redis client")
	}
	return c.client.Ping(ctx).Err()
}
