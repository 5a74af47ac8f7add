package openweather

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/observability"
)

// CachedProvider wraps a WeatherProvider with an in-memory LRU cache whose
// entries expire after a fixed TTL. Coordinates are keyed at two decimals
// (about 1 km), so neighbouring farms share a forecast.
type CachedProvider struct {
	inner   domain.WeatherProvider
	cache   *lruCache
	ttl     time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a weather provider.
func NewCachedProvider(inner domain.WeatherProvider, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		ttl:     ttl,
		clock:   clock,
		metrics: metrics,
	}
}

func (c *CachedProvider) Weather(ctx context.Context, lat, lon float64) (domain.WeatherReport, error) {
	key := fmt.Sprintf("%.2f,%.2f", lat, lon)
	now := c.clock.Now()
	if report, ok := c.cache.get(key, now); ok {
		c.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return report, nil
	}
	c.metrics.WeatherCache.WithLabelValues("miss").Inc()

	report, err := c.inner.Weather(ctx, lat, lon)
	if err != nil {
		return report, err
	}
	// Empty forecasts are not cached so the next request retries the source.
	if len(report.Forecast) > 0 {
		c.cache.put(key, report, now.Add(c.ttl))
	}
	return report, nil
}

// lruCache holds weather reports in recency order with per-entry expiry.
// The front of order is the most recently used key.
type lruCache struct {
	mu    sync.Mutex
	limit int
	order *list.List
	index map[string]*list.Element
}

type cached struct {
	key       string
	report    domain.WeatherReport
	expiresAt time.Time
}

func newLRUCache(limit int) *lruCache {
	return &lruCache{
		limit: limit,
		order: list.New(),
		index: make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string, now time.Time) (domain.WeatherReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		return domain.WeatherReport{}, false
	}
	item := el.Value.(*cached)
	if !now.Before(item.expiresAt) {
		c.remove(el)
		return domain.WeatherReport{}, false
	}
	c.order.MoveToFront(el)
	return item.report, true
}

func (c *lruCache) put(key string, report domain.WeatherReport, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		item := el.Value.(*cached)
		item.report, item.expiresAt = report, expiresAt
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(&cached{key: key, report: report, expiresAt: expiresAt})

	for c.order.Len() > c.limit {
		c.remove(c.order.Back())
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *lruCache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.index, el.Value.(*cached).key)
}
