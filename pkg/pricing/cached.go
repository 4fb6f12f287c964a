package pricing

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Source is anything that resolves compound-key prices. Router implements
// it; tests stub it.
type Source interface {
	GetIndexPrices(ctx context.Context, keys []string) (map[string]float64, error)
}

// CachedRouter wraps a Source with a TTL cache, bounded retry and a
// last-good fallback. Last-good values survive TTL expiry on purpose: a
// stale price beats no price during a venue outage.
type CachedRouter struct {
	source   Source
	cache    *TTLCache
	retries  int
	backoff  time.Duration
	logger   *logrus.Logger
	mu       sync.RWMutex
	lastGood map[string]map[string]float64
	sleep    func(time.Duration)
}

func NewCachedRouter(source Source, ttl time.Duration, retries int, backoff time.Duration, logger *logrus.Logger) *CachedRouter {
	return &CachedRouter{
		source:   source,
		cache:    NewTTLCache(ttl),
		retries:  retries,
		backoff:  backoff,
		logger:   logger,
		lastGood: make(map[string]map[string]float64),
		sleep:    time.Sleep,
	}
}

func (c *CachedRouter) GetIndexPrices(ctx context.Context, keys []string) (map[string]float64, error) {
	cleaned := sortedUnique(keys)
	if len(cleaned) == 0 {
		return map[string]float64{}, nil
	}
	cacheKey := strings.Join(cleaned, ",")

	if cached, ok := c.cache.Get(cacheKey); ok {
		return copyPrices(cached.(map[string]float64)), nil
	}

	var lastErr error
	attempts := c.retries + 1
	for i := 0; i < attempts; i++ {
		if i > 0 {
			c.sleep(c.backoff * (1 << (i - 1)))
		}
		prices, err := c.source.GetIndexPrices(ctx, cleaned)
		if err != nil {
			var unsupported *UnsupportedVenueError
			if errors.As(err, &unsupported) {
				// Configuration error; retrying cannot fix it.
				return nil, err
			}
			lastErr = err
			continue
		}
		if len(prices) == 0 {
			continue
		}
		c.cache.Set(cacheKey, copyPrices(prices))
		c.mu.Lock()
		c.lastGood[cacheKey] = copyPrices(prices)
		c.mu.Unlock()
		return prices, nil
	}

	c.mu.RLock()
	good, ok := c.lastGood[cacheKey]
	c.mu.RUnlock()
	if ok {
		c.logger.WithField("keys", cacheKey).Warn("price fetch degraded, serving last-good values")
		return copyPrices(good), nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return map[string]float64{}, nil
}

// Clear drops TTL entries but keeps last-good values.
func (c *CachedRouter) Clear() {
	c.cache.Clear()
}

func sortedUnique(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func copyPrices(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
