// Package cache memoizes transport responses per request URL.
//
// Entries are kept for a fixed duration from the moment they were fetched and
// are refreshed lazily on the first access after they expired. Hits never
// extend an entry's lifetime. Transport failures are not cached.
package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"

	"github.com/zebr0/zebr0-go/internal/log"
	"github.com/zebr0/zebr0-go/internal/transport"
)

// Ensure Cache can stand in for the transport it wraps.
var _ transport.Fetcher = (*Cache)(nil)

// Stats counts cache hits and the requests that reached the transport.
// Entries includes expired responses not replaced yet.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Cache is a transport.Fetcher that wraps another one.
// It is safe for concurrent use; concurrent misses on the same URL share a
// single transport request.
type Cache struct {
	fetcher transport.Fetcher
	ttl     time.Duration
	items   *ttlcache.Cache[string, transport.Response]
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// New returns a cache keeping responses for ttl. A ttl of zero or less
// disables caching: every Fetch reaches the wrapped fetcher.
func New(fetcher transport.Fetcher, ttl time.Duration) *Cache {
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		items: ttlcache.New(
			ttlcache.WithTTL[string, transport.Response](ttl),
			ttlcache.WithDisableTouchOnHit[string, transport.Response](),
		),
	}
}

// Fetch returns the stored response for url while it is fresh, and asks the
// wrapped fetcher otherwise.
func (c *Cache) Fetch(ctx context.Context, url string) (transport.Response, error) {
	if c.ttl <= 0 {
		c.misses.Inc()
		return c.fetcher.Fetch(ctx, url)
	}

	if item := c.items.Get(url); item != nil {
		c.hits.Inc()
		log.Debug("cache hit", "url", url)
		return item.Value(), nil
	}

	v, err, _ := c.group.Do(url, func() (any, error) {
		// another caller may have filled the entry while we waited
		if item := c.items.Get(url); item != nil {
			c.hits.Inc()
			return item.Value(), nil
		}
		c.misses.Inc()
		log.Debug("cache miss", "url", url)
		resp, err := c.fetcher.Fetch(ctx, url)
		if err != nil {
			return transport.Response{}, err
		}
		c.items.Set(url, resp, ttlcache.DefaultTTL)
		return resp, nil
	})
	if err != nil {
		return transport.Response{}, err
	}
	return v.(transport.Response), nil
}

// Stats returns the hit and miss counters and the number of entries held.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.items.Len()}
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.items.DeleteAll()
}
