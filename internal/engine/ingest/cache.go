package ingest

import (
	"sync"
	"time"

	"leadflow/internal/platform/models"
)

type cachedEndpoint struct {
	endpoint *models.WebhookEndpoint
	cachedAt time.Time
}

// EndpointCache keeps recently resolved endpoints off the database on the
// hot ingestion path. Counter fields on a cached entry go stale between
// refreshes; only identity, secret, mapping and the active flag are read
// from it.
type EndpointCache struct {
	store sync.Map // map[key]*cachedEndpoint
	ttl   time.Duration
}

func NewEndpointCache(ttl time.Duration) *EndpointCache {
	return &EndpointCache{ttl: ttl}
}

func (c *EndpointCache) Get(key string) (*models.WebhookEndpoint, bool) {
	val, ok := c.store.Load(key)
	if !ok {
		return nil, false
	}

	entry := val.(*cachedEndpoint)
	if time.Since(entry.cachedAt) > c.ttl {
		c.store.Delete(key)
		return nil, false
	}

	return entry.endpoint, true
}

func (c *EndpointCache) Set(key string, ep *models.WebhookEndpoint) {
	c.store.Store(key, &cachedEndpoint{endpoint: ep, cachedAt: time.Now()})
}

func (c *EndpointCache) Invalidate(key string) {
	c.store.Delete(key)
}
