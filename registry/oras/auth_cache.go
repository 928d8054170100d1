package oras

import (
	"sync"
	"time"
)

const (
	defaultHeaderTTL   = time.Minute
	defaultHeaderLimit = 100
)

// headerCache maps a registry host to the Authorization value AuthHeaders
// computed for it. An empty value records a host without credentials.
// A nil cache stores nothing.
type headerCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	limit   int
	now     func() time.Time
	entries map[string]headerEntry
}

type headerEntry struct {
	value   string
	expires time.Time
}

// newHeaderCache returns nil when ttl is not positive.
func newHeaderCache(ttl time.Duration, limit int) *headerCache {
	if ttl <= 0 {
		return nil
	}
	if limit <= 0 {
		limit = defaultHeaderLimit
	}
	return &headerCache{
		ttl:     ttl,
		limit:   limit,
		now:     time.Now,
		entries: make(map[string]headerEntry, limit),
	}
}

func (c *headerCache) lookup(host string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[host]
	if !ok {
		return "", false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, host)
		return "", false
	}
	return e.value, true
}

// store records value for host. When the cache is full, expired hosts are
// dropped first and then the host closest to expiry.
func (c *headerCache) store(host, value string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, ok := c.entries[host]; !ok && len(c.entries) >= c.limit {
		var victim string
		var soonest time.Time
		for h, e := range c.entries {
			if !now.Before(e.expires) {
				delete(c.entries, h)
				continue
			}
			if victim == "" || e.expires.Before(soonest) {
				victim, soonest = h, e.expires
			}
		}
		if len(c.entries) >= c.limit {
			delete(c.entries, victim)
		}
	}
	c.entries[host] = headerEntry{value: value, expires: now.Add(c.ttl)}
}

func (c *headerCache) drop(host string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, host)
}

func (c *headerCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
